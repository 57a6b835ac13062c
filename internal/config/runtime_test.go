// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/paxrun/internal/framework"
	"github.com/invowk/paxrun/pkg/bundle"
)

func TestVMOptions(t *testing.T) {
	t.Setenv("PAXRUN_TEST_HEAP", "256m")

	tests := []struct {
		name    string
		opts    string
		want    []string
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"plain", "-Xmx512m -server", []string{"-Xmx512m", "-server"}, false},
		{"quoted", `-Dname="a b" -Dother='c d'`, []string{"-Dname=a b", "-Dother=c d"}, false},
		{"expanded", "-Xmx$PAXRUN_TEST_HEAP", []string{"-Xmx256m"}, false},
		{"unterminated quote", `-Dname="a b`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Java.VMOptions = tt.opts
			got, err := cfg.VMOptions()
			if (err != nil) != tt.wantErr {
				t.Fatalf("VMOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("VMOptions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntries(t *testing.T) {
	t.Parallel()

	off := false
	base := filepath.Join("etc", "paxrun")
	abs, err := filepath.Abs("abs.jar")
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Framework.BundleLevel = 4
	cfg.Bundles = []BundleConfig{
		{Location: "a.jar"},
		{Location: abs, StartLevel: 2, Autostart: &off},
		{Location: "mvn:org.example/b/1.0"},
	}

	got, err := cfg.Entries(base)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	want := []bundle.Entry{
		{Location: bundle.Location(filepath.Join(base, "a.jar")), StartLevel: 4, Autostart: true},
		{Location: bundle.Location(abs), StartLevel: 2, Autostart: false},
		{Location: "mvn:org.example/b/1.0", StartLevel: 4, Autostart: true},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Entries() = %+v, want %+v", got, want)
	}
}

func TestFrameworkConfiguration(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.Java.VMOptions = "-Xmx1g"
	cfg.Java.Classpath = "extra.jar"
	cfg.Framework.SystemBundle = "osgi.jar"
	cfg.Framework.DefaultBundles = []string{"console.jar"}
	cfg.Framework.Clean = true
	cfg.Bundles = []BundleConfig{{Location: "configured.jar"}}
	cfg.Properties = []PropertyConfig{{Name: "b", Value: "1"}, {Name: "a", Value: "2"}}

	extra := bundle.Entry{Location: "cli.jar", StartLevel: 3, Autostart: true}
	fc, err := cfg.FrameworkConfiguration(base, extra)
	if err != nil {
		t.Fatalf("FrameworkConfiguration() error = %v", err)
	}

	if fc.SystemBundle != filepath.Join(base, "osgi.jar") {
		t.Errorf("SystemBundle = %q", fc.SystemBundle)
	}
	if len(fc.DefaultBundles) != 1 || fc.DefaultBundles[0] != bundle.Location(filepath.Join(base, "console.jar")) {
		t.Errorf("DefaultBundles = %v", fc.DefaultBundles)
	}
	if len(fc.Bundles) != 2 || fc.Bundles[1] != extra {
		t.Errorf("Bundles = %+v, want configured bundle then %+v", fc.Bundles, extra)
	}
	wantProps := []framework.Property{{Key: "b", Value: "1"}, {Key: "a", Value: "2"}}
	if !slices.Equal(fc.Properties, wantProps) {
		t.Errorf("Properties = %+v, want %+v", fc.Properties, wantProps)
	}
	if fc.StartLevel != 6 || !fc.Clean || fc.Classpath != "extra.jar" {
		t.Errorf("framework settings not carried over: %+v", fc)
	}
	if !slices.Equal(fc.VMOptions, []string{"-Xmx1g"}) {
		t.Errorf("VMOptions = %q", fc.VMOptions)
	}
}

func TestFrameworkConfiguration_RequiresSystemBundle(t *testing.T) {
	t.Parallel()

	_, err := DefaultConfig().FrameworkConfiguration("")
	if !errors.Is(err, framework.ErrMissingSystemBundle) {
		t.Errorf("FrameworkConfiguration() error = %v, want ErrMissingSystemBundle", err)
	}
}

// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/invowk/paxrun/internal/testutil"
)

func TestBuildSkipsExcludedSubtree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"a/b.txt":      "bee",
		"target/x.txt": "excluded",
	})

	a := New()
	report, err := Build(context.Background(), a, root, MustExclusion("target"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	paths := a.Paths()
	if len(paths) != 1 || paths[0] != "a/b.txt" {
		t.Fatalf("Paths() = %v, want [a/b.txt]", paths)
	}
	r, _ := a.Get("a/b.txt")
	if got := readAll(t, r); got != "bee" {
		t.Errorf("a/b.txt = %q, want %q", got, "bee")
	}
	if report.Added != 1 {
		t.Errorf("Added = %d, want 1", report.Added)
	}
	if len(report.Excluded) != 1 || report.Excluded[0] != "target" {
		t.Errorf("Excluded = %v, want [target]", report.Excluded)
	}
	if report.Partial() {
		t.Errorf("unexpected problems: %v", report.Err())
	}
}

func TestBuildExclusionRules(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"root.txt":                "r",
		"src/main/Activator.java": "a",
		"src/target/deep.txt":     "nested excluded dir",
		"targets/kept.txt":        "name only partially matches",
		".git/HEAD":               "ref",
		"lib/.svn/entries":        "svn",
		"lib/util/Helper.class":   "h",
	}

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "default rule",
			pattern: DefaultExclusion,
			want:    []string{"lib/util/Helper.class", "root.txt", "src/main/Activator.java", "targets/kept.txt"},
		},
		{
			name:    "no rule",
			pattern: "",
			want: []string{
				".git/HEAD", "lib/.svn/entries", "lib/util/Helper.class", "root.txt",
				"src/main/Activator.java", "src/target/deep.txt", "targets/kept.txt",
			},
		},
		{
			name:    "wildcard rule",
			pattern: "src|lib",
			want:    []string{".git/HEAD", "root.txt", "targets/kept.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			testutil.WriteTree(t, root, files)
			if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
				t.Fatal(err)
			}

			a := New()
			if _, err := Build(context.Background(), a, root, MustExclusion(tt.pattern)); err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			got := a.Paths()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Paths() = %v, want %v", got, tt.want)
			}
			for _, p := range got {
				if strings.Contains(p, `\`) {
					t.Errorf("path %q contains a backslash", p)
				}
			}
		})
	}
}

func TestBuildExcludedRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "target")
	testutil.WriteTree(t, root, map[string]string{"inside.txt": "x", "sub/deeper.txt": "y"})

	a := New()
	report, err := Build(context.Background(), a, root, MustExclusion("target"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.Len() != 0 || report.Added != 0 {
		t.Errorf("Len() = %d, Added = %d, want an empty archive", a.Len(), report.Added)
	}
	if len(report.Excluded) != 1 || report.Excluded[0] != "." {
		t.Errorf("Excluded = %v, want [.]", report.Excluded)
	}
}

func TestBuildFailsFastOnBadRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		root string
		want error
	}{
		{name: "missing", root: filepath.Join(dir, "nope"), want: ErrRootNotFound},
		{name: "file", root: file, want: ErrRootNotDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := New()
			_, err := Build(context.Background(), a, tt.root, ExclusionRule{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build() error = %v, want %v", err, tt.want)
			}
			var rootErr *RootError
			if !errors.As(err, &rootErr) {
				t.Errorf("error is not a *RootError: %T", err)
			}
			if a.Len() != 0 {
				t.Errorf("archive has %d entries after failure", a.Len())
			}
		})
	}
}

func TestBuildReportsUnreadableDirectory(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root can read every directory")
	}

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"ok/visible.txt":    "v",
		"locked/hidden.txt": "h",
	})
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	a := New()
	report, err := Build(context.Background(), a, root, ExclusionRule{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !report.Partial() {
		t.Fatal("Partial() = false, want true")
	}
	if !errors.Is(report.Err(), os.ErrPermission) {
		t.Errorf("report.Err() = %v, want permission error", report.Err())
	}
	if paths := a.Paths(); len(paths) != 1 || paths[0] != "ok/visible.txt" {
		t.Errorf("Paths() = %v, want [ok/visible.txt]", paths)
	}
}

func TestBuildFollowsSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	testutil.WriteTree(t, outside, map[string]string{"real.txt": "real", "dir/f.txt": "f"})
	if err := os.Symlink(filepath.Join(outside, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linkdir")); err != nil {
		t.Fatal(err)
	}

	a := New()
	if _, err := Build(context.Background(), a, root, ExclusionRule{}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := []string{"link.txt", "linkdir/f.txt"}
	if paths := a.Paths(); strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("Paths() = %v, want %v", paths, want)
	}
}

func TestBuildStopsAtSymlinkLoops(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a/file.txt": "f"})
	if err := os.Symlink(root, filepath.Join(root, "a", "up")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "self")); err != nil {
		t.Fatal(err)
	}

	a := New()
	report, err := Build(context.Background(), a, root, ExclusionRule{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// self/ is a second view of a/, so its link back to root is a loop as well.
	want := []string{"a/file.txt", "self/file.txt"}
	if paths := a.Paths(); strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("Paths() = %v, want %v", paths, want)
	}
	wantLoops := []string{"a/up", "self/up"}
	if strings.Join(report.Loops, ",") != strings.Join(wantLoops, ",") {
		t.Errorf("Loops = %v, want %v", report.Loops, wantLoops)
	}
	if report.Partial() {
		t.Errorf("loops must not count as problems: %v", report.Err())
	}
}

func TestBuildExcludesSymlinkedDirectoryByLinkName(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	testutil.WriteTree(t, outside, map[string]string{"out.class": "c"})
	if err := os.Symlink(outside, filepath.Join(root, "target")); err != nil {
		t.Fatal(err)
	}

	a := New()
	report, err := Build(context.Background(), a, root, MustExclusion("target"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("Paths() = %v, want none", a.Paths())
	}
	if len(report.Excluded) != 1 || report.Excluded[0] != "target" {
		t.Errorf("Excluded = %v, want [target]", report.Excluded)
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, New(), root, ExclusionRule{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestNewExclusionRejectsBadPattern(t *testing.T) {
	t.Parallel()

	if _, err := NewExclusion("("); err == nil {
		t.Error("NewExclusion(\"(\") succeeded, want error")
	}
	rule := MustExclusion("a|b")
	if !rule.Excludes("a") || rule.Excludes("ab") {
		t.Error("rule must match whole names only")
	}
	if rule.String() != "a|b" {
		t.Errorf("String() = %q", rule.String())
	}
}

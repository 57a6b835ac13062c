// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/paxrun/internal/config"
	"github.com/invowk/paxrun/internal/framework"
	"github.com/invowk/paxrun/internal/issue"
	"github.com/invowk/paxrun/pkg/bundle"

	"github.com/spf13/cobra"
)

type (
	// launchFlags are the flags shared by run and plan. Flags override the
	// loaded configuration only when set explicitly.
	launchFlags struct {
		workDir     string
		java        string
		clean       bool
		noConsole   bool
		pty         bool
		startLevel  int
		bundleLevel int
		properties  []string
		bundleSet   string
	}

	// launchPlan is everything needed to start or preview a launch.
	launchPlan struct {
		cfg       *loadedConfig
		framework framework.Framework
		config    framework.Configuration
		workDir   string
	}
)

func (f *launchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.workDir, "work-dir", "w", "", "launch working directory (default from work_dir)")
	flags.StringVar(&f.java, "java", "", "java executable (default from java.executable)")
	flags.BoolVar(&f.clean, "clean", false, "discard cached framework state on startup")
	flags.BoolVar(&f.noConsole, "no-console", false, "start the framework without its interactive console")
	flags.BoolVar(&f.pty, "pty", false, "attach the framework to a pseudo-terminal")
	flags.IntVar(&f.startLevel, "start-level", 0, "framework start level (default from framework.start_level)")
	flags.IntVar(&f.bundleLevel, "bundle-level", 0, "start level of bundles given as arguments (default from framework.bundle_level)")
	flags.StringArrayVarP(&f.properties, "define", "D", nil, "system property as key=value (repeatable)")
	flags.StringVarP(&f.bundleSet, "bundles", "b", "", "CUE bundle set file with locations, levels and autostart flags")
}

// apply copies explicitly set flags onto cfg.
func (f *launchFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("work-dir") {
		cfg.WorkDir = f.workDir
	}
	if flags.Changed("java") {
		cfg.Java.Executable = f.java
	}
	if flags.Changed("clean") {
		cfg.Framework.Clean = f.clean
	}
	if flags.Changed("no-console") {
		cfg.Framework.NoConsole = f.noConsole
	}
	if flags.Changed("pty") {
		cfg.Console.PTY = f.pty
	}
	if flags.Changed("start-level") {
		cfg.Framework.StartLevel = f.startLevel
	}
	if flags.Changed("bundle-level") {
		cfg.Framework.BundleLevel = f.bundleLevel
	}
	for _, raw := range f.properties {
		prop, err := parseProperty(raw)
		if err != nil {
			return err
		}
		cfg.Properties = append(cfg.Properties, prop)
	}
	return nil
}

// parseProperty parses key=value; a bare key has an empty value, as with java -D.
func parseProperty(raw string) (config.PropertyConfig, error) {
	key, value, _ := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return config.PropertyConfig{}, fmt.Errorf("invalid property %q: empty key", raw)
	}
	return config.PropertyConfig{Name: key, Value: value}, nil
}

// plan loads the configuration, applies the flags and resolves every bundle.
// Bundles from the configuration come first, then the bundle set file, then
// positional arguments.
func (a *App) plan(ctx context.Context, cmd *cobra.Command, f *launchFlags, args []string) (*launchPlan, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.apply(cmd, cfg.Config); err != nil {
		return nil, err
	}
	if ok, errs := bundle.StartLevel(cfg.Framework.StartLevel).IsValid(); !ok {
		return nil, errors.Join(errs...)
	}
	level := bundle.StartLevel(cfg.Framework.BundleLevel)
	if ok, errs := level.IsValid(); !ok {
		return nil, errors.Join(errs...)
	}

	var extra []bundle.Entry
	if f.bundleSet != "" {
		entries, err := bundle.LoadSet(f.bundleSet, level, true)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load bundle set").
				WithResource(f.bundleSet).
				WithIssue(issue.BundleSetInvalidId).
				Wrap(err).
				BuildError()
		}
		extra = append(extra, entries...)
	}
	fromArgs, err := bundle.FromPaths(args, level, true)
	if err != nil {
		return nil, err
	}
	extra = append(extra, fromArgs...)

	fc, err := cfg.FrameworkConfiguration(cfg.baseDir, extra...)
	if err != nil {
		ctxErr := issue.NewErrorContext().WithOperation("assemble launch configuration").Wrap(err)
		if errors.Is(err, framework.ErrMissingSystemBundle) {
			ctxErr = ctxErr.WithIssue(issue.SystemBundleMissingId)
		}
		return nil, ctxErr.BuildError()
	}

	fw, err := framework.Lookup(string(cfg.Framework.Name))
	if err != nil {
		return nil, err
	}

	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work directory: %w", err)
	}

	return &launchPlan{cfg: cfg, framework: fw, config: fc, workDir: workDir}, nil
}

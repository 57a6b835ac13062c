// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/invowk/paxrun/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage paxrun configuration",
		Long: `Manage paxrun configuration.

Configuration is read from the --config file, else from:
  - Linux: ~/.config/paxrun/config.cue
  - macOS: ~/Library/Application Support/paxrun/config.cue
  - Windows: %APPDATA%\paxrun\config.cue
and finally from ./paxrun.cue. PAXRUN_* environment variables override
file values, e.g. PAXRUN_FRAMEWORK_START_LEVEL=8.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context(), format)
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "cue", "output format: cue or toml")
	cfgCmd.AddCommand(showCmd)

	var (
		force bool
		path  string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig(path, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&path, "path", "", "file to write (default <config dir>/config.cue)")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfigPath()
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, format string) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	var out string
	switch format {
	case "cue":
		out = config.GenerateCUE(cfg.Config)
		if cfg.path != "" {
			out = fmt.Sprintf("// loaded from %s\n", cfg.path) + out
		}
	case "toml":
		out, err = config.GenerateTOML(cfg.Config)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (valid: cue, toml)", format)
	}

	_, err = fmt.Fprint(a.stdout, out)
	return err
}

func (a *App) initConfig(path string, force bool) error {
	written, err := config.CreateDefaultConfig(path, force)
	if errors.Is(err, config.ErrConfigExists) {
		fmt.Fprintf(a.stdout, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), written)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(a.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), written)
	return nil
}

func (a *App) showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Config directory"), cfgDir)
	fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Config file"), filepath.Join(cfgDir, config.ConfigFileName))
	fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Local file"), config.LocalConfigFile)
	return nil
}

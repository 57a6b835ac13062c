// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paxrun",
		Short: "Package and launch OSGi bundles",
		Long: TitleStyle.Render("paxrun") + SubtitleStyle.Render(" - Package and launch OSGi bundles") + `

paxrun starts an OSGi framework (Eclipse Equinox) in its own JVM with the
bundles you choose, and bridges the framework console to your terminal.

` + SubtitleStyle.Render("Examples:") + `
  paxrun run bundles/*.jar       Launch the framework with these bundles
  paxrun plan --clean            Preview the bootstrap file and JVM command
  paxrun package ./bundle        Build bundle.jar from a directory
  paxrun config init             Create a default configuration file`,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/paxrun/config.cue)")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn or error (default from log.level)")

	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newPlanCommand(app))
	rootCmd.AddCommand(newPackageCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the resulting status.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	os.Exit(execute(context.Background(), app, NewRootCommand(app)))
}

// execute runs rootCmd and maps the outcome to a process exit code.
func execute(ctx context.Context, app *App, rootCmd *cobra.Command) int {
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.handleError(w, err)
		}),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

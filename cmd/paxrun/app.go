// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/invowk/paxrun/internal/config"
	"github.com/invowk/paxrun/internal/issue"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// App wires CLI services and shared dependencies. Command handlers receive
	// an App and never reach for process globals directly.
	App struct {
		Config ConfigProvider
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		logger *log.Logger

		// Bound to the root command's persistent flags.
		configPath string
		verbose    bool
		logLevel   string
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// loadedConfig is a configuration together with the directory its relative
	// paths resolve against.
	loadedConfig struct {
		*config.Config
		path    string
		baseDir string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdin:  deps.Stdin,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		logger: log.NewWithOptions(deps.Stderr, log.Options{Prefix: config.AppName}),
	}
}

// loadConfig loads the configuration selected by --config and applies the
// effective log level. Relative paths in a config file resolve against the
// file's directory; with defaults only they resolve against the working dir.
func (a *App) loadConfig(ctx context.Context) (*loadedConfig, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, withIssue(err, issue.ConfigLoadFailedId)
	}
	if err := a.applyLogLevel(cfg); err != nil {
		return nil, err
	}

	loaded := &loadedConfig{Config: cfg, path: path}
	if path != "" {
		loaded.baseDir = filepath.Dir(path)
	}
	a.logger.Debug("configuration loaded", "path", path)
	return loaded, nil
}

// applyLogLevel sets the level from --log-level, then --verbose, then log.level.
func (a *App) applyLogLevel(cfg *config.Config) error {
	level := string(cfg.Log.Level)
	if a.verbose {
		level = string(config.LogLevelDebug)
	}
	if a.logLevel != "" {
		if ok, errs := config.LogLevel(a.logLevel).IsValid(); !ok {
			return errors.Join(errs...)
		}
		level = a.logLevel
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.logger.SetLevel(parsed)
	return nil
}

// withIssue links err to a catalog entry, keeping an existing
// ActionableError's context.
func withIssue(err error, id issue.Id) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if ae.Issue == 0 {
			ae.Issue = id
		}
		return err
	}
	return issue.NewErrorContext().WithOperation("load configuration").WithIssue(id).Wrap(err).BuildError()
}

// handleError prints err for the user. Linked catalog entries are rendered
// as Markdown after the message.
func (a *App) handleError(w io.Writer, err error) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))

	if entry := issue.Lookup(err); entry != nil {
		rendered, renderErr := entry.Render("auto")
		if renderErr != nil {
			a.logger.Debug("render issue", "err", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderMarkdown renders md for the terminal unless raw output was requested.
func renderMarkdown(md string, raw bool) (string, error) {
	if raw {
		return md, nil
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

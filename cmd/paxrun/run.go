// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"

	"github.com/invowk/paxrun/internal/issue"
	"github.com/invowk/paxrun/internal/launcher"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	var flags launchFlags

	cmd := &cobra.Command{
		Use:   "run [bundle...]",
		Short: "Launch the OSGi framework",
		Long: `Launch the OSGi framework in its own JVM with its console attached to this terminal.

Bundles given as arguments are installed after the configured ones at the
bundle level. The bootstrap file is written to <work-dir>/configuration.`,
		Example: `  paxrun run bundles/api.jar bundles/impl.jar
  paxrun run --clean -D org.osgi.service.http.port=8080 --bundles bundles.cue
  paxrun run --pty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd.Context(), cmd, &flags, args)
		},
	}
	flags.register(cmd)

	return cmd
}

func (a *App) run(ctx context.Context, cmd *cobra.Command, flags *launchFlags, args []string) error {
	p, err := a.plan(ctx, cmd, flags, args)
	if err != nil {
		return err
	}
	grace, err := p.cfg.Framework.GraceDuration()
	if err != nil {
		return err
	}

	l, err := launcher.New(launcher.Options{
		WorkDir:     p.workDir,
		Java:        p.cfg.Java.Executable,
		Framework:   p.framework,
		Config:      p.config,
		Stdin:       a.stdin,
		Stdout:      a.stdout,
		Stderr:      a.stderr,
		PTY:         p.cfg.Console.PTY,
		Logger:      a.logger,
		GracePeriod: grace,
	})
	if err != nil {
		return err
	}

	return classifyLaunchError(l.Run(ctx), p.cfg.Java.Executable)
}

// classifyLaunchError attaches user guidance to launcher failures and turns a
// framework exit code into the CLI's own.
func classifyLaunchError(err error, java string) error {
	if err == nil {
		return nil
	}

	var exitErr *launcher.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Code: exitErr.Code,
			Err: issue.NewErrorContext().
				WithOperation("run framework").
				WithIssue(issue.FrameworkExitedId).
				Wrap(err).
				BuildError(),
		}
	}

	ctx := issue.NewErrorContext().Wrap(err)
	switch {
	case errors.Is(err, launcher.ErrSpawn) && (errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)):
		ctx.WithOperation("find java").
			WithResource(java).
			WithIssue(issue.JavaNotFoundId)
	case errors.Is(err, launcher.ErrSpawn):
		ctx.WithOperation("start framework").
			WithResource(java).
			WithIssue(issue.SpawnFailedId)
	case errors.Is(err, launcher.ErrSynthesis) && errors.Is(err, os.ErrPermission):
		ctx.WithOperation("write bootstrap file").
			WithIssue(issue.PermissionDeniedId)
	case errors.Is(err, launcher.ErrSynthesis):
		ctx.WithOperation("write bootstrap file").
			WithIssue(issue.BootstrapWriteFailedId)
	default:
		return err
	}
	return ctx.BuildError()
}

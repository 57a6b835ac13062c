// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/paxrun/internal/framework"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"
)

func newPlanCommand(app *App) *cobra.Command {
	var (
		flags launchFlags
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "plan [bundle...]",
		Short: "Show the bootstrap file and JVM command of a launch without starting it",
		Long: `Show what 'paxrun run' would do with the same arguments: the bootstrap file
it would write and the JVM command line it would execute. Nothing is written
and no process is started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showPlan(cmd.Context(), cmd, &flags, args, raw)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "print plain Markdown instead of rendering it")

	return cmd
}

func (a *App) showPlan(ctx context.Context, cmd *cobra.Command, flags *launchFlags, args []string, raw bool) error {
	p, err := a.plan(ctx, cmd, flags, args)
	if err != nil {
		return err
	}

	md, err := planMarkdown(p)
	if err != nil {
		return err
	}
	out, err := renderMarkdown(md, raw)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.stdout, out)
	return err
}

func planMarkdown(p *launchPlan) (string, error) {
	var bootstrap strings.Builder
	if err := p.framework.RenderBootstrap(&bootstrap, p.config); err != nil {
		return "", err
	}
	args, err := p.framework.Command(p.config, p.workDir)
	if err != nil {
		return "", err
	}
	java, err := syntax.Quote(p.cfg.Java.Executable, syntax.LangBash)
	if err != nil {
		java = p.cfg.Java.Executable
	}
	bootstrapPath := filepath.Join(framework.ConfigDir(p.workDir), p.framework.BootstrapFileName())

	var md strings.Builder
	md.WriteString("# Launch plan\n\n")
	fmt.Fprintf(&md, "- **Framework:** %s\n", p.framework.Name())
	fmt.Fprintf(&md, "- **Work directory:** `%s`\n", p.workDir)
	fmt.Fprintf(&md, "- **Bootstrap file:** `%s`\n", bootstrapPath)
	fmt.Fprintf(&md, "- **Bundles:** %d default, %d installed\n", len(p.config.DefaultBundles), len(p.config.Bundles))
	if p.cfg.path != "" {
		fmt.Fprintf(&md, "- **Configuration:** `%s`\n", p.cfg.path)
	}

	fmt.Fprintf(&md, "\n## %s\n\n~~~properties\n", p.framework.BootstrapFileName())
	md.WriteString(strings.TrimRight(bootstrap.String(), "\n"))
	md.WriteString("\n~~~\n\n## Command\n\n~~~sh\n")
	md.WriteString(java + " " + args.String())
	md.WriteString("\n~~~\n")

	return md.String(), nil
}

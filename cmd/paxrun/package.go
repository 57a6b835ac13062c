// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/invowk/paxrun/internal/issue"
	"github.com/invowk/paxrun/pkg/archive"

	"github.com/spf13/cobra"
)

// defaultManifest is added when the packaged directory has none.
const defaultManifest = "Manifest-Version: 1.0\r\nCreated-By: paxrun\r\n\r\n"

type packageFlags struct {
	output       string
	exclude      string
	level        int
	noManifest   bool
	allowPartial bool
}

func newPackageCommand(app *App) *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "package <dir>",
		Short: "Package a bundle directory into a jar",
		Long: `Package every regular file under <dir> into a jar, keyed by its path relative
to <dir>. Directories whose name fully matches --exclude are skipped with
everything below them; by default that covers version control and build
output directories. The jar's BLAKE3 content digest is printed on success.

Files that cannot be read are reported and make the command exit with
status 2 unless --allow-partial is given.`,
		Example: `  paxrun package ./bundle -o bundle.jar
  paxrun package ./bundle --exclude '\.git|target|bin'
  paxrun package ./bundle --exclude=`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.packageDir(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "jar to write (default <dir name>.jar)")
	cmd.Flags().StringVarP(&flags.exclude, "exclude", "x", archive.DefaultExclusion,
		"regular expression matched against whole directory names (empty to keep every directory)")
	cmd.Flags().IntVar(&flags.level, "level", 0, "deflate level from 1 (fastest) to 9 (smallest)")
	cmd.Flags().BoolVar(&flags.noManifest, "no-manifest", false, "do not add a default META-INF/MANIFEST.MF")
	cmd.Flags().BoolVar(&flags.allowPartial, "allow-partial", false, "exit successfully even if some files could not be read")

	return cmd
}

func (a *App) packageDir(ctx context.Context, dir string, flags packageFlags) error {
	var rule archive.ExclusionRule
	if flags.exclude != "" {
		r, err := archive.NewExclusion(flags.exclude)
		if err != nil {
			return err
		}
		rule = r
	}

	arc := archive.New()
	report, err := archive.Build(ctx, arc, dir, rule)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("package directory").
			WithResource(dir).
			WithSuggestion("Pass an existing directory").
			Wrap(err).
			BuildError()
	}

	if !flags.noManifest {
		if _, ok := arc.Get(archive.ManifestPath); !ok {
			if err := arc.Put(archive.ManifestPath, archive.NewBytesResource([]byte(defaultManifest))); err != nil {
				return err
			}
		}
	}

	output := flags.output
	if output == "" {
		output = filepath.Base(report.Root) + ".jar"
	}
	if err := archive.WriteJarFile(ctx, output, arc, archive.JarOptions{Level: flags.level}); err != nil {
		return issue.WrapWithContext(err, "write jar", output)
	}
	digest, err := archive.Digest(arc)
	if err != nil {
		return err
	}

	a.logger.Debug("packaged", "root", report.Root, "entries", arc.Len(), "excluded", len(report.Excluded))
	fmt.Fprintf(a.stdout, "%s Packaged %d entries from %s into %s\n",
		SuccessStyle.Render("✓"), arc.Len(), report.Root, output)
	fmt.Fprintf(a.stdout, "%s %s\n", KeyStyle.Render("Digest:"), digest)
	for _, excluded := range report.Excluded {
		fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("excluded"), excluded)
	}
	for _, loop := range report.Loops {
		fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("symlink loop"), loop)
	}

	if !report.Partial() {
		return nil
	}
	for _, problem := range report.Problems {
		fmt.Fprintf(a.stderr, "%s %v\n", WarningStyle.Render("skipped"), problem)
	}
	if flags.allowPartial {
		return nil
	}
	return &ExitError{
		Code: 2,
		Err: issue.NewErrorContext().
			WithOperation("package directory").
			WithResource(report.Root).
			WithIssue(issue.SourceDirUnreadableId).
			Wrap(fmt.Errorf("%d entries could not be read", len(report.Problems))).
			BuildError(),
	}
}

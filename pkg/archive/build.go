// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

var (
	// ErrRootNotFound is returned when the directory to build from does not exist.
	ErrRootNotFound = errors.New("source directory not found")
	// ErrRootNotDirectory is returned when the build root is not a directory.
	ErrRootNotDirectory = errors.New("source is not a directory")
)

type (
	// RootError reports why a build root cannot be traversed at all.
	// It wraps ErrRootNotFound or ErrRootNotDirectory.
	RootError struct {
		Root string
		Err  error
	}

	// BuildReport describes the outcome of Build.
	BuildReport struct {
		// Root is the absolute path that was traversed.
		Root string
		// Added counts the entries registered in the archive.
		Added int
		// Excluded lists the root-relative paths of skipped directories; "."
		// when root itself matched the rule.
		Excluded []string
		// Loops lists symlinked directories that were not followed because
		// they resolve to a directory already being walked.
		Loops []string
		// Problems holds the entries that could not be read. Each one is an
		// *fs.PathError naming the offending path.
		Problems []error
	}
)

// Error implements the error interface.
func (e *RootError) Error() string {
	return fmt.Sprintf("%s: %v", e.Root, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *RootError) Unwrap() error { return e.Err }

// Partial reports whether some entries were skipped because they could not be read.
func (r *BuildReport) Partial() bool {
	return len(r.Problems) > 0
}

// Err joins the problems into one error, or returns nil when there were none.
func (r *BuildReport) Err() error {
	return errors.Join(r.Problems...)
}

// Build registers every regular file under root in a as a FileResource keyed by
// its root-relative, slash-separated path. The walk is depth-first in lexical
// order. Before descending into a directory, including root itself, its base
// name is tested against rule and a match skips the whole subtree. Symlinks
// are followed; a symlinked directory that resolves to one of its own
// ancestors is recorded in BuildReport.Loops and not descended into.
//
// Build fails fast when root is missing or not a directory. Unreadable
// subdirectories and files are recorded in the report and the walk continues.
func Build(ctx context.Context, a *Archive, root string, rule ExclusionRule) (*BuildReport, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source directory: %w", err)
	}

	info, err := os.Stat(absRoot)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &RootError{Root: absRoot, Err: ErrRootNotFound}
	case err != nil:
		return nil, fmt.Errorf("stat source directory: %w", err)
	case !info.IsDir():
		return nil, &RootError{Root: absRoot, Err: ErrRootNotDirectory}
	}

	report := &BuildReport{Root: absRoot}
	if rule.Excludes(filepath.Base(absRoot)) {
		report.Excluded = append(report.Excluded, ".")
		return report, nil
	}

	w := &walker{ctx: ctx, archive: a, rule: rule, report: report, ancestors: map[string]bool{}}
	if err := w.walk(absRoot, ""); err != nil {
		return report, fmt.Errorf("walk %s: %w", absRoot, err)
	}
	return report, nil
}

// walker carries the state of one Build.
type walker struct {
	ctx     context.Context
	archive *Archive
	rule    ExclusionRule
	report  *BuildReport
	// ancestors holds the resolved paths of the directories being walked.
	ancestors map[string]bool
}

// walk registers the contents of dir under the archive path prefix rel.
func (w *walker) walk(dir, rel string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if rel == "" {
			return err
		}
		w.report.Problems = append(w.report.Problems, asPathError("read", dir, err))
		return nil
	}

	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		w.ancestors[resolved] = true
		defer delete(w.ancestors, resolved)
	}

	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		entryRel := path.Join(rel, entry.Name())

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil {
				// Dangling links have nothing to package.
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			if err := w.dir(p, entryRel, entry); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := w.file(p, entryRel); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) dir(p, rel string, entry fs.DirEntry) error {
	if w.rule.Excludes(entry.Name()) {
		w.report.Excluded = append(w.report.Excluded, rel)
		return nil
	}
	if entry.Type()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			w.report.Problems = append(w.report.Problems, asPathError("readlink", p, err))
			return nil
		}
		if w.ancestors[resolved] {
			w.report.Loops = append(w.report.Loops, rel)
			return nil
		}
	}
	return w.walk(p, rel)
}

func (w *walker) file(p, rel string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		w.report.Problems = append(w.report.Problems, asPathError("open", p, err))
		return nil
	}
	_ = f.Close()

	if err := w.archive.Put(rel, NewFileResource(p)); err != nil {
		return err
	}
	w.report.Added++
	return nil
}

func asPathError(op, p string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr
	}
	return &fs.PathError{Op: op, Path: p, Err: err}
}

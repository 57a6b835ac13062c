// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ManifestPath is the jar manifest location. WriteJar always emits it first.
const ManifestPath = "META-INF/MANIFEST.MF"

// JarOptions controls WriteJar.
type JarOptions struct {
	// Level is the deflate level; zero means flate.DefaultCompression.
	Level int
	// Modified is stamped on every entry. The zero value leaves timestamps unset,
	// which keeps the output reproducible.
	Modified time.Time
}

// WriteJar serializes a as a jar to w. Entries are written in lexical path
// order, except the manifest, which jar readers expect first.
func WriteJar(ctx context.Context, w io.Writer, a *Archive, opts JarOptions) (err error) {
	level := opts.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("finish jar: %w", closeErr)
		}
	}()

	for _, p := range jarOrder(a) {
		if err := ctx.Err(); err != nil {
			return err
		}
		resource, _ := a.Get(p)
		header := &zip.FileHeader{
			Name:     p,
			Method:   zip.Deflate,
			Modified: opts.Modified,
		}
		entry, createErr := zw.CreateHeader(header)
		if createErr != nil {
			return fmt.Errorf("create jar entry %s: %w", p, createErr)
		}
		if _, copyErr := Copy(resource, entry); copyErr != nil {
			return fmt.Errorf("write jar entry %s: %w", p, copyErr)
		}
	}

	return nil
}

// WriteJarFile writes a to a new file at path. A partially written file is
// removed on failure.
func WriteJarFile(ctx context.Context, path string, a *Archive, opts JarOptions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jar: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close jar: %w", closeErr)
		}
		if err != nil {
			err = errors.Join(err, removeIfExists(path))
		}
	}()

	return WriteJar(ctx, f, a, opts)
}

func jarOrder(a *Archive) []string {
	paths := a.Paths()
	if _, ok := a.Get(ManifestPath); !ok {
		return paths
	}
	ordered := make([]string, 0, len(paths))
	ordered = append(ordered, ManifestPath)
	for _, p := range paths {
		if p != ManifestPath {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// ErrInvalidPath is returned when an archive path is empty, absolute or not clean.
var ErrInvalidPath = errors.New("invalid archive path")

type (
	// Archive is a path-addressed collection of resources. Paths always use '/'.
	// An Archive is owned by the component building it and is not safe for
	// concurrent mutation; readers must wait until building has completed.
	Archive struct {
		entries map[string]Resource
	}

	// InvalidPathError is returned when a path cannot be used as an archive key.
	// It wraps ErrInvalidPath for errors.Is() compatibility.
	InvalidPathError struct {
		Path string
	}
)

// New returns an empty Archive.
func New() *Archive {
	return &Archive{entries: make(map[string]Resource)}
}

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid archive path %q", e.Path)
}

// Unwrap returns ErrInvalidPath for errors.Is() compatibility.
func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// Put registers resource under p. A later Put for the same path overwrites the
// earlier one. Backslashes are treated as separators.
func (a *Archive) Put(p string, resource Resource) error {
	normalized, err := normalizePath(p)
	if err != nil {
		return err
	}
	a.entries[normalized] = resource
	return nil
}

// Get returns the resource stored at p.
func (a *Archive) Get(p string) (Resource, bool) {
	r, ok := a.entries[strings.ReplaceAll(p, `\`, "/")]
	return r, ok
}

// Paths returns all entry paths in lexical order.
func (a *Archive) Paths() []string {
	paths := make([]string, 0, len(a.entries))
	for p := range a.entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

func normalizePath(p string) (string, error) {
	slashed := strings.ReplaceAll(p, `\`, "/")
	if slashed == "" || strings.HasPrefix(slashed, "/") || strings.HasSuffix(slashed, "/") {
		return "", &InvalidPathError{Path: p}
	}
	if path.Clean(slashed) != slashed || slashed == ".." || strings.HasPrefix(slashed, "../") {
		return "", &InvalidPathError{Path: p}
	}
	return slashed, nil
}

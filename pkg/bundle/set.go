// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invowk/paxrun/pkg/cueutil"
)

//go:embed bundleset_schema.cue
var bundleSetSchema []byte

type (
	setFile struct {
		StartLevel *int      `json:"start_level"`
		Autostart  *bool     `json:"autostart"`
		Bundles    []setItem `json:"bundles"`
	}

	setItem struct {
		Location   string `json:"location"`
		StartLevel *int   `json:"start_level"`
		Autostart  *bool  `json:"autostart"`
	}
)

// LoadSet reads a CUE bundle set file. Levels and autostart flags fall back
// to the file's own defaults, then to level and autostart. Relative paths
// resolve against the file's directory.
func LoadSet(path string, level StartLevel, autostart bool) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle set: %w", err)
	}
	set, err := cueutil.ParseAndDecode[setFile](bundleSetSchema, data, "#BundleSet", cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}

	if set.StartLevel != nil {
		level = StartLevel(*set.StartLevel)
	}
	if set.Autostart != nil {
		autostart = *set.Autostart
	}

	base := filepath.Dir(path)
	entries := make([]Entry, 0, len(set.Bundles))
	for i, item := range set.Bundles {
		loc := Location(item.Location).Resolve(base)
		l, a := level, autostart
		if item.StartLevel != nil {
			l = StartLevel(*item.StartLevel)
		}
		if item.Autostart != nil {
			a = *item.Autostart
		}
		entry, err := New(loc, l, a)
		if err != nil {
			return nil, fmt.Errorf("%s: bundles[%d]: %w", path, i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

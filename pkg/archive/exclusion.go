// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"fmt"
	"regexp"
)

// DefaultExclusion skips version control and build output directories.
const DefaultExclusion = `\.git|\.svn|CVS|target`

// ExclusionRule decides whether a directory is skipped during Build. It is
// tested against the directory's base name and must match that name entirely.
// The zero value excludes nothing.
type ExclusionRule struct {
	pattern string
	re      *regexp.Regexp
}

// NewExclusion compiles pattern into an ExclusionRule. An empty pattern
// excludes nothing.
func NewExclusion(pattern string) (ExclusionRule, error) {
	if pattern == "" {
		return ExclusionRule{}, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return ExclusionRule{}, fmt.Errorf("compile exclusion %q: %w", pattern, err)
	}
	return ExclusionRule{pattern: pattern, re: re}, nil
}

// MustExclusion is like NewExclusion but panics on an invalid pattern.
func MustExclusion(pattern string) ExclusionRule {
	rule, err := NewExclusion(pattern)
	if err != nil {
		panic(err)
	}
	return rule
}

// Excludes reports whether a directory with the given base name is skipped.
func (r ExclusionRule) Excludes(name string) bool {
	return r.re != nil && r.re.MatchString(name)
}

// String returns the pattern the rule was built from.
func (r ExclusionRule) String() string {
	return r.pattern
}

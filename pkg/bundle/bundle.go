// SPDX-License-Identifier: MPL-2.0

// Package bundle describes the resolved OSGi bundles handed to a framework launch.
package bundle

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultStartLevel is the level of the framework's own default bundles.
const DefaultStartLevel StartLevel = 1

var (
	// ErrInvalidStartLevel is returned when a StartLevel is not a positive integer.
	ErrInvalidStartLevel = errors.New("invalid start level")
	// ErrInvalidLocation is returned when a Location is empty or whitespace-only.
	ErrInvalidLocation = errors.New("invalid bundle location")
)

type (
	// StartLevel orders bundle activation. Lower levels activate earlier.
	StartLevel int

	// InvalidStartLevelError is returned when a StartLevel value is not positive.
	// It wraps ErrInvalidStartLevel for errors.Is() compatibility.
	InvalidStartLevelError struct {
		Value StartLevel
	}

	// Location points at a bundle: a filesystem path or a URL.
	Location string

	// InvalidLocationError is returned when a Location value is empty.
	// It wraps ErrInvalidLocation for errors.Is() compatibility.
	InvalidLocationError struct {
		Value Location
	}

	// Entry is one resolved bundle: where it lives, when it starts, and
	// whether the framework starts it automatically. Entries are values and
	// are never modified after construction.
	Entry struct {
		Location   Location
		StartLevel StartLevel
		Autostart  bool
	}
)

// Error implements the error interface.
func (e *InvalidStartLevelError) Error() string {
	return fmt.Sprintf("invalid start level %d (must be >= 1)", e.Value)
}

// Unwrap returns ErrInvalidStartLevel for errors.Is() compatibility.
func (e *InvalidStartLevelError) Unwrap() error { return ErrInvalidStartLevel }

// IsValid returns whether the StartLevel is a positive integer,
// and a list of validation errors if it is not.
func (l StartLevel) IsValid() (bool, []error) {
	if l < 1 {
		return false, []error{&InvalidStartLevelError{Value: l}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("invalid bundle location %q (must not be empty)", e.Value)
}

// Unwrap returns ErrInvalidLocation for errors.Is() compatibility.
func (e *InvalidLocationError) Unwrap() error { return ErrInvalidLocation }

// IsValid returns whether the Location is non-empty,
// and a list of validation errors if it is not.
func (l Location) IsValid() (bool, []error) {
	if strings.TrimSpace(string(l)) == "" {
		return false, []error{&InvalidLocationError{Value: l}}
	}
	return true, nil
}

// Reference resolves the location to the URL string a framework loads the
// bundle from. URLs are returned unchanged; filesystem paths become absolute
// file URLs with forward slashes.
func (l Location) Reference() (string, error) {
	raw := strings.TrimSpace(string(l))
	if raw == "" {
		return "", &InvalidLocationError{Value: l}
	}
	if isURL(raw) {
		return raw, nil
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("resolve bundle location %s: %w", raw, err)
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		// Windows drive paths: C:/x -> /C:/x
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String(), nil
}

// Resolve joins a relative filesystem location to base. URLs, absolute
// paths and an empty base leave the location unchanged.
func (l Location) Resolve(base string) Location {
	raw := string(l)
	if base == "" || isURL(raw) || filepath.IsAbs(raw) {
		return l
	}
	return Location(filepath.Join(base, raw))
}

// New returns an Entry after validating its location and start level.
func New(location Location, level StartLevel, autostart bool) (Entry, error) {
	var errs []error
	if ok, locErrs := location.IsValid(); !ok {
		errs = append(errs, locErrs...)
	}
	if ok, levelErrs := level.IsValid(); !ok {
		errs = append(errs, levelErrs...)
	}
	if len(errs) > 0 {
		return Entry{}, errors.Join(errs...)
	}
	return Entry{Location: location, StartLevel: level, Autostart: autostart}, nil
}

// Default returns an Entry at DefaultStartLevel that starts automatically.
func Default(location Location) Entry {
	return Entry{Location: location, StartLevel: DefaultStartLevel, Autostart: true}
}

// FromPaths turns plain locations into entries sharing one start level and
// autostart setting, preserving their order.
func FromPaths(locations []string, level StartLevel, autostart bool) ([]Entry, error) {
	entries := make([]Entry, 0, len(locations))
	for _, loc := range locations {
		e, err := New(Location(loc), level, autostart)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// isURL reports whether raw carries a URL scheme. Single letter schemes are
// treated as Windows drive letters.
func isURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && len(u.Scheme) > 1
}

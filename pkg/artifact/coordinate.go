// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// ErrInvalidCoordinate is the sentinel error wrapped by InvalidCoordinateError.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

type (
	// Coordinate identifies an artifact by group, name and version.
	// Equality is structural; Coordinate is usable as a map key.
	Coordinate struct {
		Group   string
		Name    string
		Version string
	}

	// PackageKey is the (group, name) pair of a Coordinate. The resolver keys
	// its "first chosen wins" bookkeeping on it.
	PackageKey struct {
		Group string
		Name  string
	}

	// InvalidCoordinateError is returned when a coordinate string or value
	// does not have three non-empty components.
	InvalidCoordinateError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidCoordinate so callers can use errors.Is for programmatic detection.
func (e *InvalidCoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// ParseCoordinate parses the "group:name:version" form.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Coordinate{}, &InvalidCoordinateError{
			Value:  s,
			Reason: fmt.Sprintf("expected group:name:version, got %d component(s)", len(parts)),
		}
	}

	c := Coordinate{Group: parts[0], Name: parts[1], Version: parts[2]}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// MustParseCoordinate is like ParseCoordinate but panics on error.
// Intended for tests and package-level linked unit declarations.
func MustParseCoordinate(s string) Coordinate {
	c, err := ParseCoordinate(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate returns nil if every component is non-empty and free of
// separators and whitespace.
func (c Coordinate) Validate() error {
	for _, part := range []struct{ label, value string }{
		{"group", c.Group},
		{"name", c.Name},
		{"version", c.Version},
	} {
		if part.value == "" {
			return &InvalidCoordinateError{Value: c.String(), Reason: part.label + " must not be empty"}
		}
		if strings.ContainsRune(part.value, ':') {
			return &InvalidCoordinateError{Value: c.String(), Reason: part.label + " must not contain ':'"}
		}
		if strings.IndexFunc(part.value, unicode.IsSpace) >= 0 {
			return &InvalidCoordinateError{Value: c.String(), Reason: part.label + " must not contain whitespace"}
		}
		if part.value == "." || part.value == ".." || strings.ContainsAny(part.value, `/\`) {
			return &InvalidCoordinateError{Value: c.String(), Reason: part.label + " must not contain path elements"}
		}
	}
	// Groups map to nested directories, so every dot-separated segment must
	// be non-empty for the cache path to stay unique.
	if slices.Contains(strings.Split(c.Group, "."), "") {
		return &InvalidCoordinateError{Value: c.String(), Reason: "group must not have empty dot-separated segments"}
	}
	return nil
}

// String returns the "group:name:version" form.
func (c Coordinate) String() string {
	return c.Group + ":" + c.Name + ":" + c.Version
}

// Key returns the (group, name) pair that identifies the package regardless of version.
func (c Coordinate) Key() PackageKey {
	return PackageKey{Group: c.Group, Name: c.Name}
}

// FileBase returns "<name>-<version>", the base file name used by both
// remote repositories and the local cache.
func (c Coordinate) FileBase() string {
	return c.Name + "-" + c.Version
}

// GroupPath returns the group with dots replaced by slashes
// (e.g. "org.example" -> "org/example").
func (c Coordinate) GroupPath() string {
	return strings.ReplaceAll(c.Group, ".", "/")
}

// String returns the "group:name" form.
func (k PackageKey) String() string {
	return k.Group + ":" + k.Name
}

// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultExtension is the file extension of packaged artifacts.
	DefaultExtension = "zip"
	// PluginExtension is the file extension of Go plugin bundles.
	PluginExtension = "so"
)

// ErrInvalidChecksum is the sentinel error wrapped by InvalidChecksumError.
var ErrInvalidChecksum = errors.New("invalid checksum")

type (
	// Checksum is a lowercase hex-encoded SHA-256 digest. The zero value means
	// "no checksum published".
	Checksum string

	// InvalidChecksumError is returned when a Checksum is not 64 hex characters.
	InvalidChecksumError struct {
		Value Checksum
	}

	// Artifact is a materialized Coordinate: a complete, immutable file in the local cache.
	Artifact struct {
		Coordinate Coordinate
		// Path is the absolute path of the cached file.
		Path string
		// Repository is the id of the repository the file was fetched from
		// during this run; empty when it was already cached.
		Repository string
	}

	// Closure is the ordered, deduplicated, transitive set of artifacts.
	Closure []Artifact
)

// Error implements the error interface.
func (e *InvalidChecksumError) Error() string {
	return fmt.Sprintf("invalid checksum %q (must be 64 hex characters)", e.Value)
}

// Unwrap returns ErrInvalidChecksum so callers can use errors.Is for programmatic detection.
func (e *InvalidChecksumError) Unwrap() error { return ErrInvalidChecksum }

// ParseChecksum accepts the common "<hex>  <file>" checksum file layout and
// returns the normalized digest.
func ParseChecksum(text string) (Checksum, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", &InvalidChecksumError{Value: Checksum(text)}
	}
	c := Checksum(strings.ToLower(fields[0]))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// SumBytes returns the checksum of data.
func SumBytes(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return Checksum(hex.EncodeToString(sum[:]))
}

// Validate returns nil if the checksum is empty or a valid SHA-256 hex digest.
func (c Checksum) Validate() error {
	if c == "" {
		return nil
	}
	if len(c) != sha256.Size*2 {
		return &InvalidChecksumError{Value: c}
	}
	if _, err := hex.DecodeString(string(c)); err != nil {
		return &InvalidChecksumError{Value: c}
	}
	return nil
}

// String returns the hex digest.
func (c Checksum) String() string { return string(c) }

// String returns "group:name:version -> path".
func (a Artifact) String() string {
	return a.Coordinate.String() + " -> " + a.Path
}

// Paths returns the cached file paths in closure order.
func (c Closure) Paths() []string {
	paths := make([]string, 0, len(c))
	for _, a := range c {
		paths = append(paths, a.Path)
	}
	return paths
}

// Coordinates returns the coordinates in closure order.
func (c Closure) Coordinates() []Coordinate {
	coords := make([]Coordinate, 0, len(c))
	for _, a := range c {
		coords = append(coords, a.Coordinate)
	}
	return coords
}

// Contains reports whether the closure holds exactly this coordinate.
func (c Closure) Contains(coord Coordinate) bool {
	for _, a := range c {
		if a.Coordinate == coord {
			return true
		}
	}
	return false
}

// Lookup returns the artifact chosen for the (group, name) pair, if any.
func (c Closure) Lookup(key PackageKey) (Artifact, bool) {
	for _, a := range c {
		if a.Coordinate.Key() == key {
			return a, true
		}
	}
	return Artifact{}, false
}

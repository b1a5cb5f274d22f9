// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// DescriptorPath is the archive entry holding an artifact's own metadata.
const DescriptorPath = "BOOTSTRAP-INF/artifact.json"

// DescriptorExtension is the extension of the descriptor a repository
// publishes next to an artifact that cannot embed one, such as a plugin.
// The document has the same shape as the embedded one.
const DescriptorExtension = "descriptor.json"

// maxDescriptorSize bounds the size of a descriptor.
const maxDescriptorSize = 1 << 20

type (
	// DescriptorReader extracts the declared dependencies of a staged artifact.
	DescriptorReader interface {
		ReadDescriptor(coord artifact.Coordinate, path string) ([]artifact.Dependency, error)
	}

	// DescriptorFunc adapts a function to the DescriptorReader interface.
	DescriptorFunc func(coord artifact.Coordinate, path string) ([]artifact.Dependency, error)

	// ZipDescriptorReader reads DescriptorPath from zip artifacts. Files that
	// are not zip archives, and archives without a descriptor, report
	// ErrNoDescriptor.
	ZipDescriptorReader struct{}

	// Descriptor is the JSON document stored at DescriptorPath.
	Descriptor struct {
		Coordinate   string            `json:"coordinate,omitempty"`
		Dependencies []DescriptorEntry `json:"dependencies"`
	}

	// DescriptorEntry is one declared dependency.
	DescriptorEntry struct {
		Coordinate string `json:"coordinate"`
		Scope      string `json:"scope,omitempty"`
		Optional   bool   `json:"optional,omitempty"`
	}
)

// ReadDescriptor calls f.
func (f DescriptorFunc) ReadDescriptor(coord artifact.Coordinate, path string) ([]artifact.Dependency, error) {
	return f(coord, path)
}

// ReadDescriptor implements DescriptorReader.
func (ZipDescriptorReader) ReadDescriptor(coord artifact.Coordinate, path string) ([]artifact.Dependency, error) {
	if strings.HasSuffix(path, "."+artifact.PluginExtension) {
		return nil, ErrNoDescriptor
	}

	zr, err := zip.OpenReader(path)
	if errors.Is(err, zip.ErrFormat) {
		return nil, ErrNoDescriptor
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer zr.Close()

	f, err := zr.Open(DescriptorPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDescriptor
	}
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrInvalidDescriptor, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDescriptorSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrInvalidDescriptor, path, err)
	}
	if len(data) > maxDescriptorSize {
		return nil, fmt.Errorf("%w in %s: descriptor exceeds %d bytes", ErrInvalidDescriptor, path, maxDescriptorSize)
	}
	return ParseDescriptor(coord, data)
}

// ParseDescriptor decodes a descriptor document declared by coord.
// A descriptor naming another coordinate is rejected.
func ParseDescriptor(coord artifact.Coordinate, data []byte) ([]artifact.Dependency, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrInvalidDescriptor, coord, err)
	}
	if d.Coordinate != "" && d.Coordinate != coord.String() {
		return nil, fmt.Errorf("%w for %s: descriptor declares %q", ErrInvalidDescriptor, coord, d.Coordinate)
	}

	deps := make([]artifact.Dependency, 0, len(d.Dependencies))
	for i, e := range d.Dependencies {
		dc, err := artifact.ParseCoordinate(e.Coordinate)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: dependencies[%d]: %w", ErrInvalidDescriptor, coord, i, err)
		}
		scope := artifact.Scope(e.Scope).Normalize()
		if err := scope.Validate(); err != nil {
			return nil, fmt.Errorf("%w for %s: dependencies[%d]: %w", ErrInvalidDescriptor, coord, i, err)
		}
		deps = append(deps, artifact.Dependency{Coordinate: dc, Scope: scope, Optional: e.Optional})
	}
	return deps, nil
}

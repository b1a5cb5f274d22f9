// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// ErrCorruptSidecar is returned by ReadDeps for an unreadable dependency sidecar.
var ErrCorruptSidecar = errors.New("corrupt dependency sidecar")

type (
	// depsFile is the JSON form of the ".deps" sidecar.
	depsFile struct {
		Coordinate   string     `json:"coordinate"`
		Dependencies []depEntry `json:"dependencies"`
	}

	depEntry struct {
		Coordinate string `json:"coordinate"`
		Scope      string `json:"scope,omitempty"`
		Optional   bool   `json:"optional,omitempty"`
	}
)

// ReadDeps returns the dependency list recorded for coord. ok is false when no
// sidecar exists. A sidecar that cannot be decoded, or that was recorded for a
// different coordinate, yields an error wrapping ErrCorruptSidecar.
func (l *Layout) ReadDeps(coord artifact.Coordinate) (deps []artifact.Dependency, ok bool, err error) {
	path := l.DepsPath(coord)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read dependency sidecar: %w", err)
	}

	var file depsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, false, fmt.Errorf("%w %s: %w", ErrCorruptSidecar, path, err)
	}
	if file.Coordinate != coord.String() {
		return nil, false, fmt.Errorf("%w %s: recorded for %q", ErrCorruptSidecar, path, file.Coordinate)
	}

	deps = make([]artifact.Dependency, 0, len(file.Dependencies))
	for _, entry := range file.Dependencies {
		dc, err := artifact.ParseCoordinate(entry.Coordinate)
		if err != nil {
			return nil, false, fmt.Errorf("%w %s: %w", ErrCorruptSidecar, path, err)
		}
		scope := artifact.Scope(entry.Scope).Normalize()
		if err := scope.Validate(); err != nil {
			return nil, false, fmt.Errorf("%w %s: %w", ErrCorruptSidecar, path, err)
		}
		deps = append(deps, artifact.Dependency{Coordinate: dc, Scope: scope, Optional: entry.Optional})
	}
	return deps, true, nil
}

// WriteDeps atomically records coord's dependency list.
func (l *Layout) WriteDeps(coord artifact.Coordinate, deps []artifact.Dependency) error {
	file := depsFile{
		Coordinate:   coord.String(),
		Dependencies: make([]depEntry, 0, len(deps)),
	}
	for _, d := range deps {
		file.Dependencies = append(file.Dependencies, depEntry{
			Coordinate: d.Coordinate.String(),
			Scope:      string(d.Scope.Normalize()),
			Optional:   d.Optional,
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dependency sidecar: %w", err)
	}
	return writeAtomic(l.DepsPath(coord), append(data, '\n'))
}

// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
)

// Scopes understood in artifact descriptors. Only ScopeCompile edges are traversed.
const (
	ScopeCompile  Scope = "compile"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeProvided Scope = "provided"
	ScopeSystem   Scope = "system"
)

// ErrInvalidScope is the sentinel error wrapped by InvalidScopeError.
var ErrInvalidScope = errors.New("invalid scope")

type (
	// Scope indicates when a dependency edge is required.
	// The empty scope is treated as ScopeCompile.
	Scope string

	// InvalidScopeError is returned when a Scope is not one of the known values.
	InvalidScopeError struct {
		Value Scope
	}

	// Dependency is one edge of the dependency graph as declared by an artifact.
	Dependency struct {
		Coordinate Coordinate
		Scope      Scope
		Optional   bool
	}
)

// Error implements the error interface.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope %q (expected compile, runtime, test, provided or system)", e.Value)
}

// Unwrap returns ErrInvalidScope so callers can use errors.Is for programmatic detection.
func (e *InvalidScopeError) Unwrap() error { return ErrInvalidScope }

// Normalize maps the empty scope to ScopeCompile.
func (s Scope) Normalize() Scope {
	if s == "" {
		return ScopeCompile
	}
	return s
}

// Validate returns nil if the scope is known (or empty).
func (s Scope) Validate() error {
	switch s.Normalize() {
	case ScopeCompile, ScopeRuntime, ScopeTest, ScopeProvided, ScopeSystem:
		return nil
	default:
		return &InvalidScopeError{Value: s}
	}
}

// String returns the normalized scope name.
func (s Scope) String() string { return string(s.Normalize()) }

// Traversable reports whether the resolver follows this edge: compile scope and not optional.
func (d Dependency) Traversable() bool {
	return d.Scope.Normalize() == ScopeCompile && !d.Optional
}

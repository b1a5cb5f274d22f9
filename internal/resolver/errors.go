// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

var (
	// ErrUnresolvableArtifact is the sentinel error wrapped by UnresolvableArtifactError.
	ErrUnresolvableArtifact = errors.New("unresolvable artifact")

	// ErrResolverLimitExceeded is the sentinel error wrapped by LimitExceededError.
	ErrResolverLimitExceeded = errors.New("resolver limit exceeded")

	// ErrInvalidDescriptor is returned when an artifact embeds a descriptor
	// that cannot be read.
	ErrInvalidDescriptor = errors.New("invalid artifact descriptor")

	// ErrNoDescriptor is returned by a DescriptorReader when the artifact
	// carries no descriptor of its own.
	ErrNoDescriptor = errors.New("artifact embeds no descriptor")
)

type (
	// UnresolvableArtifactError reports a coordinate that no configured
	// repository holds.
	UnresolvableArtifactError struct {
		Coordinate artifact.Coordinate
		// Repositories lists the ids that were consulted, in order.
		Repositories []string
		// Err joins the per-repository "not in repository" answers.
		Err error
	}

	// LimitExceededError reports that the traversal backstop fired.
	LimitExceededError struct {
		Limit int
		// Coordinate is the coordinate that would have exceeded the limit.
		Coordinate artifact.Coordinate
	}
)

// Error implements the error interface.
func (e *UnresolvableArtifactError) Error() string {
	return fmt.Sprintf("unresolvable artifact %s: not found in any repository [%s]",
		e.Coordinate, strings.Join(e.Repositories, ", "))
}

// Unwrap returns ErrUnresolvableArtifact and the per-repository answers.
func (e *UnresolvableArtifactError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvableArtifact}
	}
	return []error{ErrUnresolvableArtifact, e.Err}
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("resolver limit exceeded: more than %d artifacts traversed (at %s)", e.Limit, e.Coordinate)
}

// Unwrap returns ErrResolverLimitExceeded so callers can use errors.Is for programmatic detection.
func (e *LimitExceededError) Unwrap() error { return ErrResolverLimitExceeded }

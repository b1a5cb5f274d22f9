// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

type (
	// Mux dispatches each fetch to the transport registered for the
	// repository URL scheme.
	Mux struct {
		schemes map[string]Transport
	}

	// deadline bounds the total duration of every fetch.
	deadline struct {
		next    Transport
		timeout time.Duration
	}
)

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{schemes: make(map[string]Transport)}
}

// NewDefaultMux returns a Mux serving http, https and file repositories.
// S3 must be registered separately because it needs endpoint settings.
func NewDefaultMux(sink Sink, opts ...HTTPOption) *Mux {
	h := NewHTTP(append([]HTTPOption{WithSink(sink)}, opts...)...)
	return NewMux().
		Handle("http", h).
		Handle("https", h).
		Handle("file", NewFile(sink))
}

// Handle registers t for scheme and returns m for chaining.
func (m *Mux) Handle(scheme string, t Transport) *Mux {
	m.schemes[strings.ToLower(scheme)] = t
	return m
}

// Fetch implements Transport.
func (m *Mux) Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error) {
	scheme := repo.Scheme()
	t, ok := m.schemes[scheme]
	if !ok {
		return "", &Error{Repository: repo, Coordinate: coord, Err: fmt.Errorf("unsupported repository scheme %q", scheme)}
	}
	return t.Fetch(ctx, repo, coord, ext, w)
}

// Deadline wraps next so every fetch must complete within timeout.
// Exceeding it yields an *Error wrapping context.DeadlineExceeded.
// A non-positive timeout returns next unchanged.
func Deadline(next Transport, timeout time.Duration) Transport {
	if timeout <= 0 {
		return next
	}
	return &deadline{next: next, timeout: timeout}
}

func (d *deadline) Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	sum, err := d.next.Fetch(ctx, repo, coord, ext, w)
	if err == nil {
		return sum, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &Error{
			Repository: repo,
			Coordinate: coord,
			Err:        fmt.Errorf("exceeded %s deadline: %w", d.timeout, context.DeadlineExceeded),
		}
	}
	return "", err
}

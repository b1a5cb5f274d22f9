// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

const (
	// DepsExtension is the extension of the transitive dependency sidecar.
	DepsExtension = "deps"
	// ChecksumExtension is appended to an artifact file name for its digest sidecar.
	ChecksumExtension = "sha256"

	tempSuffix = ".part"
	dirPerm    = 0o755
	filePerm   = 0o644
)

// ErrIntegrity is the sentinel error wrapped by IntegrityError.
var ErrIntegrity = errors.New("artifact integrity check failed")

type (
	// Layout maps coordinates to paths below a cache root and stages
	// artifacts into it.
	Layout struct {
		root   string
		logger *slog.Logger
		// publishing holds one *sync.Mutex per final path.
		publishing sync.Map
	}

	// Option configures a Layout.
	Option func(*Layout)

	// Producer writes the complete artifact blob to w. It returns the checksum
	// published by the remote, or "" when none is known.
	Producer func(ctx context.Context, w io.Writer) (artifact.Checksum, error)

	// IntegrityError reports a cached or freshly produced file that failed
	// verification.
	IntegrityError struct {
		Coordinate artifact.Coordinate
		Path       string
		Expected   artifact.Checksum
		Actual     artifact.Checksum
		Reason     string
	}
)

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("integrity check failed for %s (%s): %s", e.Coordinate, e.Path, e.Reason)
	}
	return fmt.Sprintf("integrity check failed for %s (%s): expected sha256 %s, got %s",
		e.Coordinate, e.Path, e.Expected, e.Actual)
}

// Unwrap returns ErrIntegrity so callers can use errors.Is for programmatic detection.
func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layout) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Layout rooted at root. The root is made absolute but not
// created; directories are created lazily by Stage and WriteDeps.
func New(root string, opts ...Option) (*Layout, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("cache root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root %q: %w", root, err)
	}

	l := &Layout{
		root:   abs,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the absolute cache root.
func (l *Layout) Root() string { return l.root }

// Dir returns the directory holding every file of coord.
func (l *Layout) Dir(coord artifact.Coordinate) string {
	return filepath.Join(l.root, filepath.FromSlash(coord.GroupPath()), coord.Name, coord.Version)
}

// Locate returns the final path of coord's artifact with extension ext
// (artifact.DefaultExtension when empty). It performs no I/O.
func (l *Layout) Locate(coord artifact.Coordinate, ext string) string {
	return filepath.Join(l.Dir(coord), coord.FileBase()+"."+normalizeExt(ext))
}

// DepsPath returns the path of coord's dependency sidecar.
func (l *Layout) DepsPath(coord artifact.Coordinate) string {
	return filepath.Join(l.Dir(coord), coord.FileBase()+"."+DepsExtension)
}

// ChecksumPath returns the path of the digest sidecar of coord's artifact.
func (l *Layout) ChecksumPath(coord artifact.Coordinate, ext string) string {
	return l.Locate(coord, ext) + "." + ChecksumExtension
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return artifact.DefaultExtension
	}
	return ext
}

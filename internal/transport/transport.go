// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

var (
	// ErrNotInRepository is the sentinel error wrapped by NotInRepositoryError.
	ErrNotInRepository = errors.New("artifact not in repository")

	// ErrTransport is the sentinel error wrapped by Error.
	ErrTransport = errors.New("transport error")
)

type (
	// Transport fetches one artifact from one repository.
	//
	// Fetch returns once w has received the complete blob. The returned
	// checksum is the digest published by the repository, or "" when the
	// repository publishes none.
	Transport interface {
		Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error)
	}

	// Func adapts a function to the Transport interface.
	Func func(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error)

	// NotInRepositoryError reports that the repository positively answered
	// "absent" for the coordinate.
	NotInRepositoryError struct {
		Repository artifact.Repository
		Coordinate artifact.Coordinate
	}

	// Error reports any fetch failure other than NotInRepositoryError.
	Error struct {
		Repository artifact.Repository
		Coordinate artifact.Coordinate
		// Status is the remote status code when one was received.
		Status int
		Err    error
	}
)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error) {
	return f(ctx, repo, coord, ext, w)
}

// Error implements the error interface.
func (e *NotInRepositoryError) Error() string {
	return fmt.Sprintf("%s not found in repository %s", e.Coordinate, e.Repository.ID)
}

// Unwrap returns ErrNotInRepository so callers can use errors.Is for programmatic detection.
func (e *NotInRepositoryError) Unwrap() error { return ErrNotInRepository }

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("failed to fetch ")
	b.WriteString(e.Coordinate.String())
	if e.Repository.ID != "" {
		b.WriteString(" from ")
		b.WriteString(e.Repository.ID)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns ErrTransport and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// ArtifactPath returns the repository-relative path of coord's blob.
func ArtifactPath(coord artifact.Coordinate, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = artifact.DefaultExtension
	}
	return path.Join(coord.GroupPath(), coord.Name, coord.Version, coord.FileBase()+"."+ext)
}

// ArtifactURL joins the repository base URL with ArtifactPath.
func ArtifactURL(repo artifact.Repository, coord artifact.Coordinate, ext string) (*url.URL, error) {
	base, err := url.Parse(repo.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository url %q: %w", repo.URL, err)
	}
	return base.JoinPath(ArtifactPath(coord, ext)), nil
}

// copyCtx copies src to dst, aborting between chunks when ctx is done.
func copyCtx(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

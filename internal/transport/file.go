// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// File serves artifacts from a local directory tree addressed by a file://
// base URL, typically a mirror on a shared volume.
type File struct {
	sink Sink
}

// NewFile returns a File transport reporting to sink (nil for none).
func NewFile(sink Sink) *File {
	return &File{sink: sinkOrNop(sink)}
}

// Fetch implements Transport.
func (f *File) Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error) {
	root, err := fileRoot(repo.URL)
	if err != nil {
		return "", &Error{Repository: repo, Coordinate: coord, Err: err}
	}
	path := filepath.Join(root, filepath.FromSlash(ArtifactPath(coord, ext)))

	ev := Event{Repository: repo, Coordinate: coord, Resource: path, Total: -1, Started: time.Now()}
	f.sink.Started(ev)

	src, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		err := &NotInRepositoryError{Repository: repo, Coordinate: coord}
		f.sink.Failed(ev, err)
		return "", err
	}
	if err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		f.sink.Failed(ev, err)
		return "", err
	}
	defer src.Close()

	if info, err := src.Stat(); err == nil {
		if info.IsDir() {
			err := &NotInRepositoryError{Repository: repo, Coordinate: coord}
			f.sink.Failed(ev, err)
			return "", err
		}
		ev.Total = info.Size()
	}

	pw := newProgressWriter(w, f.sink, ev)
	if _, err := copyCtx(ctx, pw, src); err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		f.sink.Failed(pw.ev, err)
		return "", err
	}

	sum, err := readChecksumFile(path + ".sha256")
	if err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		f.sink.Failed(pw.ev, err)
		return "", err
	}
	f.sink.Succeeded(pw.ev)
	return sum, nil
}

func fileRoot(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid repository url %q: %w", raw, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file url: %q", raw)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file hosts are not supported: %q", raw)
	}
	return filepath.FromSlash(u.Path), nil
}

func readChecksumFile(path string) (artifact.Checksum, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(data) > maxChecksumSize {
		return "", fmt.Errorf("checksum file %s too large", path)
	}
	return artifact.ParseChecksum(string(data))
}

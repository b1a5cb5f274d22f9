// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bootstrap-loader/bootstrap-loader/internal/transport"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// Stage returns the path of a complete artifact for coord, producing it when
// the final path is absent or fails verification.
//
// The producer writes into an exclusive temp file in the final directory.
// When the producer succeeds and its blob verifies, the temp file is moved
// into place, unless a concurrent writer already published a complete file,
// in which case the temp file is discarded and the winner's path returned.
// Temp files never outlive a failed Stage.
//
// Producer errors are returned unchanged when they already carry a transport
// kind (transport.ErrNotInRepository, transport.ErrTransport) or are context
// errors; any other producer failure is wrapped in a *transport.Error.
func (l *Layout) Stage(ctx context.Context, coord artifact.Coordinate, ext string, produce Producer) (string, error) {
	if err := coord.Validate(); err != nil {
		return "", err
	}
	final := l.Locate(coord, ext)

	switch err := l.Verify(coord, ext); {
	case err == nil:
		return final, nil
	case errors.Is(err, ErrIntegrity):
		l.logger.Warn("cached artifact failed verification, fetching again", "coordinate", coord.String(), "error", err)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern(filepath.Base(final)))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(filePerm); err != nil {
		return "", fmt.Errorf("failed to chmod temp file: %w", err)
	}

	hasher := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher)}
	expected, err := produce(ctx, counter)
	if err != nil {
		return "", wrapProducerError(coord, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	actual := artifact.Checksum(hex.EncodeToString(hasher.Sum(nil)))
	if counter.n == 0 {
		return "", &IntegrityError{Coordinate: coord, Path: final, Reason: "producer wrote an empty blob"}
	}
	if err := expected.Validate(); err != nil {
		return "", &IntegrityError{Coordinate: coord, Path: final, Reason: err.Error()}
	}
	if expected != "" && expected != actual {
		return "", &IntegrityError{Coordinate: coord, Path: final, Expected: expected, Actual: actual}
	}

	published, err := l.publish(coord, ext, tmpName, actual)
	if err != nil {
		return "", err
	}
	committed = published
	if published {
		l.logger.Debug("artifact staged", "coordinate", coord.String(), "path", final, "bytes", counter.n)
	} else {
		l.logger.Debug("artifact published concurrently, discarding local copy", "coordinate", coord.String())
	}
	return final, nil
}

// publish moves the verified temp file to coord's final path and records its
// digest. It reports false, leaving the temp file in place, when another
// writer already published a complete artifact; the winner's blob and
// sidecar are never replaced.
func (l *Layout) publish(coord artifact.Coordinate, ext, tmpName string, sum artifact.Checksum) (bool, error) {
	final := l.Locate(coord, ext)
	mu, _ := l.publishing.LoadOrStore(final, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	sidecar := l.ChecksumPath(coord, ext)
	line := []byte(fmt.Sprintf("%s  %s\n", sum, filepath.Base(final)))

	switch err := l.Verify(coord, ext); {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		// Claim the empty slot with a hard link so a writer in another
		// process cannot be overwritten. A sidecar left by a deleted blob
		// goes first; a final file without a sidecar still verifies.
		if err := os.Remove(sidecar); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("failed to remove stale checksum sidecar: %w", err)
		}
		switch err := os.Link(tmpName, final); {
		case err == nil:
			_ = os.Remove(tmpName)
			if err := writeAtomic(sidecar, line); err != nil {
				return false, err
			}
			return true, nil
		case errors.Is(err, fs.ErrExist):
			return false, nil
		}
		// Hard links are unsupported here; fall back to replacing.
	case errors.Is(err, ErrIntegrity):
	default:
		return false, err
	}

	// Corrupt entry: the new sidecar goes first so a visible final file
	// always has its digest.
	if err := writeAtomic(sidecar, line); err != nil {
		return false, err
	}
	if err := os.Rename(tmpName, final); err != nil {
		return false, fmt.Errorf("failed to publish %s: %w", final, err)
	}
	return true, nil
}

// Verify reports whether coord's final artifact is complete: a non-empty
// regular file whose SHA-256 matches its digest sidecar when one exists.
// A missing file yields an error matching fs.ErrNotExist; a file that exists
// but fails verification yields an *IntegrityError.
func (l *Layout) Verify(coord artifact.Coordinate, ext string) error {
	final := l.Locate(coord, ext)
	info, err := os.Stat(final)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return &IntegrityError{Coordinate: coord, Path: final, Reason: "not a regular file"}
	}
	if info.Size() == 0 {
		return &IntegrityError{Coordinate: coord, Path: final, Reason: "empty file"}
	}

	sidecar, err := os.ReadFile(l.ChecksumPath(coord, ext))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read checksum sidecar: %w", err)
	}
	expected, err := artifact.ParseChecksum(string(sidecar))
	if err != nil {
		return &IntegrityError{Coordinate: coord, Path: final, Reason: "unreadable checksum sidecar: " + err.Error()}
	}

	actual, err := sumFile(final)
	if err != nil {
		return err
	}
	if actual != expected {
		return &IntegrityError{Coordinate: coord, Path: final, Expected: expected, Actual: actual}
	}
	return nil
}

func wrapProducerError(coord artifact.Coordinate, err error) error {
	switch {
	case errors.Is(err, transport.ErrNotInRepository),
		errors.Is(err, transport.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &transport.Error{Coordinate: coord, Err: err}
	}
}

func sumFile(path string) (artifact.Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return artifact.Checksum(hex.EncodeToString(h.Sum(nil))), nil
}

// writeAtomic publishes data at path with the same temp+rename protocol as Stage.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern(filepath.Base(path)))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}
	return nil
}

// tempPattern returns the os.CreateTemp pattern for base. Temp files are
// hidden and carry the ".part" suffix so List skips them and Clean finds them.
func tempPattern(base string) string {
	return "." + base + ".*" + tempSuffix
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

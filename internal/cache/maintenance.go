// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// Entry is a complete artifact found in the cache.
type Entry struct {
	Coordinate artifact.Coordinate
	Extension  string
	Path       string
	Size       int64
	ModTime    time.Time
}

// List walks the cache and returns every complete artifact, sorted by
// coordinate and extension. Temp files, sidecars and files that fail
// verification are skipped. A missing root yields an empty list.
func (l *Layout) List() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == l.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		coord, ext, ok := l.parsePath(path)
		if !ok || ext == DepsExtension || strings.HasSuffix(ext, "."+ChecksumExtension) {
			return nil
		}
		if l.Verify(coord, ext) != nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Coordinate: coord,
			Extension:  ext,
			Path:       path,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cache %s: %w", l.root, err)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := strings.Compare(a.Coordinate.String(), b.Coordinate.String()); c != 0 {
			return c
		}
		return strings.Compare(a.Extension, b.Extension)
	})
	return entries, nil
}

// parsePath recovers the coordinate and extension from a file path below the
// root: <group...>/<name>/<version>/<name>-<version>.<ext>.
func (l *Layout) parsePath(path string) (artifact.Coordinate, string, bool) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return artifact.Coordinate{}, "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 4 {
		return artifact.Coordinate{}, "", false
	}

	n := len(parts)
	coord := artifact.Coordinate{
		Group:   strings.Join(parts[:n-3], "."),
		Name:    parts[n-3],
		Version: parts[n-2],
	}
	ext, found := strings.CutPrefix(parts[n-1], coord.FileBase()+".")
	if !found || ext == "" || coord.Validate() != nil {
		return artifact.Coordinate{}, "", false
	}
	return coord, ext, true
}

// Clean removes temp files left behind by interrupted writers that are older
// than maxAge, and returns the removed paths. Recent temp files may belong to
// a live writer and are kept.
func (l *Layout) Clean(maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)
	var removed []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == l.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), ".") || !strings.HasSuffix(d.Name(), tempSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean cache %s: %w", l.root, err)
	}
	l.logger.Debug("cache cleaned", "removed", len(removed))
	return removed, nil
}

// Purge removes the whole cache tree.
func (l *Layout) Purge() error {
	if err := os.RemoveAll(l.root); err != nil {
		return fmt.Errorf("failed to purge cache %s: %w", l.root, err)
	}
	return nil
}

// Temps returns the temp files currently present in the cache, regardless of age.
func (l *Layout) Temps() ([]string, error) {
	var temps []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == l.root {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), ".") && strings.HasSuffix(d.Name(), tempSuffix) {
			temps = append(temps, path)
		}
		return nil
	})
	return temps, err
}

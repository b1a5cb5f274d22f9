// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// ExportsSymbol is the variable a Go plugin artifact must export:
//
//	var Exports = []isolation.Symbol{ ... }
const ExportsSymbol = "Exports"

// ErrOpen is the sentinel error wrapped by OpenError.
var ErrOpen = errors.New("failed to open library")

type (
	// Library is one loaded artifact of the closure, or the application bundle.
	Library struct {
		// Name is the coordinate string, or the bundle name.
		Name string
		// Path is the cached file, empty for linked units and bundles.
		Path string
		// Kind records how the library was materialized.
		Kind LibraryKind

		table *Table
	}

	// LibraryKind describes where a Library's symbols came from.
	LibraryKind string

	// PluginOpener loads the exports of a plugin file.
	PluginOpener func(path string) ([]Symbol, error)

	// Linker maps artifacts to libraries. Units compiled into the binary are
	// registered with Link; other artifacts are opened as Go plugins when
	// they carry the plugin extension.
	Linker struct {
		mu     sync.RWMutex
		units  map[string][]Symbol
		opener PluginOpener
	}

	// OpenError reports an artifact that could not be turned into a library.
	OpenError struct {
		Artifact artifact.Artifact
		Err      error
	}
)

const (
	// KindLinked is a unit compiled into the binary.
	KindLinked LibraryKind = "linked"
	// KindPlugin is a Go plugin opened at run time.
	KindPlugin LibraryKind = "plugin"
	// KindResource is an artifact without symbols.
	KindResource LibraryKind = "resource"
	// KindBundle is the application's own bundle.
	KindBundle LibraryKind = "bundle"
)

// DefaultLinker is the process-wide linker used by Link.
var DefaultLinker = NewLinker()

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s (%s): %v", e.Artifact.Coordinate, e.Artifact.Path, e.Err)
}

// Unwrap returns ErrOpen and the cause.
func (e *OpenError) Unwrap() []error { return []error{ErrOpen, e.Err} }

// Lookup implements Namespace.
func (l *Library) Lookup(name string) (*Symbol, bool) { return l.table.Lookup(name) }

// Names returns the library's exported names.
func (l *Library) Names() []string { return l.table.Names() }

// String returns "name [kind]".
func (l *Library) String() string { return l.Name + " [" + string(l.Kind) + "]" }

// NewLinker returns an empty linker that opens plugins with the standard
// plugin package.
func NewLinker() *Linker {
	return &Linker{
		units:  make(map[string][]Symbol),
		opener: openPlugin,
	}
}

// WithOpener replaces the plugin opener and returns l.
func (l *Linker) WithOpener(open PluginOpener) *Linker {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opener = open
	return l
}

// Link registers the exports of the unit identified by coord
// ("group:name:version"). Linking the same coordinate again appends exports.
// It panics on a malformed coordinate, like a duplicate flag registration.
func (l *Linker) Link(coord string, exports ...Symbol) {
	c := artifact.MustParseCoordinate(coord)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.units[c.String()] = append(l.units[c.String()], exports...)
}

// Link registers a unit with DefaultLinker. It is intended to be called from
// package init functions.
func Link(coord string, exports ...Symbol) {
	DefaultLinker.Link(coord, exports...)
}

// Linked reports whether coord has a linked unit.
func (l *Linker) Linked(coord artifact.Coordinate) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.units[coord.String()]
	return ok
}

// Open returns the library for a resolved artifact.
func (l *Linker) Open(a artifact.Artifact) (*Library, error) {
	l.mu.RLock()
	exports, linked := l.units[a.Coordinate.String()]
	opener := l.opener
	l.mu.RUnlock()

	name := a.Coordinate.String()
	switch {
	case linked:
		return &Library{Name: name, Path: a.Path, Kind: KindLinked, table: NewTable(name, exports...)}, nil
	case strings.EqualFold(strings.TrimPrefix(filepath.Ext(a.Path), "."), artifact.PluginExtension):
		symbols, err := opener(a.Path)
		if err != nil {
			return nil, &OpenError{Artifact: a, Err: err}
		}
		return &Library{Name: name, Path: a.Path, Kind: KindPlugin, table: NewTable(name, symbols...)}, nil
	default:
		return &Library{Name: name, Path: a.Path, Kind: KindResource, table: NewTable(name)}, nil
	}
}

// OpenAll opens every artifact of the closure, preserving order.
func (l *Linker) OpenAll(closure artifact.Closure) ([]*Library, error) {
	libs := make([]*Library, 0, len(closure))
	for _, a := range closure {
		lib, err := l.Open(a)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// Bundle returns the library of the running application itself.
func Bundle(name string, exports ...Symbol) *Library {
	return &Library{Name: name, Kind: KindBundle, table: NewTable(name, exports...)}
}

// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"
)

type (
	// Namespace looks up symbols by fully qualified name.
	Namespace interface {
		Lookup(name string) (*Symbol, bool)
	}

	// Table is an immutable Namespace built from a list of exports.
	Table struct {
		origin  string
		symbols map[string]*Symbol
		names   []string
	}

	// chain consults each namespace in order.
	chain []Namespace

	empty struct{}
)

// NewTable returns a table of exports attributed to origin. Invalid names are
// skipped and the first export of a duplicated name wins.
func NewTable(origin string, exports ...Symbol) *Table {
	t := &Table{
		origin:  origin,
		symbols: make(map[string]*Symbol, len(exports)),
		names:   make([]string, 0, len(exports)),
	}
	for _, s := range exports {
		if !validName(s.Name) {
			continue
		}
		if _, dup := t.symbols[s.Name]; dup {
			continue
		}
		if s.Origin == "" {
			s.Origin = origin
		}
		t.symbols[s.Name] = &s
		t.names = append(t.names, s.Name)
	}
	slices.Sort(t.names)
	return t
}

// Lookup implements Namespace.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.symbols[name]
	return s, ok
}

// Origin returns the table's origin.
func (t *Table) Origin() string { return t.origin }

// Names returns the exported names in sorted order.
func (t *Table) Names() []string { return slices.Clone(t.names) }

// Len returns the number of exports.
func (t *Table) Len() int { return len(t.names) }

// Chain returns a namespace consulting each non-nil namespace in order.
func Chain(namespaces ...Namespace) Namespace {
	var c chain
	for _, ns := range namespaces {
		if ns != nil {
			c = append(c, ns)
		}
	}
	return c
}

func (c chain) Lookup(name string) (*Symbol, bool) {
	for _, ns := range c {
		if s, ok := ns.Lookup(name); ok {
			return s, true
		}
	}
	return nil, false
}

func (empty) Lookup(string) (*Symbol, bool) { return nil, false }

// Host returns the host runtime namespace: standard library types exported
// under the reserved "go." prefix.
func Host() *Table {
	return host
}

var host = NewTable("go",
	Type[error]("go.error"),
	Type[context.Context]("go.context.Context"),
	Type[io.Reader]("go.io.Reader"),
	Type[io.Writer]("go.io.Writer"),
	Type[io.Closer]("go.io.Closer"),
	Type[time.Duration]("go.time.Duration"),
	Type[time.Time]("go.time.Time"),
	Type[slog.Logger]("go.log.slog.Logger"),
	Type[string]("go.string"),
	Type[int]("go.int"),
	Type[bool]("go.bool"),
	Type[any]("go.any"),
)

// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"reflect"
	"strings"
)

type (
	// Factory constructs a new instance of a symbol without arguments.
	Factory func() (any, error)

	// Symbol is a named export of a library.
	Symbol struct {
		// Name is the fully qualified name, e.g. "org.example.lib.Client".
		Name string
		// Origin names the library that exports the symbol. It is filled in
		// when the symbol is added to a Table.
		Origin string
		// Value is the identity of the symbol: a reflect.Type for types, the
		// value itself otherwise.
		Value any
		// New constructs an instance; nil when the symbol cannot be
		// instantiated.
		New Factory
	}
)

// Type returns a symbol for T. Its Value is reflect.TypeFor[T]() and its
// factory returns a new *T.
func Type[T any](name string) Symbol {
	return Symbol{
		Name:  name,
		Value: reflect.TypeFor[T](),
		New:   func() (any, error) { return new(T), nil },
	}
}

// Constructor returns a type symbol for T with a custom factory.
func Constructor[T any](name string, build func() (T, error)) Symbol {
	return Symbol{
		Name:  name,
		Value: reflect.TypeFor[T](),
		New: func() (any, error) {
			v, err := build()
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Value returns a symbol exporting v. It cannot be instantiated.
func Value(name string, v any) Symbol {
	return Symbol{Name: name, Value: v}
}

// TypeOf returns the symbol's reflect.Type, or nil when it is not a type symbol.
func (s *Symbol) TypeOf() reflect.Type {
	t, _ := s.Value.(reflect.Type)
	return t
}

// String returns "name (origin)".
func (s *Symbol) String() string {
	if s.Origin == "" {
		return s.Name
	}
	return s.Name + " (" + s.Origin + ")"
}

// validName reports whether name is usable as a symbol name.
func validName(name string) bool {
	return name != "" && strings.TrimSpace(name) == name && !strings.ContainsAny(name, " \t\r\n")
}

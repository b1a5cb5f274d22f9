// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrSymbolNotFound is the sentinel error wrapped by SymbolNotFoundError.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInstantiation is the sentinel error wrapped by InstantiationError.
	ErrInstantiation = errors.New("instantiation failed")

	// ErrNoFactory is the cause of an InstantiationError for a symbol
	// without a factory.
	ErrNoFactory = errors.New("symbol has no factory")
)

// reservedPrefixes is fixed at build time. Entries ending in "." reserve a
// whole namespace; other entries reserve a single name and its members.
var reservedPrefixes = []string{
	"go.",
	"bootstrap.config.",
	"bootstrap.manifest.",
	"bootstrap.cache.",
	"bootstrap.transport.",
	"bootstrap.resolver.",
	"bootstrap.isolation.",
	"bootstrap.Application",
	"bootstrap.Entrypoint",
	"bootstrap.Context",
	"bootstrap.Launcher",
}

type (
	// Context is the symbol namespace presented to application code. It is
	// immutable apart from its resolution cache and safe for concurrent use.
	Context struct {
		libraries []*Library
		outer     Namespace
		args      []string
		logger    *slog.Logger

		resolved sync.Map // name -> *Symbol
	}

	// Option configures a Context.
	Option func(*Context)

	// SymbolNotFoundError reports a name that neither the libraries nor the
	// outer namespace export.
	SymbolNotFoundError struct {
		Name string
		// Reserved is true when the name is reserved and was therefore only
		// looked up in the outer namespace.
		Reserved bool
	}

	// InstantiationError reports a symbol that could not be constructed.
	InstantiationError struct {
		Name string
		Err  error
	}
)

// Error implements the error interface.
func (e *SymbolNotFoundError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("symbol not found: %s (reserved name, not provided by the launcher)", e.Name)
	}
	return "symbol not found: " + e.Name
}

// Unwrap returns ErrSymbolNotFound so callers can use errors.Is for programmatic detection.
func (e *SymbolNotFoundError) Unwrap() error { return ErrSymbolNotFound }

// Error implements the error interface.
func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate %s: %v", e.Name, e.Err)
}

// Unwrap returns ErrInstantiation and the cause.
func (e *InstantiationError) Unwrap() []error { return []error{ErrInstantiation, e.Err} }

// ReservedPrefixes returns a copy of the reserved prefix set.
func ReservedPrefixes() []string { return slices.Clone(reservedPrefixes) }

// IsReserved reports whether name falls under a reserved prefix.
func IsReserved(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasSuffix(p, ".") {
			if strings.HasPrefix(name, p) {
				return true
			}
			continue
		}
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Context over libraries (searched in order) with outer as the
// launcher's namespace. A nil outer behaves as an empty namespace.
func New(libraries []*Library, outer Namespace, args []string, opts ...Option) *Context {
	if outer == nil {
		outer = empty{}
	}
	c := &Context{
		libraries: slices.Clone(libraries),
		outer:     outer,
		args:      slices.Clone(args),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the symbol bound to name:
//
//  1. a previous resolution of name;
//  2. for reserved names, the outer namespace only;
//  3. the first library exporting name, in closure order;
//  4. the outer namespace.
//
// A miss yields a *SymbolNotFoundError.
func (c *Context) Resolve(name string) (*Symbol, error) {
	if s, ok := c.resolved.Load(name); ok {
		return s.(*Symbol), nil
	}

	s, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	actual, loaded := c.resolved.LoadOrStore(name, s)
	if !loaded {
		c.logger.Debug("symbol resolved", "name", name, "origin", s.Origin)
	}
	return actual.(*Symbol), nil
}

func (c *Context) lookup(name string) (*Symbol, error) {
	if IsReserved(name) {
		if s, ok := c.outer.Lookup(name); ok {
			return s, nil
		}
		return nil, &SymbolNotFoundError{Name: name, Reserved: true}
	}
	for _, lib := range c.libraries {
		if s, ok := lib.Lookup(name); ok {
			return s, nil
		}
	}
	if s, ok := c.outer.Lookup(name); ok {
		return s, nil
	}
	return nil, &SymbolNotFoundError{Name: name}
}

// Instantiate resolves name and invokes its factory. A missing factory, a
// factory error, a nil result and a panicking factory all yield an
// *InstantiationError.
func (c *Context) Instantiate(name string) (obj any, err error) {
	s, err := c.Resolve(name)
	if err != nil {
		return nil, err
	}
	if s.New == nil {
		return nil, &InstantiationError{Name: name, Err: ErrNoFactory}
	}

	defer func() {
		if r := recover(); r != nil {
			obj = nil
			err = &InstantiationError{Name: name, Err: fmt.Errorf("factory panicked: %v", r)}
		}
	}()

	obj, err = s.New()
	if err != nil {
		return nil, &InstantiationError{Name: name, Err: err}
	}
	if isNil(obj) {
		return nil, &InstantiationError{Name: name, Err: errors.New("factory returned nil")}
	}
	return obj, nil
}

// isNil reports whether v is nil or an interface holding a nil pointer, map,
// slice, channel or function.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// InstantiateAs instantiates name and asserts the result to T.
func InstantiateAs[T any](c *Context, name string) (T, error) {
	var zero T
	obj, err := c.Instantiate(name)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, &InstantiationError{Name: name, Err: fmt.Errorf("%T does not implement %s", obj, typeName[T]())}
	}
	return v, nil
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}

// Arguments returns a copy of the invocation arguments.
func (c *Context) Arguments() []string { return slices.Clone(c.args) }

// Libraries returns the libraries in search order.
func (c *Context) Libraries() []*Library { return slices.Clone(c.libraries) }

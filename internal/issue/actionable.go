// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a launcher failure carrying the phase that failed,
	// the manifest, file or setting involved, and hints for fixing it.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("load manifest").
	//		WithResource(path).
	//		WithSuggestion("Pass the manifest location with --manifest").
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		// Operation is the failed phase as a verb phrase, e.g. "resolve dependencies".
		Operation string
		// Resource names the manifest, file or configuration key, if any.
		Resource string
		// Suggestions are printed below the message in the verbose report.
		Suggestions []string
		Cause       error
	}

	// ErrorContext accumulates the fields of an ActionableError. A launcher
	// phase fills in the operation and resource up front and adds hints once
	// the cause is known.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext returns an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error returns the one-line form "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Report renders the verbose form printed under the "[Bootstrap]" line:
// the message, one "  • " line per suggestion and the numbered cause chain.
func (e *ActionableError) Report() string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}

	if e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, unwrapCause(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err.Error())
		}
	}
	return b.String()
}

// unwrapCause steps one level down the chain. For errors that unwrap to
// several values (a sentinel plus a cause) the last one is the cause.
func unwrapCause(err error) error {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		errs := multi.Unwrap()
		if len(errs) == 0 {
			return nil
		}
		return errs[len(errs)-1]
	}
	return errors.Unwrap(err)
}

// WithOperation sets the failed phase.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the manifest, file or key involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a hint.
func (c *ErrorContext) WithSuggestion(s string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s)
	return c
}

// Wrap records err as the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// BuildError returns a copy of the accumulated *ActionableError, or nil
// when no operation was set. The context can be reused afterwards.
func (c *ErrorContext) BuildError() error {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

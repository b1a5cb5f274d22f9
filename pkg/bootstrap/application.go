// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/isolation"
)

// Names of the launcher contract symbols. They fall under the reserved
// "bootstrap." names, so an application always sees the launcher's own
// definitions.
const (
	ApplicationSymbol = "bootstrap.Application"
	EntrypointSymbol  = "bootstrap.Entrypoint"
	ContextSymbol     = "bootstrap.Context"
	LauncherSymbol    = "bootstrap.Launcher"
)

// ErrNotAnApplication is the sentinel error wrapped by NotAnApplicationError.
var ErrNotAnApplication = errors.New("entry is not an application")

type (
	// Application is the contract implemented by simple-shape entry symbols.
	Application interface {
		Start(ctx context.Context, args []string) error
	}

	// ContextBinder is implemented by applications that want the isolation
	// context before Start is called.
	ContextBinder interface {
		BindContext(ctx *isolation.Context)
	}

	// Entrypoint is the callback shape: it receives the isolation context and
	// owns construction of the application.
	Entrypoint func(ctx *isolation.Context) error

	// NotAnApplicationError reports an entry symbol whose instances do not
	// implement Application.
	NotAnApplicationError struct {
		Name string
		Type string
	}
)

// Error implements the error interface.
func (e *NotAnApplicationError) Error() string {
	return fmt.Sprintf("%s (%s) does not implement %s", e.Name, e.Type, ApplicationSymbol)
}

// Unwrap returns ErrNotAnApplication so callers can use errors.Is for programmatic detection.
func (e *NotAnApplicationError) Unwrap() error { return ErrNotAnApplication }

// contract is the launcher's fixed contract namespace.
var contract = []isolation.Symbol{
	isolation.Type[Application](ApplicationSymbol),
	isolation.Type[Entrypoint](EntrypointSymbol),
	isolation.Type[isolation.Context](ContextSymbol),
	isolation.Type[Launcher](LauncherSymbol),
}

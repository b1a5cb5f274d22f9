// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"os"
	"os/signal"
)

// exit is replaced in tests.
var (
	osExit = os.Exit
	exit   = osExit
)

// Run launches the application symbol name and returns when it does. On
// failure it prints a single "[Bootstrap]" line to stderr and exits with
// status 1.
func Run(args []string, name string, opts ...Option) {
	l := New(opts...)
	run(l, func(ctx context.Context) error { return l.Launch(ctx, args, name) })
}

// RunFunc is Run for the callback shape.
func RunFunc(args []string, entry Entrypoint, opts ...Option) {
	l := New(opts...)
	run(l, func(ctx context.Context) error { return l.LaunchFunc(ctx, args, entry) })
}

func run(l *Launcher, launch func(context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := launch(ctx); err != nil {
		NewConsole(l.stdout, l.stderr).Fail(err)
		stop()
		exit(1)
	}
}

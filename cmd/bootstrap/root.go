// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/bootstrap"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "bootstrap-loader",
		Short: "Resolve a dependency closure and launch an application inside it",
		Long: TitleStyle.Render("bootstrap-loader") + SubtitleStyle.Render(" - resolve, cache and launch") + `

bootstrap-loader reads a dependency manifest, resolves the transitive
closure of artifacts against the declared repositories, caches them
locally and starts an application in an isolation context built from
that closure.

` + SubtitleStyle.Render("Examples:") + `
  bootstrap-loader resolve --manifest bootstrap-dependencies.json
  bootstrap-loader run --manifest bootstrap-dependencies.json --entry app.Main -- --port 8080
  bootstrap-loader manifest validate bootstrap-dependencies.json
  bootstrap-loader cache list
  bootstrap-loader explain transport-error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "config file (default is ./bootstrap-loader.cue, then the user config directory)")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "artifact cache directory")
	pf.StringArrayVarP(&flags.properties, "property", "D", nil, "set a configuration property (key=value, repeatable)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "total resolution deadline (e.g. 30s, 5m)")
	pf.IntVar(&flags.workers, "workers", 0, "number of concurrent downloads")
	pf.StringVar(&flags.progress, "progress", "", "progress reporting: auto, console or none")

	root.AddCommand(
		newResolveCommand(app, flags),
		newRunCommand(app, flags),
		newManifestCommand(app),
		newCacheCommand(app, flags),
		newConfigCommand(app, flags),
		newExplainCommand(),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with the process arguments and exits with a non-zero
// status on failure. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)
	verbose := root.PersistentFlags().Lookup("verbose")

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, verbose.Value.String() == "true")
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// renderError prints err as the launcher does: a single "[Bootstrap]" line.
// In verbose mode the full actionable report follows.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	bootstrap.NewConsole(nil, w).Fail(err)
	if !verbose {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ae.Report())
	}
}

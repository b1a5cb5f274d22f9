// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/bootstrap"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

func newResolveCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var (
		manifestPath string
		paths        bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve and cache the dependency closure of a manifest",
		Long: `Resolve the transitive closure of the manifest's dependencies, download
missing artifacts into the cache and print the closure in order.

Launcher progress goes to stderr; the closure goes to stdout.`,
		Example: `  bootstrap-loader resolve --manifest bootstrap-dependencies.json
  bootstrap-loader resolve --paths`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadManifestFile(manifestPath)
			if err != nil {
				return err
			}
			opts, err := app.launcherOptions(cmd, flags)
			if err != nil {
				return err
			}
			opts = append(opts, bootstrap.WithManifest(m))

			closure, err := bootstrap.New(opts...).Resolve(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if paths {
				fmt.Fprintln(out, strings.Join(closure.Paths(), "\n"))
				return nil
			}
			for _, a := range closure {
				fmt.Fprintf(out, "%s\t%s\n", a.Coordinate, a.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", manifest.DefaultFileName, "manifest file (.json or .toml)")
	cmd.Flags().BoolVar(&paths, "paths", false, "print only the cached file paths")
	return cmd
}

// loadManifestFile reads a manifest from disk with the same diagnostics the
// launcher gives an embedded one.
func loadManifestFile(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err == nil {
		return m, nil
	}
	ctx := issue.NewErrorContext().
		WithOperation("load manifest").
		WithResource(path).
		Wrap(err)
	if name := bootstrap.Explain(err); name != "" {
		ctx.WithSuggestion("Run 'bootstrap-loader explain " + name + "' for help")
	} else {
		ctx.WithSuggestion("Pass the manifest location with --manifest")
	}
	return nil, ctx.BuildError()
}

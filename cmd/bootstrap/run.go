// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/bootstrap"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

func newRunCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var (
		manifestPath string
		entry        string
		ext          string
	)

	cmd := &cobra.Command{
		Use:   "run --entry NAME [-- ARGS...]",
		Short: "Resolve the closure and start an application from it",
		Long: `Resolve the manifest's closure, open every artifact as a library and start
the application exported under the entry name. Arguments after "--" are
passed to the application unchanged.

Artifacts with the plugin extension are opened as Go plugins; they must be
built with the same toolchain and module versions as this binary.`,
		Example: `  bootstrap-loader run --manifest bootstrap-dependencies.json --ext so --entry app.Main -- --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if entry == "" {
				return errors.New("--entry is required")
			}
			m, err := loadManifestFile(manifestPath)
			if err != nil {
				return err
			}
			opts, err := app.launcherOptions(cmd, flags)
			if err != nil {
				return err
			}
			opts = append(opts,
				bootstrap.WithManifest(m),
				bootstrap.WithArtifactExtension(ext),
			)
			return bootstrap.New(opts...).Launch(cmd.Context(), args, entry)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", manifest.DefaultFileName, "manifest file (.json or .toml)")
	cmd.Flags().StringVarP(&entry, "entry", "e", "", "exported name of the application to start")
	cmd.Flags().StringVar(&ext, "ext", artifact.DefaultExtension, "artifact file extension to fetch (e.g. zip, so)")
	return cmd
}

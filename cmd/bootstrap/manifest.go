// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

func newManifestCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Validate and generate dependency manifests",
	}
	cmd.AddCommand(newManifestValidateCommand(app), newManifestGenerateCommand(app))
	return cmd
}

func newManifestValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE...]",
		Short: "Check that manifest files are well-formed",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{manifest.DefaultFileName}
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				m, err := loadManifestFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(app.stderr, "%s %s\n", ErrorStyle.Render("✗"), err)
					continue
				}
				fmt.Fprintf(out, "%s %s: %d dependencies, %d repositories\n",
					SuccessStyle.Render("✓"), path, len(m.Dependencies), len(m.EffectiveRepositories()))
			}
			if failed > 0 {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}

func newManifestGenerateCommand(app *App) *cobra.Command {
	var (
		deps   []string
		repos  []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a canonical manifest from coordinates and repositories",
		Long: `Write a manifest document. Dependencies are de-duplicated and sorted;
repositories keep the order given, which is the order they are consulted.`,
		Example: `  bootstrap-loader manifest generate --dep org.example:core:1.2.0 --repo central=https://repo.example.org/releases/ -o bootstrap-dependencies.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repositories := make([]artifact.Repository, 0, len(repos))
			for _, raw := range repos {
				id, url, ok := strings.Cut(raw, "=")
				if !ok {
					return fmt.Errorf("invalid repository %q (expected id=url)", raw)
				}
				repositories = append(repositories, artifact.Repository{ID: id, URL: url})
			}

			data, err := manifest.Generate(deps, repositories)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write manifest: %w", err)
			}
			fmt.Fprintf(app.stderr, "%s wrote %s\n", SuccessStyle.Render("✓"), output)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&deps, "dep", nil, "dependency coordinate group:name:version (repeatable)")
	cmd.Flags().StringArrayVar(&repos, "repo", nil, "repository as id=url (repeatable, in preference order)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

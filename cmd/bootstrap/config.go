// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bootstrap-loader/bootstrap-loader/internal/config"
)

func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the settings after applying flags, environment and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.loadOptions(cmd)
			if err != nil {
				return err
			}
			cfg, err := app.Config.Load(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := cfg.Source
			if source == "" {
				source = "(none)"
			}
			fmt.Fprintf(out, "# config file: %s\n", source)
			tw := tabwriter.NewWriter(out, 0, 4, 1, ' ', 0)
			for _, kv := range [][2]string{
				{config.KeyCacheDir, cfg.CacheDir},
				{config.KeyTransportTimeout, cfg.TransportTimeout.String()},
				{config.KeyResolverWorkers, strconv.Itoa(cfg.ResolverWorkers)},
				{config.KeyProgress, cfg.Progress.String()},
				{config.KeyS3Endpoint, cfg.S3.Endpoint},
				{config.KeyS3Region, cfg.S3.Region},
				{config.KeyS3Insecure, strconv.FormatBool(cfg.S3.Insecure)},
			} {
				fmt.Fprintf(tw, "%s\t= %s\n", kv[0], kv[1])
			}
			return tw.Flush()
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List setting keys and their environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, key := range config.Keys() {
				fmt.Fprintf(tw, "%s\t%s\n", key, config.EnvName(key))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(showCmd, keysCmd)
	return cmd
}

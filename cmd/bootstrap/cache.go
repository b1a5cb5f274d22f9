// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// defaultCleanAge keeps temp files that may still belong to a running download.
const defaultCleanAge = time.Hour

func newCacheCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the artifact cache",
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, err := app.openCache(cmd, flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), layout.Root())
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, err := app.openCache(cmd, flags)
			if err != nil {
				return err
			}
			entries, err := layout.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, SubtitleStyle.Render("cache is empty"))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			var total int64
			for _, e := range entries {
				total += e.Size
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Coordinate, e.Extension, humanize.IBytes(uint64(e.Size)), humanize.Time(e.ModTime))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d artifacts, %s\n", len(entries), humanize.IBytes(uint64(total)))
			return nil
		},
	}

	var olderThan time.Duration
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove temp files left by interrupted downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, err := app.openCache(cmd, flags)
			if err != nil {
				return err
			}
			removed, err := layout.Clean(olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d temp files\n", len(removed))
			return nil
		},
	}
	cleanCmd.Flags().DurationVar(&olderThan, "older-than", defaultCleanAge, "only remove temp files older than this")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the whole cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, err := app.openCache(cmd, flags)
			if err != nil {
				return err
			}
			if err := layout.Purge(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", layout.Root())
			return nil
		},
	}

	cmd.AddCommand(pathCmd, listCmd, cleanCmd, purgeCmd)
	return cmd
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
)

func newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [KIND]",
		Short: "Describe a failure kind and how to fix it",
		Long: `Describe a failure kind and how to fix it. Without arguments, list the
kinds. Failure lines printed by the launcher end with the kind to look up.`,
		Example: `  bootstrap-loader explain
  bootstrap-loader explain unresolvable-artifact`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return issue.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, i := range issue.Values() {
					fmt.Fprintf(out, "%-24s %s\n", i.Name(), SubtitleStyle.Render(title(i)))
				}
				return nil
			}

			i := issue.Lookup(args[0])
			if i == nil {
				return fmt.Errorf("unknown failure kind %q (run 'bootstrap-loader explain' for the list)", args[0])
			}
			rendered, err := i.Render(stylePath(out))
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, rendered)
			return err
		},
	}
}

// title returns the first Markdown heading of the issue text.
func title(i *issue.Issue) string {
	for line := range strings.Lines(string(i.MarkdownMsg())) {
		if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSuffix(heading, "!")
		}
	}
	return ""
}

func stylePath(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return styles.AutoStyle
	}
	return styles.NoTTYStyle
}

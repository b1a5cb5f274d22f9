// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Prefix starts every line written by Console.
const Prefix = "[Bootstrap]"

// Console writes the launcher's user-facing lines: informational lines to
// out, the final diagnostic to errOut. Styling is only applied when the
// writer is a color-capable terminal.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	tag      lipgloss.Style
	errorTag lipgloss.Style
}

// NewConsole returns a Console. A nil writer discards its lines.
func NewConsole(out, errOut io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &Console{
		out:      out,
		errOut:   errOut,
		tag:      lipgloss.NewRenderer(out).NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		errorTag: lipgloss.NewRenderer(errOut).NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// Infof prints one informational line.
func (c *Console) Infof(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", c.tag.Render(Prefix), fmt.Sprintf(format, args...))
}

// Fail prints err as a single diagnostic line.
func (c *Console) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.errOut, "%s %s\n", c.errorTag.Render(Prefix), singleLine(err.Error()))
}

// singleLine joins the non-blank lines of s with "; ".
func singleLine(s string) string {
	var parts []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}

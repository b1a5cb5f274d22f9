// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// DefaultProgressInterval is the minimum delay between two progress lines
// for the same resource.
const DefaultProgressInterval = 250 * time.Millisecond

// ConsoleSink renders transfer events as "[Download]", "[Progress]",
// "[Complete]" and "[Failed]" lines.
type ConsoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	interval time.Duration
	now      func() time.Time
	last     map[string]time.Time

	tagStyle   lipgloss.Style
	okStyle    lipgloss.Style
	errStyle   lipgloss.Style
	mutedStyle lipgloss.Style
}

// NewConsoleSink returns a sink writing progress to out and failures to
// errOut. Styles are only applied when the writer supports color.
func NewConsoleSink(out, errOut io.Writer) *ConsoleSink {
	outR := lipgloss.NewRenderer(out)
	errR := lipgloss.NewRenderer(errOut)
	return &ConsoleSink{
		out:        out,
		errOut:     errOut,
		interval:   DefaultProgressInterval,
		now:        time.Now,
		last:       make(map[string]time.Time),
		tagStyle:   outR.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		okStyle:    outR.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		errStyle:   errR.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		mutedStyle: outR.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// WithInterval overrides DefaultProgressInterval. Zero disables throttling.
func (c *ConsoleSink) WithInterval(d time.Duration) *ConsoleSink {
	c.interval = d
	return c
}

// Started implements Sink.
func (c *ConsoleSink) Started(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[ev.Resource] = time.Time{}
	fmt.Fprintf(c.out, "%s %s\n", c.tagStyle.Render("[Download]"), ev.Resource)
}

// Progressed implements Sink. Events for transfers of unknown size are
// dropped, and at most one line per interval is printed for each resource.
func (c *ConsoleSink) Progressed(ev Event) {
	if ev.Total <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last[ev.Resource]; ok && c.interval > 0 && now.Sub(last) < c.interval && ev.Transferred < ev.Total {
		return
	}
	c.last[ev.Resource] = now

	pct := float64(ev.Transferred) * 100 / float64(ev.Total)
	fmt.Fprintf(c.out, "%s %s / %s (%.1f%%)\n",
		c.tagStyle.Render("[Progress]"),
		humanize.IBytes(uint64(ev.Transferred)),
		humanize.IBytes(uint64(ev.Total)),
		pct)
}

// Succeeded implements Sink.
func (c *ConsoleSink) Succeeded(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, ev.Resource)
	fmt.Fprintf(c.out, "%s %s %s\n",
		c.okStyle.Render("[Complete]"),
		ev.Resource,
		c.mutedStyle.Render("("+humanize.IBytes(uint64(ev.Transferred))+")"))
}

// Failed implements Sink.
func (c *ConsoleSink) Failed(ev Event, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, ev.Resource)
	fmt.Fprintf(c.errOut, "%s %v\n", c.errStyle.Render("[Failed]"), err)
}

// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

type (
	// Event describes the state of one transfer.
	Event struct {
		Repository artifact.Repository
		Coordinate artifact.Coordinate
		// Resource is the full URL of the transferred blob.
		Resource string
		// Transferred is the number of bytes received so far.
		Transferred int64
		// Total is the announced content length, or -1 when unknown.
		Total   int64
		Started time.Time
	}

	// Sink receives transfer events. Implementations must be safe for
	// concurrent use; the resolver fetches several artifacts at once.
	Sink interface {
		Started(ev Event)
		Progressed(ev Event)
		Succeeded(ev Event)
		Failed(ev Event, err error)
	}

	// NopSink discards every event.
	NopSink struct{}

	// Counter is a Sink that counts transfers. It is used to assert that a
	// warm cache performs no network I/O.
	Counter struct {
		started   atomic.Int64
		succeeded atomic.Int64
		failed    atomic.Int64
		bytes     atomic.Int64
	}

	// progressWriter reports every write to the sink.
	progressWriter struct {
		w    io.Writer
		sink Sink
		ev   Event
	}
)

// Started implements Sink.
func (NopSink) Started(Event) {}

// Progressed implements Sink.
func (NopSink) Progressed(Event) {}

// Succeeded implements Sink.
func (NopSink) Succeeded(Event) {}

// Failed implements Sink.
func (NopSink) Failed(Event, error) {}

// Started implements Sink.
func (c *Counter) Started(Event) { c.started.Add(1) }

// Progressed implements Sink.
func (c *Counter) Progressed(Event) {}

// Succeeded implements Sink.
func (c *Counter) Succeeded(ev Event) {
	c.succeeded.Add(1)
	c.bytes.Add(ev.Transferred)
}

// Failed implements Sink.
func (c *Counter) Failed(Event, error) { c.failed.Add(1) }

// StartedCount returns the number of transfers attempted.
func (c *Counter) StartedCount() int64 { return c.started.Load() }

// SucceededCount returns the number of completed transfers.
func (c *Counter) SucceededCount() int64 { return c.succeeded.Load() }

// FailedCount returns the number of failed transfers.
func (c *Counter) FailedCount() int64 { return c.failed.Load() }

// Bytes returns the number of bytes received by completed transfers.
func (c *Counter) Bytes() int64 { return c.bytes.Load() }

func sinkOrNop(s Sink) Sink {
	if s == nil {
		return NopSink{}
	}
	return s
}

func newProgressWriter(w io.Writer, sink Sink, ev Event) *progressWriter {
	return &progressWriter{w: w, sink: sink, ev: ev}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.ev.Transferred += int64(n)
	p.sink.Progressed(p.ev)
	return n, err
}

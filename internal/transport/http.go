// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// DefaultUserAgent is sent with every HTTP request unless overridden.
const DefaultUserAgent = "bootstrap-loader"

// maxChecksumSize bounds the size of a ".sha256" document.
const maxChecksumSize = 4 << 10

type (
	// HTTP fetches artifacts from http and https repositories.
	HTTP struct {
		client    *http.Client
		userAgent string
		sink      Sink
		logger    *slog.Logger
	}

	// HTTPOption configures an HTTP transport.
	HTTPOption func(*HTTP)
)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) { h.userAgent = ua }
}

// WithSink sets the progress sink.
func WithSink(s Sink) HTTPOption {
	return func(h *HTTP) { h.sink = sinkOrNop(s) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTP returns an HTTP transport.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:    &http.Client{},
		userAgent: DefaultUserAgent,
		sink:      NopSink{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch implements Transport. 404 and 410 answers are NotInRepository; any
// other non-2xx answer is a terminal *Error.
func (h *HTTP) Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error) {
	u, err := ArtifactURL(repo, coord, ext)
	if err != nil {
		return "", &Error{Repository: repo, Coordinate: coord, Err: err}
	}
	resource := u.String()

	ev := Event{Repository: repo, Coordinate: coord, Resource: resource, Total: -1, Started: time.Now()}
	h.sink.Started(ev)

	resp, err := h.get(ctx, resource)
	if err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		h.sink.Failed(ev, err)
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		err := &NotInRepositoryError{Repository: repo, Coordinate: coord}
		h.sink.Failed(ev, err)
		return "", err
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		err := &Error{Repository: repo, Coordinate: coord, Status: resp.StatusCode, Err: fmt.Errorf("GET %s: %s", resource, resp.Status)}
		h.sink.Failed(ev, err)
		return "", err
	}

	ev.Total = resp.ContentLength
	pw := newProgressWriter(w, h.sink, ev)
	if _, err := copyCtx(ctx, pw, resp.Body); err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		h.sink.Failed(pw.ev, err)
		return "", err
	}
	if ev.Total >= 0 && pw.ev.Transferred != ev.Total {
		err := &Error{Repository: repo, Coordinate: coord, Err: fmt.Errorf("short body: got %d of %d bytes", pw.ev.Transferred, ev.Total)}
		h.sink.Failed(pw.ev, err)
		return "", err
	}

	sum, err := h.checksum(ctx, resource)
	if err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		h.sink.Failed(pw.ev, err)
		return "", err
	}

	h.sink.Succeeded(pw.ev)
	h.logger.Debug("fetched artifact", "coordinate", coord.String(), "repository", repo.ID, "bytes", pw.ev.Transferred)
	return sum, nil
}

// checksum fetches "<resource>.sha256". An absent digest is not an error.
func (h *HTTP) checksum(ctx context.Context, resource string) (artifact.Checksum, error) {
	resp, err := h.get(ctx, resource+".sha256")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("GET %s.sha256: %s", resource, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChecksumSize))
	if err != nil {
		return "", fmt.Errorf("failed to read checksum: %w", err)
	}
	return artifact.ParseChecksum(string(body))
}

func (h *HTTP) get(ctx context.Context, resource string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, http.NoBody)
	if err != nil {
		return nil, err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	return h.client.Do(req)
}

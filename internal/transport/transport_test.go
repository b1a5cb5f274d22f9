// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

var testCoord = artifact.MustParseCoordinate("org.example:lib:1.0")

func TestArtifactPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		coord string
		ext   string
		want  string
	}{
		{"org.example:lib:1.0", "", "org/example/lib/1.0/lib-1.0.zip"},
		{"org.example:lib:1.0", "so", "org/example/lib/1.0/lib-1.0.so"},
		{"g:a:2.0-rc1", ".zip", "g/a/2.0-rc1/a-2.0-rc1.zip"},
	}
	for _, tt := range tests {
		if got := ArtifactPath(artifact.MustParseCoordinate(tt.coord), tt.ext); got != tt.want {
			t.Errorf("ArtifactPath(%s, %q) = %q, want %q", tt.coord, tt.ext, got, tt.want)
		}
	}

	u, err := ArtifactURL(artifact.Repository{ID: "r", URL: "https://repo.example/maven2/"}, testCoord, "")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := u.String(), "https://repo.example/maven2/org/example/lib/1.0/lib-1.0.zip"; got != want {
		t.Errorf("ArtifactURL() = %q, want %q", got, want)
	}
}

// newRepoServer serves files from a map of repository-relative paths.
func newRepoServer(t *testing.T, files map[string]string) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			http.Error(w, "bad user agent "+got, http.StatusBadRequest)
			return
		}
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestHTTP_Fetch(t *testing.T) {
	t.Parallel()

	blob := "zip-bytes"
	srv, _ := newRepoServer(t, map[string]string{
		"org/example/lib/1.0/lib-1.0.zip":        blob,
		"org/example/lib/1.0/lib-1.0.zip.sha256": string(artifact.SumBytes([]byte(blob))) + "  lib-1.0.zip\n",
	})
	repo := artifact.Repository{ID: "r", URL: srv.URL}
	counter := &Counter{}

	var buf bytes.Buffer
	sum, err := NewHTTP(WithSink(counter)).Fetch(context.Background(), repo, testCoord, "", &buf)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if buf.String() != blob {
		t.Errorf("body = %q, want %q", buf.String(), blob)
	}
	if sum != artifact.SumBytes([]byte(blob)) {
		t.Errorf("checksum = %q", sum)
	}
	if counter.StartedCount() != 1 || counter.SucceededCount() != 1 || counter.Bytes() != int64(len(blob)) {
		t.Errorf("counter = started %d, succeeded %d, bytes %d", counter.StartedCount(), counter.SucceededCount(), counter.Bytes())
	}
}

func TestHTTP_FetchWithoutChecksum(t *testing.T) {
	t.Parallel()

	srv, _ := newRepoServer(t, map[string]string{"org/example/lib/1.0/lib-1.0.zip": "x"})
	sum, err := NewHTTP().Fetch(context.Background(), artifact.Repository{ID: "r", URL: srv.URL}, testCoord, "", io.Discard)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if sum != "" {
		t.Errorf("checksum = %q, want empty", sum)
	}
}

func TestHTTP_FetchStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status      int
		notInRepo   bool
		wantTranspt bool
	}{
		{http.StatusNotFound, true, false},
		{http.StatusGone, true, false},
		{http.StatusForbidden, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusUnauthorized, false, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			counter := &Counter{}
			_, err := NewHTTP(WithSink(counter)).Fetch(context.Background(), artifact.Repository{ID: "r", URL: srv.URL}, testCoord, "", io.Discard)
			if err == nil {
				t.Fatal("Fetch() expected error")
			}
			if got := errors.Is(err, ErrNotInRepository); got != tt.notInRepo {
				t.Errorf("errors.Is(err, ErrNotInRepository) = %v, want %v (err = %v)", got, tt.notInRepo, err)
			}
			if got := errors.Is(err, ErrTransport); got != tt.wantTranspt {
				t.Errorf("errors.Is(err, ErrTransport) = %v, want %v", got, tt.wantTranspt)
			}
			if tt.wantTranspt {
				var tErr *Error
				if !errors.As(err, &tErr) || tErr.Status != tt.status {
					t.Errorf("expected *Error with status %d, got %v", tt.status, err)
				}
			}
			if counter.FailedCount() != 1 {
				t.Errorf("FailedCount() = %d, want 1", counter.FailedCount())
			}
		})
	}
}

func TestHTTP_BadChecksumDocument(t *testing.T) {
	t.Parallel()

	srv, _ := newRepoServer(t, map[string]string{
		"org/example/lib/1.0/lib-1.0.zip":        "x",
		"org/example/lib/1.0/lib-1.0.zip.sha256": "not-a-digest",
	})
	_, err := NewHTTP().Fetch(context.Background(), artifact.Repository{ID: "r", URL: srv.URL}, testCoord, "", io.Discard)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, artifact.ErrInvalidChecksum) {
		t.Errorf("Fetch() error = %v, want transport error wrapping ErrInvalidChecksum", err)
	}
}

func TestHTTP_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP().Fetch(context.Background(), artifact.Repository{ID: "r", URL: url}, testCoord, "", io.Discard)
	if !errors.Is(err, ErrTransport) || errors.Is(err, ErrNotInRepository) {
		t.Errorf("Fetch() error = %v, want terminal transport error", err)
	}
}

func TestDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("abc"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr := Deadline(NewHTTP(), 50*time.Millisecond)
	start := time.Now()
	_, err := tr.Fetch(context.Background(), artifact.Repository{ID: "r", URL: srv.URL}, testCoord, "", io.Discard)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Fetch() error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want wrapped context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("deadline not enforced, took %s", elapsed)
	}

	if Deadline(NewHTTP(), 0) == nil {
		t.Error("Deadline(t, 0) should return t")
	}
}

func TestFile_Fetch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "org", "example", "lib", "1.0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib-1.0.zip"), []byte("mirror"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib-1.0.zip.sha256"), []byte(artifact.SumBytes([]byte("mirror"))), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := artifact.Repository{ID: "mirror", URL: "file://" + filepath.ToSlash(root)}
	var buf bytes.Buffer
	sum, err := NewFile(nil).Fetch(context.Background(), repo, testCoord, "", &buf)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if buf.String() != "mirror" || sum != artifact.SumBytes([]byte("mirror")) {
		t.Errorf("Fetch() = %q, %q", buf.String(), sum)
	}

	_, err = NewFile(nil).Fetch(context.Background(), repo, artifact.MustParseCoordinate("org.example:other:1.0"), "", io.Discard)
	if !errors.Is(err, ErrNotInRepository) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotInRepository", err)
	}
}

func TestMux(t *testing.T) {
	t.Parallel()

	var calls []string
	fake := func(name string) Transport {
		return Func(func(_ context.Context, _ artifact.Repository, _ artifact.Coordinate, _ string, w io.Writer) (artifact.Checksum, error) {
			calls = append(calls, name)
			_, err := io.WriteString(w, name)
			return "", err
		})
	}
	m := NewMux().Handle("HTTPS", fake("https")).Handle("s3", fake("s3"))

	for _, url := range []string{"https://a", "s3://bucket/prefix"} {
		if _, err := m.Fetch(context.Background(), artifact.Repository{ID: "r", URL: url}, testCoord, "", io.Discard); err != nil {
			t.Errorf("Fetch(%s) error = %v", url, err)
		}
	}
	if strings.Join(calls, ",") != "https,s3" {
		t.Errorf("calls = %v", calls)
	}

	_, err := m.Fetch(context.Background(), artifact.Repository{ID: "r", URL: "ftp://x"}, testCoord, "", io.Discard)
	if !errors.Is(err, ErrTransport) || errors.Is(err, ErrNotInRepository) {
		t.Errorf("unsupported scheme error = %v, want terminal transport error", err)
	}
}

func TestS3Location(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base       string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://artifacts", "artifacts", "g/a/1.0/a-1.0.zip", false},
		{"s3://artifacts/maven/", "artifacts", "maven/g/a/1.0/a-1.0.zip", false},
		{"s3:///nobucket", "", "", true},
		{"https://artifacts", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := s3Location(tt.base, "g/a/1.0/a-1.0.zip")
		if (err != nil) != tt.wantErr {
			t.Errorf("s3Location(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
			continue
		}
		if bucket != tt.wantBucket || key != tt.wantKey {
			t.Errorf("s3Location(%q) = %q, %q; want %q, %q", tt.base, bucket, key, tt.wantBucket, tt.wantKey)
		}
	}
}

func TestNewS3_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewS3(S3Config{}, nil); err == nil {
		t.Error("NewS3() without endpoint expected error")
	}
	if _, err := NewS3(S3Config{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Insecure: true}, nil); err != nil {
		t.Errorf("NewS3() error = %v", err)
	}
}

func TestConsoleSink(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	sink := NewConsoleSink(&out, &errOut)
	clock := time.Unix(0, 0)
	sink.now = func() time.Time { return clock }

	ev := Event{Resource: "https://r/g/a/1.0/a-1.0.zip", Total: 2048}
	sink.Started(ev)

	ev.Transferred = 512
	sink.Progressed(ev)
	ev.Transferred = 1024
	sink.Progressed(ev) // throttled: same instant
	clock = clock.Add(time.Second)
	ev.Transferred = 2048
	sink.Progressed(ev)
	sink.Succeeded(ev)
	sink.Failed(ev, errors.New("boom"))

	got := out.String()
	for _, want := range []string{
		"[Download] https://r/g/a/1.0/a-1.0.zip\n",
		"[Progress] 512 B / 2.0 KiB (25.0%)\n",
		"[Progress] 2.0 KiB / 2.0 KiB (100.0%)\n",
		"[Complete] https://r/g/a/1.0/a-1.0.zip (2.0 KiB)\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "50.0%") {
		t.Errorf("progress was not throttled:\n%s", got)
	}
	if errOut.String() != "[Failed] boom\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

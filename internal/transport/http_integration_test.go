// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestHTTP_Integration fetches from a real web server laid out as a repository.
func TestHTTP_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping integration test: testcontainers provider not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	const blob = "artifact served by nginx"
	const docroot = "/usr/share/nginx/html/"
	ctr, err := testcontainers.Run(ctx, "nginx:alpine",
		testcontainers.WithExposedPorts("80/tcp"),
		testcontainers.WithFiles(
			testcontainers.ContainerFile{
				Reader:            strings.NewReader(blob),
				ContainerFilePath: docroot + ArtifactPath(testCoord, ""),
				FileMode:          0o644,
			},
			testcontainers.ContainerFile{
				Reader:            strings.NewReader(string(artifact.SumBytes([]byte(blob)))),
				ContainerFilePath: docroot + ArtifactPath(testCoord, "") + ".sha256",
				FileMode:          0o644,
			},
		),
		testcontainers.WithWaitStrategy(wait.ForHTTP("/").WithPort("80/tcp")),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start nginx: %v", err)
	}

	base, err := ctr.PortEndpoint(ctx, "80/tcp", "http")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}
	repo := artifact.Repository{ID: "nginx", URL: base}

	t.Run("Present", func(t *testing.T) {
		var buf bytes.Buffer
		sum, err := NewHTTP().Fetch(ctx, repo, testCoord, "", &buf)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if buf.String() != blob {
			t.Errorf("body = %q", buf.String())
		}
		if sum != artifact.SumBytes([]byte(blob)) {
			t.Errorf("checksum = %q", sum)
		}
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := NewHTTP().Fetch(ctx, repo, artifact.MustParseCoordinate("org.example:missing:1.0"), "", io.Discard)
		if !errors.Is(err, ErrNotInRepository) {
			t.Errorf("Fetch() error = %v, want ErrNotInRepository", err)
		}
	})
}

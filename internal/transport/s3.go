// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

const defaultS3Region = "us-east-1"

type (
	// S3Config holds the connection settings of an S3-compatible endpoint.
	S3Config struct {
		Endpoint  string
		Region    string
		AccessKey string
		SecretKey string
		// Insecure disables TLS.
		Insecure bool
	}

	// S3 serves artifacts from s3://bucket/prefix base URLs.
	S3 struct {
		client *minio.Client
		sink   Sink
	}
)

// NewS3 connects an S3 transport. Static credentials are used when both keys
// are set; otherwise the standard AWS environment variables are consulted.
func NewS3(cfg S3Config, sink Sink) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultS3Region
	}

	creds := credentials.NewEnvAWS()
	if access, secret := strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey); access != "" && secret != "" {
		creds = credentials.NewStaticV4(access, secret, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: !cfg.Insecure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3{client: client, sink: sinkOrNop(sink)}, nil
}

// Fetch implements Transport. Missing keys and buckets are NotInRepository.
func (s *S3) Fetch(ctx context.Context, repo artifact.Repository, coord artifact.Coordinate, ext string, w io.Writer) (artifact.Checksum, error) {
	bucket, key, err := s3Location(repo.URL, ArtifactPath(coord, ext))
	if err != nil {
		return "", &Error{Repository: repo, Coordinate: coord, Err: err}
	}

	ev := Event{Repository: repo, Coordinate: coord, Resource: "s3://" + bucket + "/" + key, Total: -1, Started: time.Now()}
	s.sink.Started(ev)

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		err = s.classify(repo, coord, err)
		s.sink.Failed(ev, err)
		return "", err
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key before any byte is written.
	info, err := obj.Stat()
	if err != nil {
		err = s.classify(repo, coord, err)
		s.sink.Failed(ev, err)
		return "", err
	}
	ev.Total = info.Size

	pw := newProgressWriter(w, s.sink, ev)
	if _, err := copyCtx(ctx, pw, obj); err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		s.sink.Failed(pw.ev, err)
		return "", err
	}

	sum, err := s.checksum(ctx, bucket, key+".sha256")
	if err != nil {
		err = &Error{Repository: repo, Coordinate: coord, Err: err}
		s.sink.Failed(pw.ev, err)
		return "", err
	}
	s.sink.Succeeded(pw.ev)
	return sum, nil
}

func (s *S3) checksum(ctx context.Context, bucket, key string) (artifact.Checksum, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isS3NotFound(err) {
			return "", nil
		}
		return "", err
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxChecksumSize))
	if err != nil {
		if isS3NotFound(err) {
			return "", nil
		}
		return "", err
	}
	return artifact.ParseChecksum(string(data))
}

func (s *S3) classify(repo artifact.Repository, coord artifact.Coordinate, err error) error {
	if isS3NotFound(err) {
		return &NotInRepositoryError{Repository: repo, Coordinate: coord}
	}
	return &Error{Repository: repo, Coordinate: coord, Status: minio.ToErrorResponse(err).StatusCode, Err: err}
}

func isS3NotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

// s3Location splits an s3://bucket/prefix base URL and appends rel to the prefix.
func s3Location(base, rel string) (bucket, key string, err error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository url %q: %w", base, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("expected s3://bucket[/prefix], got %q", base)
	}
	return u.Host, strings.TrimPrefix(path.Join(u.Path, rel), "/"), nil
}

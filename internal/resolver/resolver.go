// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bootstrap-loader/bootstrap-loader/internal/cache"
	"github.com/bootstrap-loader/bootstrap-loader/internal/transport"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

const (
	// DefaultWorkers is the default size of the staging pool.
	DefaultWorkers = 4
	// DefaultLimit is the default traversal backstop.
	DefaultLimit = 1024
	// DefaultDescriptorCacheSize is the default number of dependency lists
	// kept in memory.
	DefaultDescriptorCacheSize = 512
)

type (
	// Resolver turns a manifest into a closure of cached artifacts.
	// A Resolver is safe for concurrent use.
	Resolver struct {
		cache       *cache.Layout
		transport   transport.Transport
		workers     int
		limit       int
		ext         string
		logger      *slog.Logger
		descriptors DescriptorReader
		memo        *lru.Cache[artifact.Coordinate, []artifact.Dependency]
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// node is one staged coordinate of a BFS level.
	node struct {
		artifact artifact.Artifact
		deps     []artifact.Dependency
		err      error
	}
)

// WithWorkers sets the number of concurrent stage operations per BFS level.
// Values below 1 select 1.
func WithWorkers(n int) Option {
	return func(r *Resolver) { r.workers = max(n, 1) }
}

// WithLimit sets the traversal backstop.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithExtension sets the artifact file extension (artifact.DefaultExtension
// by default).
func WithExtension(ext string) Option {
	return func(r *Resolver) {
		if ext != "" {
			r.ext = ext
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDescriptorReader overrides the default ZipDescriptorReader.
func WithDescriptorReader(d DescriptorReader) Option {
	return func(r *Resolver) {
		if d != nil {
			r.descriptors = d
		}
	}
}

// New returns a Resolver staging artifacts into c and fetching missing ones
// through t.
func New(c *cache.Layout, t transport.Transport, opts ...Option) *Resolver {
	r := &Resolver{
		cache:       c,
		transport:   t,
		workers:     DefaultWorkers,
		limit:       DefaultLimit,
		ext:         artifact.DefaultExtension,
		logger:      slog.New(slog.DiscardHandler),
		descriptors: ZipDescriptorReader{},
	}
	for _, opt := range opts {
		opt(r)
	}
	// Size is a positive constant, New cannot fail.
	r.memo, _ = lru.New[artifact.Coordinate, []artifact.Dependency](DefaultDescriptorCacheSize)
	return r
}

// Resolve walks the transitive closure of m's roots and returns it in BFS
// order. The first error in BFS order is returned; NotInRepository answers
// never surface on their own.
func (r *Resolver) Resolve(ctx context.Context, m *manifest.Manifest) (artifact.Closure, error) {
	repos := m.EffectiveRepositories()

	seen := make(map[artifact.PackageKey]artifact.Coordinate)
	var closure artifact.Closure
	level := append([]artifact.Coordinate(nil), m.Dependencies...)

	for depth := 0; len(level) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var chosen []artifact.Coordinate
		for _, c := range level {
			if prev, dup := seen[c.Key()]; dup {
				if prev != c {
					r.logger.Debug("dropping version, nearer declaration wins", "coordinate", c.String(), "chosen", prev.String())
				}
				continue
			}
			if len(closure)+len(chosen) >= r.limit {
				return nil, &LimitExceededError{Limit: r.limit, Coordinate: c}
			}
			seen[c.Key()] = c
			chosen = append(chosen, c)
		}

		nodes := r.stageLevel(ctx, repos, chosen)

		var next []artifact.Coordinate
		for _, n := range nodes {
			if n.err != nil {
				return nil, n.err
			}
			closure = append(closure, n.artifact)
			for _, d := range n.deps {
				if d.Traversable() {
					next = append(next, d.Coordinate)
				}
			}
		}
		r.logger.Debug("resolved level", "depth", depth, "artifacts", len(chosen))
		level = next
	}

	return closure, nil
}

// stageLevel acquires every coordinate of one BFS level on the worker pool.
// Every slot completes so the reported error does not depend on scheduling.
func (r *Resolver) stageLevel(ctx context.Context, repos []artifact.Repository, level []artifact.Coordinate) []node {
	nodes := make([]node, len(level))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, c := range level {
		g.Go(func() error {
			nodes[i] = r.acquire(ctx, repos, c)
			return nil
		})
	}
	_ = g.Wait()
	return nodes
}

// acquire stages c from the first repository holding it and reads its
// dependency list.
func (r *Resolver) acquire(ctx context.Context, repos []artifact.Repository, c artifact.Coordinate) node {
	var source string
	path, err := r.cache.Stage(ctx, c, r.ext, func(ctx context.Context, w io.Writer) (artifact.Checksum, error) {
		var misses []error
		for _, repo := range repos {
			sum, err := r.transport.Fetch(ctx, repo, c, r.ext, w)
			if err == nil {
				source = repo.ID
				return sum, nil
			}
			if !errors.Is(err, transport.ErrNotInRepository) {
				return "", err
			}
			r.logger.Debug("not in repository, trying next", "coordinate", c.String(), "repository", repo.ID)
			misses = append(misses, err)
		}
		ids := make([]string, 0, len(repos))
		for _, repo := range repos {
			ids = append(ids, repo.ID)
		}
		return "", &UnresolvableArtifactError{Coordinate: c, Repositories: ids, Err: errors.Join(misses...)}
	})
	if err != nil {
		return node{err: err}
	}

	deps, err := r.dependencies(ctx, repos, source, c, path)
	if err != nil {
		return node{err: err}
	}
	return node{
		artifact: artifact.Artifact{Coordinate: c, Path: path, Repository: source},
		deps:     deps,
	}
}

// dependencies returns c's declared dependencies, consulting the in-memory
// cache, then the sidecar, then the artifact itself and finally the
// descriptor published by the repositories.
func (r *Resolver) dependencies(ctx context.Context, repos []artifact.Repository, source string, c artifact.Coordinate, path string) ([]artifact.Dependency, error) {
	if deps, ok := r.memo.Get(c); ok {
		return deps, nil
	}

	deps, ok, err := r.cache.ReadDeps(c)
	if err != nil {
		r.logger.Warn("ignoring unreadable dependency sidecar", "coordinate", c.String(), "error", err)
	}
	if !ok {
		deps, err = r.descriptors.ReadDescriptor(c, path)
		if errors.Is(err, ErrNoDescriptor) {
			deps, err = r.remoteDescriptor(ctx, repos, source, c)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dependencies of %s: %w", c, err)
		}
		if err := r.cache.WriteDeps(c, deps); err != nil {
			return nil, err
		}
	}

	r.memo.Add(c, deps)
	return deps, nil
}

// remoteDescriptor fetches the DescriptorExtension document of c. The
// repository that served the artifact is asked first; when the artifact came
// from the cache every repository is tried in order. An artifact no
// repository describes declares no dependencies.
func (r *Resolver) remoteDescriptor(ctx context.Context, repos []artifact.Repository, source string, c artifact.Coordinate) ([]artifact.Dependency, error) {
	ordered := repos
	if source != "" {
		ordered = make([]artifact.Repository, 0, len(repos))
		for _, repo := range repos {
			if repo.ID == source {
				ordered = append([]artifact.Repository{repo}, ordered...)
				continue
			}
			ordered = append(ordered, repo)
		}
	}

	for _, repo := range ordered {
		var buf bytes.Buffer
		sum, err := r.transport.Fetch(ctx, repo, c, DescriptorExtension, &limitedWriter{w: &buf, n: maxDescriptorSize})
		if errors.Is(err, transport.ErrNotInRepository) {
			continue
		}
		if errors.Is(err, errDescriptorTooLarge) {
			return nil, fmt.Errorf("%w for %s in %s: descriptor exceeds %d bytes", ErrInvalidDescriptor, c, repo.ID, maxDescriptorSize)
		}
		if err != nil {
			return nil, err
		}
		if sum != "" && sum != artifact.SumBytes(buf.Bytes()) {
			return nil, fmt.Errorf("%w for %s in %s: checksum mismatch", ErrInvalidDescriptor, c, repo.ID)
		}
		r.logger.Debug("read repository descriptor", "coordinate", c.String(), "repository", repo.ID)
		return ParseDescriptor(c, buf.Bytes())
	}
	return nil, nil
}

var errDescriptorTooLarge = errors.New("descriptor too large")

// limitedWriter fails once more than n bytes are written.
type limitedWriter struct {
	w io.Writer
	n int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.n {
		return 0, errDescriptorTooLarge
	}
	l.n -= int64(len(p))
	return l.w.Write(p)
}

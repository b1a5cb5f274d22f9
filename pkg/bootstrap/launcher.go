// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/bootstrap-loader/bootstrap-loader/internal/cache"
	"github.com/bootstrap-loader/bootstrap-loader/internal/config"
	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
	"github.com/bootstrap-loader/bootstrap-loader/internal/resolver"
	"github.com/bootstrap-loader/bootstrap-loader/internal/transport"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/isolation"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

// ManifestPath is where the manifest is looked up inside the manifest FS.
const ManifestPath = "META-INF/" + manifest.DefaultFileName

type (
	// Launcher runs the bootstrap phases and hands control to the
	// application. A Launcher may be used for several launches; each one
	// loads configuration afresh.
	Launcher struct {
		manifest     *manifest.Manifest
		manifestFS   fs.FS
		manifestPath string
		configFile   string
		properties   map[string]string
		defaults     map[string]string
		transport    transport.Transport
		sink         transport.Sink
		linker       *isolation.Linker
		bundle       *isolation.Library
		outer        isolation.Namespace
		extension    string
		stdout       io.Writer
		stderr       io.Writer
		logger       *slog.Logger
	}

	// session carries the state of one launch through its phases.
	session struct {
		cfg      *config.Config
		manifest *manifest.Manifest
		cache    *cache.Layout
		closure  artifact.Closure
		console  *Console
	}
)

// New returns a Launcher configured by opts.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		manifestPath: ManifestPath,
		properties:   make(map[string]string),
		defaults:     make(map[string]string),
		linker:       isolation.DefaultLinker,
		extension:    artifact.DefaultExtension,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch resolves name through the isolation context, constructs it and
// calls its Start method with args. Errors returned by Start are passed
// through unchanged.
func (l *Launcher) Launch(ctx context.Context, args []string, name string) error {
	s, ictx, err := l.prepare(ctx, args)
	if err != nil {
		return err
	}

	obj, err := ictx.Instantiate(name)
	if err != nil {
		return phaseError("instantiate application", name, err)
	}
	app, ok := obj.(Application)
	if !ok {
		return phaseError("instantiate application", name, &NotAnApplicationError{Name: name, Type: fmt.Sprintf("%T", obj)})
	}
	if binder, ok := obj.(ContextBinder); ok {
		binder.BindContext(ictx)
	}

	s.console.Infof("Starting %s", name)
	return app.Start(ctx, ictx.Arguments())
}

// LaunchFunc prepares the isolation context and calls entry with it. Errors
// returned by entry are passed through unchanged.
func (l *Launcher) LaunchFunc(ctx context.Context, args []string, entry Entrypoint) error {
	if entry == nil {
		return phaseError("run entrypoint", "", errors.New("nil entrypoint"))
	}
	s, ictx, err := l.prepare(ctx, args)
	if err != nil {
		return err
	}
	s.console.Infof("Running entrypoint")
	return entry(ictx)
}

// Resolve runs the configuration, manifest and resolution phases only and
// returns the closure.
func (l *Launcher) Resolve(ctx context.Context) (artifact.Closure, error) {
	s, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.closure, nil
}

func (l *Launcher) prepare(ctx context.Context, args []string) (*session, *isolation.Context, error) {
	s, err := l.resolve(ctx)
	if err != nil {
		return nil, nil, err
	}

	libraries := make([]*isolation.Library, 0, len(s.closure)+1)
	if l.bundle != nil {
		libraries = append(libraries, l.bundle)
		s.console.Infof("Added application bundle: %s", l.bundle.Name)
	}
	opened, err := l.linker.OpenAll(s.closure)
	if err != nil {
		return nil, nil, phaseError("open libraries", "", err)
	}
	libraries = append(libraries, opened...)

	ictx := isolation.New(libraries, l.outerNamespace(s), args, isolation.WithLogger(l.logger))
	s.console.Infof("Isolation context ready with %d libraries", len(libraries))
	return s, ictx, nil
}

func (l *Launcher) resolve(ctx context.Context) (*session, error) {
	s := &session{console: NewConsole(l.stdout, l.stderr)}
	s.console.Infof("Starting bootstrap process...")

	cfg, err := config.Load(ctx, config.LoadOptions{
		ConfigFilePath:    l.configFile,
		Properties:        l.properties,
		DefaultProperties: l.defaults,
	})
	if err != nil {
		return nil, phaseError("load configuration", l.configFile, err)
	}
	s.cfg = cfg

	m, source, err := l.loadManifest()
	if err != nil {
		return nil, phaseError("load manifest", source, err)
	}
	s.manifest = m
	s.console.Infof("Loaded manifest with %d dependencies", len(m.Dependencies))

	layout, err := cache.New(cfg.CacheDir, cache.WithLogger(l.logger))
	if err != nil {
		return nil, phaseError("open cache", cfg.CacheDir, err)
	}
	s.cache = layout
	s.console.Infof("Using cache directory: %s", layout.Root())

	sink := l.progressSink(cfg)
	t, err := l.buildTransport(cfg, sink)
	if err != nil {
		return nil, phaseError("configure transport", "", err)
	}

	r := resolver.New(layout, t,
		resolver.WithWorkers(cfg.ResolverWorkers),
		resolver.WithExtension(l.extension),
		resolver.WithLogger(l.logger),
	)

	rctx := ctx
	if cfg.TransportTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, cfg.TransportTimeout)
		defer cancel()
	}
	closure, err := r.Resolve(rctx, m)
	if err != nil {
		if ctx.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("resolution exceeded %s: %w", cfg.TransportTimeout, errors.Join(transport.ErrTransport, context.DeadlineExceeded))
		}
		return nil, phaseError("resolve dependencies", source, err)
	}
	s.closure = closure
	s.console.Infof("Resolved %d artifacts", len(closure))
	return s, nil
}

// loadManifest returns the manifest and a name for it in diagnostics.
func (l *Launcher) loadManifest() (*manifest.Manifest, string, error) {
	if l.manifest != nil {
		return l.manifest, "", nil
	}

	fsys := l.manifestFS
	if fsys == nil {
		fsys = os.DirFS(executableDir())
	}
	data, err := fs.ReadFile(fsys, l.manifestPath)
	if err != nil {
		return nil, l.manifestPath, &manifest.MalformedManifestError{
			Source: l.manifestPath,
			Err:    fmt.Errorf("manifest not found: %w", err),
		}
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, l.manifestPath, err
	}
	return m, l.manifestPath, nil
}

func (l *Launcher) progressSink(cfg *config.Config) transport.Sink {
	if l.sink != nil {
		return l.sink
	}
	switch cfg.Progress {
	case config.ProgressConsole:
		return transport.NewConsoleSink(l.stdout, l.stderr)
	case config.ProgressAuto:
		if isTerminal(l.stdout) {
			return transport.NewConsoleSink(l.stdout, l.stderr)
		}
	}
	return transport.NopSink{}
}

func (l *Launcher) buildTransport(cfg *config.Config, sink transport.Sink) (transport.Transport, error) {
	if l.transport != nil {
		return transport.Deadline(l.transport, cfg.TransportTimeout), nil
	}

	mux := transport.NewDefaultMux(sink, transport.WithLogger(l.logger))
	if cfg.S3.Endpoint != "" {
		s3, err := transport.NewS3(transport.S3Config{
			Endpoint: cfg.S3.Endpoint,
			Region:   cfg.S3.Region,
			Insecure: cfg.S3.Insecure,
		}, sink)
		if err != nil {
			return nil, err
		}
		mux.Handle("s3", s3)
	}
	return transport.Deadline(mux, cfg.TransportTimeout), nil
}

// outerNamespace is the launcher's namespace: the contract symbols and the
// values of this launch, the host table, then any caller-supplied namespace.
func (l *Launcher) outerNamespace(s *session) isolation.Namespace {
	exports := append([]isolation.Symbol(nil), contract...)
	exports = append(exports,
		isolation.Value("bootstrap.config.Config", *s.cfg),
		isolation.Value("bootstrap.config.cache.dir", s.cache.Root()),
		isolation.Value("bootstrap.manifest.Manifest", s.manifest),
		isolation.Value("bootstrap.cache.Layout", s.cache),
		isolation.Value("bootstrap.resolver.Closure", s.closure),
		isolation.Value("bootstrap.Launcher.instance", l),
	)
	namespaces := []isolation.Namespace{isolation.NewTable("bootstrap", exports...), isolation.Host()}
	if l.outer != nil {
		namespaces = append(namespaces, l.outer)
	}
	return isolation.Chain(namespaces...)
}

// phaseError wraps a pre-application failure, keeping err as the cause.
// Errors that already carry an operation are returned as they are.
func phaseError(operation, resource string, err error) error {
	if _, ok := err.(*issue.ActionableError); ok {
		return err
	}
	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)
	if name := Explain(err); name != "" {
		ctx.WithSuggestion("Run 'bootstrap-loader explain " + name + "' for help")
	}
	return ctx.BuildError()
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/internal/config"
	"github.com/bootstrap-loader/bootstrap-loader/internal/transport"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/isolation"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

// Option configures a Launcher.
type Option func(*Launcher)

// WithManifest uses m instead of reading a manifest document.
func WithManifest(m *manifest.Manifest) Option {
	return func(l *Launcher) { l.manifest = m }
}

// WithManifestFS reads the manifest from path inside fsys, typically an
// embed.FS holding ManifestPath.
func WithManifestFS(fsys fs.FS, path string) Option {
	return func(l *Launcher) {
		l.manifestFS = fsys
		l.manifestPath = path
	}
}

// WithConfigFile loads settings from the given CUE file instead of searching
// for bootstrap-loader.cue.
func WithConfigFile(path string) Option {
	return func(l *Launcher) { l.configFile = path }
}

// WithProperty sets a configuration property. Properties take precedence
// over the environment and the config file. Keys may omit the
// "bootstraploader." namespace.
func WithProperty(key, value string) Option {
	return func(l *Launcher) { l.properties[key] = value }
}

// WithDefaultProperty changes the built-in default of a configuration
// property. The environment and the config file still override it.
func WithDefaultProperty(key, value string) Option {
	return func(l *Launcher) { l.defaults[key] = value }
}

// WithCacheDir sets the cache directory property.
func WithCacheDir(dir string) Option {
	return WithProperty(config.KeyCacheDir, dir)
}

// WithTimeout sets the total resolution deadline property.
func WithTimeout(d time.Duration) Option {
	return WithProperty(config.KeyTransportTimeout, d.String())
}

// WithWorkers sets the resolver pool size property.
func WithWorkers(n int) Option {
	return WithProperty(config.KeyResolverWorkers, strconv.Itoa(n))
}

// WithTransport replaces the scheme-dispatching default transport.
func WithTransport(t transport.Transport) Option {
	return func(l *Launcher) { l.transport = t }
}

// WithProgress reports transfers to sink regardless of the progress setting.
func WithProgress(sink transport.Sink) Option {
	return func(l *Launcher) { l.sink = sink }
}

// WithLinker resolves artifacts to libraries through linker instead of
// isolation.DefaultLinker.
func WithLinker(linker *isolation.Linker) Option {
	return func(l *Launcher) { l.linker = linker }
}

// WithApplicationBundle places the application's own exports ahead of the
// closure, so application symbols resolve through the same context as their
// dependencies.
func WithApplicationBundle(name string, exports ...isolation.Symbol) Option {
	return func(l *Launcher) { l.bundle = isolation.Bundle(name, exports...) }
}

// WithOuter appends ns to the launcher's outer namespace, after the contract
// symbols and the host table.
func WithOuter(ns isolation.Namespace) Option {
	return func(l *Launcher) { l.outer = ns }
}

// WithArtifactExtension selects the file extension fetched for every
// coordinate, e.g. artifact.PluginExtension.
func WithArtifactExtension(ext string) Option {
	return func(l *Launcher) { l.extension = ext }
}

// WithStdout sets the writer for informational and progress lines.
func WithStdout(w io.Writer) Option {
	return func(l *Launcher) { l.stdout = w }
}

// WithStderr sets the writer for failure lines.
func WithStderr(w io.Writer) Option {
	return func(l *Launcher) { l.stderr = w }
}

// WithLogger sets the structured logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

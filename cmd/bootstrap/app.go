// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bootstrap-loader/bootstrap-loader/internal/cache"
	"github.com/bootstrap-loader/bootstrap-loader/internal/config"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/bootstrap"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every Cobra command handler receives an App reference.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		configPath string
		cacheDir   string
		properties []string
		verbose    bool
		timeout    time.Duration
		workers    int
		progress   string
	}
)

// NewApp creates an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// propertyMap collects the configuration properties set on the command line.
// Flags only count when given explicitly so the environment and the config
// file are not shadowed by flag defaults.
func (f *rootFlagValues) propertyMap(cmd *cobra.Command) (map[string]string, error) {
	props := make(map[string]string, len(f.properties)+4)
	for _, raw := range f.properties {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid property %q (expected key=value)", raw)
		}
		props[strings.TrimSpace(key)] = value
	}

	flags := cmd.Flags()
	if flags.Changed("cache-dir") {
		props[config.KeyCacheDir] = f.cacheDir
	}
	if flags.Changed("timeout") {
		props[config.KeyTransportTimeout] = f.timeout.String()
	}
	if flags.Changed("workers") {
		props[config.KeyResolverWorkers] = strconv.Itoa(f.workers)
	}
	if flags.Changed("progress") {
		props[config.KeyProgress] = f.progress
	}
	return props, nil
}

// loadOptions returns the config options equivalent to the launcher options
// built by launcherOptions.
func (f *rootFlagValues) loadOptions(cmd *cobra.Command) (config.LoadOptions, error) {
	props, err := f.propertyMap(cmd)
	if err != nil {
		return config.LoadOptions{}, err
	}
	return config.LoadOptions{
		ConfigFilePath:    f.configPath,
		Properties:        props,
		DefaultProperties: cliDefaults(),
	}, nil
}

// launcherOptions turns the persistent flags into launcher options. Launcher
// lines go to stderr so stdout carries only command output.
func (a *App) launcherOptions(cmd *cobra.Command, f *rootFlagValues) ([]bootstrap.Option, error) {
	props, err := f.propertyMap(cmd)
	if err != nil {
		return nil, err
	}
	opts := []bootstrap.Option{
		bootstrap.WithStdout(a.stderr),
		bootstrap.WithStderr(a.stderr),
		bootstrap.WithLogger(a.logger(f.verbose)),
	}
	if f.configPath != "" {
		opts = append(opts, bootstrap.WithConfigFile(f.configPath))
	}
	for key, value := range cliDefaults() {
		opts = append(opts, bootstrap.WithDefaultProperty(key, value))
	}
	for key, value := range props {
		opts = append(opts, bootstrap.WithProperty(key, value))
	}
	return opts, nil
}

// openCache loads the configuration and opens the cache it names.
func (a *App) openCache(cmd *cobra.Command, f *rootFlagValues) (*cache.Layout, error) {
	opts, err := f.loadOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := a.Config.Load(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.CacheDir, cache.WithLogger(a.logger(f.verbose)))
}

func (a *App) logger(verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return slog.New(log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "bootstrap-loader",
		Level:           level,
		ReportTimestamp: verbose,
	}))
}

// cliDefaults are the built-in defaults the CLI changes. The environment and
// config file still override them.
func cliDefaults() map[string]string {
	return map[string]string{config.KeyProgress: config.ProgressConsole.String()}
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
)

// isolatedOptions points both config file locations at empty temp dirs.
func isolatedOptions(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{WorkDir: t.TempDir(), ConfigDirPath: t.TempDir()}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.CacheDir != DefaultCacheDir {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, DefaultCacheDir)
	}
	if cfg.TransportTimeout != 5*time.Minute {
		t.Errorf("TransportTimeout = %s, want 5m", cfg.TransportTimeout)
	}
	if cfg.ResolverWorkers != 4 {
		t.Errorf("ResolverWorkers = %d, want 4", cfg.ResolverWorkers)
	}
	if cfg.Progress != ProgressNone {
		t.Errorf("Progress = %q, want none", cfg.Progress)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{KeyCacheDir, "BOOTSTRAP_LOADER_CACHE_DIR"},
		{KeyTransportTimeout, "BOOTSTRAP_LOADER_TRANSPORT_TIMEOUT"},
		{KeyResolverWorkers, "BOOTSTRAP_LOADER_RESOLVER_WORKERS"},
		{KeyProgress, "BOOTSTRAP_LOADER_PROGRESS"},
		{KeyS3Insecure, "BOOTSTRAP_LOADER_S3_INSECURE"},
	}
	for _, tt := range tests {
		if got := EnvName(tt.key); got != tt.want {
			t.Errorf("EnvName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "bootstraploader.cache.dir", want: KeyCacheDir},
		{in: "cache.dir", want: KeyCacheDir},
		{in: " Resolver.Workers ", want: KeyResolverWorkers},
		{in: "cache", wantErr: true},
		{in: "bootstraploader.nope", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProperty) {
					t.Fatalf("NormalizeKey(%q) error = %v, want ErrUnknownProperty", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeKey(%q) = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(context.Background(), isolatedOptions(t))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.CacheDir != DefaultCacheDir || cfg.ResolverWorkers != DefaultResolverWorkers {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_CustomDefaults(t *testing.T) {
	t.Parallel()

	opts := isolatedOptions(t)
	defaults := DefaultConfig()
	defaults.Progress = ProgressConsole
	opts.Defaults = defaults

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Progress != ProgressConsole {
		t.Errorf("Progress = %q, want console", cfg.Progress)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Parallel()

	opts := isolatedOptions(t)
	path := filepath.Join(opts.WorkDir, "bootstrap-loader.cue")
	writeFile(t, path, `
bootstraploader: {
	cache: dir: "/srv/cache"
	transport: timeout: "30s"
	resolver: workers: 2
	progress: "console"
	s3: {
		endpoint: "minio.local:9000"
		insecure: true
	}
}
`)

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.CacheDir != "/srv/cache" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.TransportTimeout != 30*time.Second {
		t.Errorf("TransportTimeout = %s", cfg.TransportTimeout)
	}
	if cfg.ResolverWorkers != 2 {
		t.Errorf("ResolverWorkers = %d", cfg.ResolverWorkers)
	}
	if cfg.Progress != ProgressConsole {
		t.Errorf("Progress = %q", cfg.Progress)
	}
	if cfg.S3.Endpoint != "minio.local:9000" || !cfg.S3.Insecure {
		t.Errorf("S3 = %+v", cfg.S3)
	}
}

func TestLoad_WorkDirBeforeConfigDir(t *testing.T) {
	t.Parallel()

	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, "bootstrap-loader.cue"), `bootstraploader: cache: dir: "local"`)
	writeFile(t, filepath.Join(opts.ConfigDirPath, "bootstrap-loader.cue"), `bootstraploader: cache: dir: "user"`)

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.CacheDir != "local" {
		t.Errorf("CacheDir = %q, want local", cfg.CacheDir)
	}
}

func TestLoad_UserConfigDir(t *testing.T) {
	t.Parallel()

	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.ConfigDirPath, "bootstrap-loader.cue"), `bootstraploader: resolver: workers: 7`)

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.ResolverWorkers != 7 {
		t.Errorf("ResolverWorkers = %d, want 7", cfg.ResolverWorkers)
	}
}

func TestLoad_Precedence(t *testing.T) {
	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, "bootstrap-loader.cue"), `
bootstraploader: {
	cache: dir: "from-file"
	transport: timeout: "30s"
	resolver: workers: 2
}
`)
	t.Setenv("BOOTSTRAP_LOADER_CACHE_DIR", "from-env")
	t.Setenv("BOOTSTRAP_LOADER_RESOLVER_WORKERS", "3")
	opts.Properties = map[string]string{"resolver.workers": "8"}

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.CacheDir != "from-env" {
		t.Errorf("CacheDir = %q, want from-env (env beats file)", cfg.CacheDir)
	}
	if cfg.ResolverWorkers != 8 {
		t.Errorf("ResolverWorkers = %d, want 8 (property beats env)", cfg.ResolverWorkers)
	}
	if cfg.TransportTimeout != 30*time.Second {
		t.Errorf("TransportTimeout = %s, want 30s (file beats default)", cfg.TransportTimeout)
	}
}

func TestLoad_EnvTypes(t *testing.T) {
	t.Setenv("BOOTSTRAP_LOADER_TRANSPORT_TIMEOUT", "90s")
	t.Setenv("BOOTSTRAP_LOADER_S3_INSECURE", "true")
	t.Setenv("BOOTSTRAP_LOADER_PROGRESS", "auto")

	cfg, err := Load(context.Background(), isolatedOptions(t))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.TransportTimeout != 90*time.Second {
		t.Errorf("TransportTimeout = %s, want 90s", cfg.TransportTimeout)
	}
	if !cfg.S3.Insecure {
		t.Error("S3.Insecure = false, want true")
	}
	if cfg.Progress != ProgressAuto {
		t.Errorf("Progress = %q, want auto", cfg.Progress)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, "bootstrap-loader.cue"), `bootstraploader: cache: dir: "ignored"`)
	explicit := filepath.Join(t.TempDir(), "custom.cue")
	writeFile(t, explicit, `bootstraploader: cache: dir: "explicit"`)
	opts.ConfigFilePath = explicit

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.CacheDir != "explicit" || cfg.Source != explicit {
		t.Errorf("Load() = %+v, want explicit file", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		props    map[string]string
		explicit string
		sentinel error
	}{
		{name: "unknown key in file", file: `bootstraploader: colour: "red"`},
		{name: "bad progress in file", file: `bootstraploader: progress: "loud"`},
		{name: "bad duration in file", file: `bootstraploader: transport: timeout: "soon"`},
		{name: "zero workers in file", file: `bootstraploader: resolver: workers: 0`},
		{name: "syntax error", file: `bootstraploader: {`},
		{name: "unknown property", props: map[string]string{"retries": "3"}, sentinel: ErrUnknownProperty},
		{name: "zero workers property", props: map[string]string{"resolver.workers": "0"}, sentinel: ErrInvalidConfig},
		{name: "bad progress property", props: map[string]string{"progress": "loud"}, sentinel: ErrInvalidProgressMode},
		{name: "missing explicit file", explicit: "does-not-exist.cue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := isolatedOptions(t)
			if tt.file != "" {
				writeFile(t, filepath.Join(opts.WorkDir, "bootstrap-loader.cue"), tt.file)
			}
			if tt.explicit != "" {
				opts.ConfigFilePath = filepath.Join(opts.WorkDir, tt.explicit)
			}
			opts.Properties = tt.props

			_, err := Load(context.Background(), opts)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error %T is not an ActionableError: %v", err, err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, isolatedOptions(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoadOptions_Validate(t *testing.T) {
	t.Parallel()

	if err := (LoadOptions{}).Validate(); err != nil {
		t.Errorf("empty LoadOptions should be valid, got %v", err)
	}

	err := LoadOptions{ConfigFilePath: "   "}.Validate()
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Fatalf("Validate() = %v, want ErrInvalidLoadOptions", err)
	}
	var loadErr *InvalidLoadOptionsError
	if !errors.As(err, &loadErr) || loadErr.Field != "ConfigFilePath" {
		t.Errorf("Validate() = %#v, want ConfigFilePath field", err)
	}
}

func TestProgressMode_Validate(t *testing.T) {
	t.Parallel()

	for _, m := range []ProgressMode{ProgressAuto, ProgressConsole, ProgressNone} {
		if err := m.Validate(); err != nil {
			t.Errorf("%q.Validate() = %v", m, err)
		}
	}
	if err := ProgressMode("verbose").Validate(); !errors.Is(err, ErrInvalidProgressMode) {
		t.Errorf("Validate() = %v, want ErrInvalidProgressMode", err)
	}
}

func TestLoad_DefaultProperties(t *testing.T) {
	opts := isolatedOptions(t)
	opts.DefaultProperties = map[string]string{"progress": "console", "resolver.workers": "6"}

	cfg, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Progress != ProgressConsole || cfg.ResolverWorkers != 6 {
		t.Errorf("Load() = %+v, want default properties applied", cfg)
	}

	t.Setenv("BOOTSTRAP_LOADER_PROGRESS", "none")
	cfg, err = Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Progress != ProgressNone {
		t.Errorf("Progress = %q, want the environment to win over a default property", cfg.Progress)
	}
}

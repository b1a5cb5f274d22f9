// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "bootstrap-loader"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "bootstrap-loader"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "BOOTSTRAP_LOADER"

	keyRoot = "bootstraploader"

	// Setting keys, as used in properties and the CUE file.
	KeyCacheDir         = keyRoot + ".cache.dir"
	KeyTransportTimeout = keyRoot + ".transport.timeout"
	KeyResolverWorkers  = keyRoot + ".resolver.workers"
	KeyProgress         = keyRoot + ".progress"
	KeyS3Endpoint       = keyRoot + ".s3.endpoint"
	KeyS3Region         = keyRoot + ".s3.region"
	KeyS3Insecure       = keyRoot + ".s3.insecure"
)

//go:embed config_schema.cue
var configSchema string

var keys = []string{
	KeyCacheDir,
	KeyTransportTimeout,
	KeyResolverWorkers,
	KeyProgress,
	KeyS3Endpoint,
	KeyS3Region,
	KeyS3Insecure,
}

// Keys returns every recognized setting key in declaration order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// EnvName returns the environment variable consulted for key:
// bootstraploader.cache.dir maps to BOOTSTRAP_LOADER_CACHE_DIR.
func EnvName(key string) string {
	rest := strings.TrimPrefix(key, keyRoot+".")
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(rest, ".", "_"))
}

// NormalizeKey lowercases key and qualifies it with the bootstraploader
// namespace when the caller used the short form ("cache.dir").
func NormalizeKey(key string) (string, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if !strings.HasPrefix(k, keyRoot+".") {
		k = keyRoot + "." + k
	}
	for _, known := range keys {
		if k == known {
			return k, nil
		}
	}
	return "", &UnknownPropertyError{Key: key}
}

// ConfigDir returns the bootstrap-loader configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions builds a fresh Viper instance per call, so concurrent
// launches never observe each other's properties.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := viper.New()

	defaults := DefaultConfig()
	if opts.Defaults != nil {
		defaults = opts.Defaults
	}
	v.SetDefault(KeyCacheDir, defaults.CacheDir)
	v.SetDefault(KeyTransportTimeout, defaults.TransportTimeout)
	v.SetDefault(KeyResolverWorkers, defaults.ResolverWorkers)
	v.SetDefault(KeyProgress, string(defaults.Progress))
	v.SetDefault(KeyS3Endpoint, defaults.S3.Endpoint)
	v.SetDefault(KeyS3Region, defaults.S3.Region)
	v.SetDefault(KeyS3Insecure, defaults.S3.Insecure)
	for key, value := range opts.DefaultProperties {
		k, err := NormalizeKey(key)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("apply property").
				WithResource(key).
				WithSuggestion("Use one of: " + strings.Join(keys, ", ")).
				Wrap(err).
				BuildError()
		}
		v.SetDefault(k, value)
	}

	for _, key := range keys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", EnvName(key), err)
		}
	}

	source, err := locateConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := loadCUEIntoViper(v, source); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(source).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the #Config schema").
				WithSuggestion("Run 'bootstrap-loader explain config-error' for the file format").
				Wrap(err).
				BuildError()
		}
	}

	for key, value := range opts.Properties {
		k, err := NormalizeKey(key)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("apply property").
				WithResource(key).
				WithSuggestion("Use one of: " + strings.Join(keys, ", ")).
				Wrap(err).
				BuildError()
		}
		v.Set(k, value)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("decode configuration").
			WithSuggestion("Durations use Go syntax such as 30s or 5m").
			WithSuggestion("Worker counts must be whole numbers").
			Wrap(err).
			BuildError()
	}

	cfg := fc.toConfig()
	cfg.Source = source
	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check the " + EnvPrefix + "_* environment variables and --property flags").
			Wrap(err).
			BuildError()
	}

	return cfg, nil
}

// locateConfigFile returns the explicit config file when one is requested,
// otherwise the first bootstrap-loader.cue found in the working directory and
// then the user config directory. An empty result means defaults only.
func locateConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	name := ConfigFileName + "." + ConfigFileExt
	local := filepath.Join(opts.WorkDir, name)
	if fileExists(local) {
		return local, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			// No home directory means no user config file.
			return "", nil //nolint:nilerr // defaults apply
		}
		cfgDir = dir
	}
	if path := filepath.Join(cfgDir, name); fileExists(path) {
		return path, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Note: This uses manual CUE parsing instead of cueutil.ParseAndDecode because
// the result is merged into Viper as map[string]any and every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge keeps defaults and lets env and properties override file values.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
var ErrInvalidLoadOptions = errors.New("invalid load options")

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific config file when set.
		ConfigFilePath string
		// ConfigDirPath overrides the user config directory lookup when set.
		ConfigDirPath string
		// WorkDir is searched for bootstrap-loader.cue before the config
		// directory. Empty means the process working directory.
		WorkDir string
		// Properties are explicit key=value overrides with the highest precedence.
		Properties map[string]string
		// Defaults replaces DefaultConfig as the lowest-precedence layer.
		Defaults *Config
		// DefaultProperties override individual defaults. Unlike Properties
		// they lose against the environment and the config file.
		DefaultProperties map[string]string
	}

	// InvalidLoadOptionsError is returned when a LoadOptions field is malformed.
	InvalidLoadOptionsError struct {
		Field string
		Value string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}

// Load is shorthand for NewProvider().Load.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return NewProvider().Load(ctx, opts)
}

// Validate rejects whitespace-only paths; empty paths mean "use the default".
func (o LoadOptions) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"ConfigFilePath", o.ConfigFilePath},
		{"ConfigDirPath", o.ConfigDirPath},
		{"WorkDir", o.WorkDir},
	} {
		if f.value != "" && strings.TrimSpace(f.value) == "" {
			return &InvalidLoadOptionsError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidLoadOptionsError) Error() string {
	return fmt.Sprintf("invalid load options: %s %q is blank", e.Field, e.Value)
}

// Unwrap returns ErrInvalidLoadOptions so callers can use errors.Is for programmatic detection.
func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }

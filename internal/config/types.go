// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ProgressAuto prints console progress only when stdout is a terminal.
	ProgressAuto ProgressMode = "auto"
	// ProgressConsole always prints download progress lines.
	ProgressConsole ProgressMode = "console"
	// ProgressNone disables progress output.
	ProgressNone ProgressMode = "none"

	// DefaultCacheDir is used when no property, environment variable or
	// config file names a cache directory. It is relative to the working
	// directory.
	DefaultCacheDir = ".bootstrap-loader/cache"
	// DefaultTransportTimeout bounds a single resolution.
	DefaultTransportTimeout = 5 * time.Minute
	// DefaultResolverWorkers is the prefetch pool size.
	DefaultResolverWorkers = 4
)

var (
	// ErrInvalidProgressMode is returned when a ProgressMode value is not recognized.
	ErrInvalidProgressMode = errors.New("invalid progress mode")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownProperty is returned for property keys outside the bootstraploader namespace.
	ErrUnknownProperty = errors.New("unknown property")
)

type (
	// ProgressMode selects how download progress is reported.
	ProgressMode string

	// InvalidProgressModeError is returned when a ProgressMode value is not recognized.
	// It wraps ErrInvalidProgressMode for errors.Is() compatibility.
	InvalidProgressModeError struct {
		Value ProgressMode
	}

	// S3Config holds the endpoint settings for s3:// repositories.
	// Credentials are read from the standard AWS environment variables.
	S3Config struct {
		Endpoint string `mapstructure:"endpoint"`
		Region   string `mapstructure:"region"`
		Insecure bool   `mapstructure:"insecure"`
	}

	// Config holds the resolved bootstrap-loader settings.
	Config struct {
		CacheDir         string
		TransportTimeout time.Duration
		ResolverWorkers  int
		Progress         ProgressMode
		S3               S3Config

		// Source is the config file that was merged, empty when none was found.
		Source string
	}

	// InvalidConfigError is returned when a resolved setting fails validation.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Key string
		Err error
	}

	// UnknownPropertyError is returned when a property key is not a known setting.
	UnknownPropertyError struct {
		Key string
	}

	// fileConfig mirrors the nested key layout used by Viper and the CUE file.
	fileConfig struct {
		BootstrapLoader struct {
			Cache struct {
				Dir string `mapstructure:"dir"`
			} `mapstructure:"cache"`
			Transport struct {
				Timeout time.Duration `mapstructure:"timeout"`
			} `mapstructure:"transport"`
			Resolver struct {
				Workers int `mapstructure:"workers"`
			} `mapstructure:"resolver"`
			Progress ProgressMode `mapstructure:"progress"`
			S3       S3Config     `mapstructure:"s3"`
		} `mapstructure:"bootstraploader"`
	}
)

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		CacheDir:         DefaultCacheDir,
		TransportTimeout: DefaultTransportTimeout,
		ResolverWorkers:  DefaultResolverWorkers,
		Progress:         ProgressNone,
	}
}

// String returns the string representation of the ProgressMode.
func (m ProgressMode) String() string { return string(m) }

// Validate returns nil if the ProgressMode is one of the recognized modes.
func (m ProgressMode) Validate() error {
	switch m {
	case ProgressAuto, ProgressConsole, ProgressNone:
		return nil
	default:
		return &InvalidProgressModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidProgressModeError) Error() string {
	return fmt.Sprintf("invalid progress mode %q (valid: auto, console, none)", e.Value)
}

// Unwrap returns ErrInvalidProgressMode so callers can use errors.Is for programmatic detection.
func (e *InvalidProgressModeError) Unwrap() error { return ErrInvalidProgressMode }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config value for %s: %v", e.Key, e.Err)
}

// Unwrap returns ErrInvalidConfig and the underlying cause.
func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// Error implements the error interface.
func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q (known: %s)", e.Key, strings.Join(Keys(), ", "))
}

// Unwrap returns ErrUnknownProperty so callers can use errors.Is for programmatic detection.
func (e *UnknownPropertyError) Unwrap() error { return ErrUnknownProperty }

// Validate checks every resolved setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CacheDir) == "" {
		return &InvalidConfigError{Key: KeyCacheDir, Err: errors.New("must not be blank")}
	}
	if c.TransportTimeout < 0 {
		return &InvalidConfigError{Key: KeyTransportTimeout, Err: fmt.Errorf("negative duration %s", c.TransportTimeout)}
	}
	if c.ResolverWorkers < 1 {
		return &InvalidConfigError{Key: KeyResolverWorkers, Err: fmt.Errorf("must be at least 1, got %d", c.ResolverWorkers)}
	}
	if err := c.Progress.Validate(); err != nil {
		return &InvalidConfigError{Key: KeyProgress, Err: err}
	}
	return nil
}

func (f *fileConfig) toConfig() *Config {
	b := f.BootstrapLoader
	return &Config{
		CacheDir:         b.Cache.Dir,
		TransportTimeout: b.Transport.Timeout,
		ResolverWorkers:  b.Resolver.Workers,
		Progress:         b.Progress,
		S3:               b.S3,
	}
}

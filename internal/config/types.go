// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/ionpkg"
)

// Configuration keys as they appear in config.cue.
const (
	KeyDebug            = "debug"
	KeyCache            = "cache"
	KeyIgnoreVersion    = "ignore_version"
	KeyIgnoreSettings   = "ignore_settings"
	KeyCacheAlwaysWrite = "cache_always_write"
	KeyRuntime          = "runtime"
	KeyLogLevel         = "log_level"
)

const (
	// DefaultRuntime is the runtime version used when none is configured.
	DefaultRuntime = "8.1"
	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "warn"
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid configuration")

// envBindings maps configuration keys to the environment variables that
// override them.
var envBindings = []struct {
	key string
	env string
}{
	{KeyDebug, "ION_PACKAGE_DEBUG"},
	{KeyCache, "ION_AUTOLOAD_CACHE"},
	{KeyIgnoreVersion, "ION_PACKAGE_IGNORE_VERSION"},
	{KeyIgnoreSettings, "ION_PACKAGE_IGNORE_CONFIGURATION"},
	{KeyCacheAlwaysWrite, "ION_AUTOLOAD_CACHE_DEBUG"},
	{KeyRuntime, "IONLOAD_RUNTIME"},
	{KeyLogLevel, "IONLOAD_LOG_LEVEL"},
}

type (
	// Config holds the process-wide toggles.
	Config struct {
		// Debug forces debug mode when non-nil.
		Debug *bool `json:"debug,omitempty"`
		// Cache forces the class-map cache on or off when non-nil.
		Cache *bool `json:"cache,omitempty"`
		// IgnoreVersion skips version manifests.
		IgnoreVersion bool `json:"ignore_version"`
		// IgnoreSettings skips autoloader.json.
		IgnoreSettings bool `json:"ignore_settings"`
		// CacheAlwaysWrite saves caches even when nothing changed.
		CacheAlwaysWrite bool `json:"cache_always_write"`
		// Runtime is the runtime version, as major.minor.
		Runtime string `json:"runtime"`
		// LogLevel is the CLI log verbosity.
		LogLevel string `json:"log_level"`
		// Source is the file the configuration was read from, empty when
		// only defaults and the environment applied.
		Source string `json:"-"`
	}

	// InvalidConfigError reports a configuration value that failed validation.
	InvalidConfigError struct {
		Key   string
		Value string
		Err   error
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Err)
}

// Unwrap returns ErrInvalidConfig and the cause.
func (e *InvalidConfigError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Runtime:  DefaultRuntime,
		LogLevel: DefaultLogLevel,
	}
}

// Validate checks the values CUE cannot see, such as those coming from the
// environment.
func (c *Config) Validate() error {
	if _, err := autoload.ParseRuntimeVersion(c.Runtime); err != nil {
		return &InvalidConfigError{Key: KeyRuntime, Value: c.Runtime, Err: err}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return &InvalidConfigError{Key: KeyLogLevel, Value: c.LogLevel, Err: err}
	}
	return nil
}

// Toggles converts the configuration into registry toggles.
func (c *Config) Toggles() ionpkg.Toggles {
	return ionpkg.Toggles{
		Debug:            c.Debug,
		Cache:            c.Cache,
		IgnoreVersion:    c.IgnoreVersion,
		IgnoreSettings:   c.IgnoreSettings,
		CacheAlwaysWrite: c.CacheAlwaysWrite,
	}
}

// RuntimeVersion parses the configured runtime version.
func (c *Config) RuntimeVersion() (autoload.RuntimeVersion, error) {
	return autoload.ParseRuntimeVersion(c.Runtime)
}

// Level returns the configured log level, falling back to warn.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ionphp/ionload/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "ionload"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	maxConfigFileSize = 1 << 20
)

// ErrConfigExists is returned by WriteDefault when the file exists and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the ionload configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
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
	default: // Linux and others
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

// Path returns the config file the options select. The file may not exist.
func Path(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. Precedence is environment, then file, then defaults.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(KeyRuntime, defaults.Runtime)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.env, err)
		}
	}

	cfgPath, err := Path(opts)
	if err != nil {
		return nil, err
	}

	resolvedPath := ""
	switch {
	case fileExists(cfgPath):
		if err := loadCUEIntoViper(v, cfgPath); err != nil {
			return nil, loadError(cfgPath, err)
		}
		resolvedPath = cfgPath
	case opts.ConfigFilePath != "":
		// An explicit file must exist; the default location is optional.
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'ionload config path' to see the default location").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, loadError(resolvedPath, err)
	}
	cfg.Source = resolvedPath

	if err := cfg.Validate(); err != nil {
		return nil, loadError(resolvedPath, err)
	}
	return cfg, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("Check ION_* environment variables for invalid values").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// fromViper reads the configuration out of v. Boolean toggles set nowhere
// stay nil.
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Runtime:  strings.TrimSpace(v.GetString(KeyRuntime)),
		LogLevel: strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
	}

	var err error
	if cfg.Debug, err = optionalBool(v, KeyDebug); err != nil {
		return nil, err
	}
	if cfg.Cache, err = optionalBool(v, KeyCache); err != nil {
		return nil, err
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{KeyIgnoreVersion, &cfg.IgnoreVersion},
		{KeyIgnoreSettings, &cfg.IgnoreSettings},
		{KeyCacheAlwaysWrite, &cfg.CacheAlwaysWrite},
	}
	for _, f := range flags {
		b, err := optionalBool(v, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = b != nil && *b
	}
	return cfg, nil
}

func optionalBool(v *viper.Viper, key string) (*bool, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	raw := v.Get(key)
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return nil, &InvalidConfigError{Key: key, Value: cast.ToString(raw), Err: err}
	}
	return &b, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, maxConfigFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteDefault writes cfg to the file selected by opts, creating its
// directory. An existing file is only replaced when overwrite is set.
func WriteDefault(opts LoadOptions, cfg *Config, overwrite bool) (string, error) {
	cfgPath, err := Path(opts)
	if err != nil {
		return "", err
	}

	if !overwrite {
		if _, err := os.Stat(cfgPath); err == nil {
			return cfgPath, fmt.Errorf("%w: %s", ErrConfigExists, cfgPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration. Unset
// tri-state toggles are written as comments.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// ionload configuration file\n")
	sb.WriteString("// Environment variables such as ION_PACKAGE_DEBUG override these values.\n\n")

	writeOptional := func(key string, b *bool) {
		if b == nil {
			sb.WriteString(fmt.Sprintf("// %s: false\n", key))
			return
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", key, strconv.FormatBool(*b)))
	}
	writeOptional(KeyDebug, cfg.Debug)
	writeOptional(KeyCache, cfg.Cache)

	sb.WriteString(fmt.Sprintf("%s: %v\n", KeyIgnoreVersion, cfg.IgnoreVersion))
	sb.WriteString(fmt.Sprintf("%s: %v\n", KeyIgnoreSettings, cfg.IgnoreSettings))
	sb.WriteString(fmt.Sprintf("%s: %v\n", KeyCacheAlwaysWrite, cfg.CacheAlwaysWrite))
	sb.WriteString(fmt.Sprintf("%s: %q\n", KeyRuntime, cfg.Runtime))
	sb.WriteString(fmt.Sprintf("%s: %q\n", KeyLogLevel, cfg.LogLevel))

	return sb.String()
}

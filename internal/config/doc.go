// SPDX-License-Identifier: MPL-2.0

// Package config loads the process-wide ionload toggles using Viper with CUE as
// the file format.
//
// Configuration is read from config.cue in the platform config directory
// ($XDG_CONFIG_HOME/ionload on Linux, ~/Library/Application Support/ionload on
// macOS, %APPDATA%\ionload on Windows) or from an explicit file. The file is
// validated against the embedded config_schema.cue. Environment variables such
// as ION_PACKAGE_DEBUG and ION_AUTOLOAD_CACHE take precedence over the file.
//
// Boolean toggles are tri-state: a toggle set nowhere stays nil so the
// per-package detection rules stay in charge.
package config

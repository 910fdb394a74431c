// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for ionload.
//
// This package implements the Cobra command hierarchy for the ionload CLI:
// resolving classes through a package's loader chain, inspecting package
// identity and search paths, managing class-map caches, parsing versions and
// showing the process-wide configuration.
package cmd

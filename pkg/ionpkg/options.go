// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"github.com/charmbracelet/log"

	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/semver"
)

type (
	// Options are the per-package construction arguments. Nil pointers and
	// empty slices mean "not specified" and fall through to the detection
	// rules.
	Options struct {
		Vendor  string
		Project string
		// Root is the package root directory, or a file inside it which then
		// becomes the package entry.
		Root string
		// DevelopmentPaths are searched last, and are the only paths searched
		// in debug mode.
		DevelopmentPaths []string
		// AdditionalPaths are searched before the development paths outside
		// debug mode.
		AdditionalPaths []string
		Version         *semver.Version
		Debug           *bool
		Cache           *bool
		// Adapters names the strategies created per search path. Empty
		// selects PSR-0 followed by PSR-4.
		Adapters []string
	}

	// Toggles are process-wide overrides shared by every package in a
	// Registry. Nil tri-state toggles leave the per-package rules in charge.
	Toggles struct {
		// Debug overrides debug mode for packages not detected as dependencies.
		Debug *bool
		// Cache overrides cache mode for every package.
		Cache *bool
		// IgnoreVersion skips version.json and composer.json.
		IgnoreVersion bool
		// IgnoreSettings skips autoloader.json.
		IgnoreSettings bool
		// CacheAlwaysWrite saves caches even without new entries.
		CacheAlwaysWrite bool
	}

	// RegistryOption configures a Registry.
	RegistryOption func(*Registry)
)

// WithToggles sets the process-wide toggles.
func WithToggles(t Toggles) RegistryOption {
	return func(r *Registry) { r.toggles = t }
}

// WithLogger sets the logger handed to the registry and its adapters.
func WithLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the clock adapters use for cache file comments.
func WithClock(c autoload.Clock) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithDispatcher shares an existing hook chain instead of creating one.
func WithDispatcher(d *autoload.Dispatcher) RegistryOption {
	return func(r *Registry) {
		if d != nil {
			r.dispatcher = d
		}
	}
}

// Bool returns a pointer to b, for Options and Toggles literals.
func Bool(b bool) *bool { return &b }

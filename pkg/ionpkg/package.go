// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/semver"
	"github.com/ionphp/ionload/pkg/settings"
)

// Package is one registered vendor/project with its adapters and hooks.
// Construct it with Registry.Create.
type Package struct {
	registry *Registry

	vendor  string
	project string
	root    string
	entry   string
	version *semver.Version

	settings   *settings.Settings
	dependency Dependency
	debug      bool
	cache      bool

	developmentPaths []string
	additionalPaths  []string
	searchPaths      []string
	adapters         []*autoload.Adapter

	mu    sync.Mutex
	hooks []autoload.HookID
}

// Vendor returns the vendor name.
func (p *Package) Vendor() string { return p.vendor }

// Project returns the project name.
func (p *Package) Project() string { return p.project }

// Name returns "vendor/project".
func (p *Package) Name() string { return packageName(p.vendor, p.project) }

// Root returns the absolute root directory.
func (p *Package) Root() string { return p.root }

// Entry returns the file given as root, or "" when a directory was given.
func (p *Package) Entry() string { return p.entry }

// Version returns the package version, or nil when unknown.
func (p *Package) Version() *semver.Version { return p.version }

// VersionString returns the version as a string, or "" when unknown.
func (p *Package) VersionString() string {
	if p.version == nil {
		return ""
	}
	return p.version.String()
}

// Settings returns the settings read from autoloader.json.
func (p *Package) Settings() *settings.Settings { return p.settings }

// IsDependency returns the dependency detection result.
func (p *Package) IsDependency() Dependency { return p.dependency }

// DebugEnabled reports whether debug mode is on.
func (p *Package) DebugEnabled() bool { return p.debug }

// CacheEnabled reports whether adapters cache resolutions.
func (p *Package) CacheEnabled() bool { return p.cache }

// CacheAlwaysWrite reports whether caches are saved even without new entries.
func (p *Package) CacheAlwaysWrite() bool { return p.registry.toggles.CacheAlwaysWrite }

// DevelopmentPaths returns the development paths as given.
func (p *Package) DevelopmentPaths() []string { return slices.Clone(p.developmentPaths) }

// AdditionalPaths returns the additional paths as given.
func (p *Package) AdditionalPaths() []string { return slices.Clone(p.additionalPaths) }

// SearchPaths returns the resolved directories in search order.
func (p *Package) SearchPaths() []string { return slices.Clone(p.searchPaths) }

// Adapters returns the adapters in hook order.
func (p *Package) Adapters() []*autoload.Adapter { return slices.Clone(p.adapters) }

// Hooks returns the ids of the hooks this package still has registered.
func (p *Package) Hooks() []autoload.HookID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.hooks)
}

// Cache returns the merged class to path entries of every adapter. Earlier
// adapters win on conflicts, matching hook order.
func (p *Package) Cache() map[string]string {
	out := map[string]string{}
	for _, a := range p.adapters {
		for class, path := range a.Entries() {
			if _, ok := out[class]; !ok {
				out[class] = path
			}
		}
	}
	return out
}

// FlushCache saves the cache of every adapter now instead of at Close.
func (p *Package) FlushCache() error {
	var errs []error
	for _, a := range p.adapters {
		if err := a.SaveCache(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("flushing cache of %s: %w", p.Name(), err)
	}
	return nil
}

// Destroy saves pending cache entries, unregisters every hook and removes the
// package from its registry if it still holds this instance. Repeated calls
// are no-ops.
func (p *Package) Destroy() {
	p.registry.mu.Lock()
	defer p.registry.mu.Unlock()
	p.registry.destroyLocked(p)
}

// unhook unregisters the package's hooks and reports whether any were live.
func (p *Package) unhook(d *autoload.Dispatcher) bool {
	p.mu.Lock()
	hooks := p.hooks
	p.hooks = nil
	p.mu.Unlock()

	for _, id := range hooks {
		d.Unregister(id)
	}
	return len(hooks) > 0
}

func packageName(vendor, project string) string {
	return vendor + "/" + project
}

// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/semver"
	"github.com/ionphp/ionload/pkg/settings"
)

const (
	settingDebug = "debug"
	settingCache = "cache"
)

// Create builds a package, registers its hooks and places it in the registry.
// Construction is all or nothing: on error nothing is registered.
func (r *Registry) Create(opts Options) (*Package, error) {
	name := packageName(opts.Vendor, opts.Project)
	if opts.Vendor == "" || opts.Project == "" {
		return nil, &PackageError{Name: name, Kind: ErrInvalidName}
	}

	root, entry, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, &PackageError{Name: name, Root: opts.Root, Kind: ErrInvalidRoot, Err: err}
	}

	st, err := r.loadSettings(root)
	if err != nil {
		return nil, fmt.Errorf("package %q: %w", name, err)
	}

	strategies := autoload.DefaultStrategies()
	if len(opts.Adapters) > 0 {
		if strategies, err = autoload.ParseStrategies(opts.Adapters); err != nil {
			return nil, fmt.Errorf("package %q: %w", name, err)
		}
	}

	p := &Package{
		registry:         r,
		vendor:           opts.Vendor,
		project:          opts.Project,
		root:             root,
		entry:            entry,
		settings:         st,
		dependency:       detectDependency(root),
		developmentPaths: slices.Clone(opts.DevelopmentPaths),
		additionalPaths:  slices.Clone(opts.AdditionalPaths),
	}
	p.debug = r.resolveDebug(opts.Debug, p)
	p.cache = r.resolveCache(opts.Cache, p)

	if p.version, err = r.resolveVersion(opts.Version, root); err != nil {
		return nil, fmt.Errorf("package %q: %w", name, err)
	}

	p.createAdapters(strategies)

	for _, a := range p.adapters {
		p.hooks = append(p.hooks, r.dispatcher.Register(a.Hook()))
		if p.cache {
			r.scheduleSave(a)
		}
	}

	r.register(p)
	r.logger.Debug("package registered",
		"package", name, "version", p.VersionString(), "debug", p.debug, "cache", p.cache,
		"searchPaths", len(p.searchPaths), "adapters", len(p.adapters))
	return p, nil
}

// loadSettings reads autoloader.json unless settings are ignored.
func (r *Registry) loadSettings(root string) (*settings.Settings, error) {
	if r.toggles.IgnoreSettings {
		return settings.New(), nil
	}
	return settings.Load(filepath.Join(root, settings.Filename))
}

// resolveDebug applies, in order: the explicit argument, the process toggle
// (unless the package is a dependency), a true "debug" setting, a version
// control directory in a non-dependency root, and finally false. A false
// setting does not switch debug mode off.
func (r *Registry) resolveDebug(explicit *bool, p *Package) bool {
	if explicit != nil {
		return *explicit
	}
	if r.toggles.Debug != nil && p.dependency != DependencyYes {
		return *r.toggles.Debug
	}
	if p.settings.GetBool(settingDebug, false) {
		return true
	}
	if p.dependency != DependencyYes && hasRepository(p.root) {
		return true
	}
	return false
}

// resolveCache applies, in order: the explicit argument, the process toggle,
// a true "cache" setting, disabled in debug mode, and finally true. A false
// setting does not switch the cache off.
func (r *Registry) resolveCache(explicit *bool, p *Package) bool {
	if explicit != nil {
		return *explicit
	}
	if r.toggles.Cache != nil {
		return *r.toggles.Cache
	}
	if p.settings.GetBool(settingCache, false) {
		return true
	}
	return !p.debug
}

// resolveVersion prefers the explicit version, then version.json, then the
// dependency manifest. Blank manifest files are ignored; malformed ones fail.
func (r *Registry) resolveVersion(explicit *semver.Version, root string) (*semver.Version, error) {
	if explicit != nil {
		return explicit, nil
	}
	if r.toggles.IgnoreVersion {
		return nil, nil
	}

	sources := []struct {
		file  string
		parse func([]byte) (*semver.Version, error)
	}{
		{semver.VersionManifestFilename, semver.ParseVersionManifest},
		{semver.DependencyManifestFilename, semver.ParseDependencyManifest},
	}
	for _, src := range sources {
		path := filepath.Join(root, src.file)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		v, err := src.parse(data)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// createAdapters resolves the candidate paths and creates one adapter per
// strategy for each path that exists. Debug mode searches only the
// development paths.
func (p *Package) createAdapters(strategies []autoload.Strategy) {
	r := p.registry

	var candidates []string
	if !p.debug {
		candidates = append(candidates, p.additionalPaths...)
	}
	candidates = append(candidates, p.developmentPaths...)

	adapterOpts := []autoload.Option{autoload.WithLogger(r.logger)}
	if r.clock != nil {
		adapterOpts = append(adapterOpts, autoload.WithClock(r.clock))
	}

	for _, candidate := range candidates {
		dir, ok := SearchPath(p.root, candidate)
		if !ok {
			r.logger.Debug("skipping search path", "package", p.Name(), "path", candidate)
			continue
		}
		p.searchPaths = append(p.searchPaths, dir)
		for _, s := range strategies {
			p.adapters = append(p.adapters, autoload.NewAdapter(p, s, dir, r.runtime, adapterOpts...))
		}
	}
}

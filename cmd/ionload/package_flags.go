// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/internal/issue"
	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/ionpkg"
	"github.com/ionphp/ionload/pkg/semver"
)

const defaultDevelopmentPath = "src"

type (
	// packageFlags are the flags shared by every command that builds a package.
	packageFlags struct {
		vendor     string
		project    string
		purl       string
		dev        []string
		paths      []string
		debug      bool
		cache      bool
		adapters   []string
		runtime    string
		pkgVersion string
	}

	// session is a package built for one command invocation.
	session struct {
		registry *ionpkg.Registry
		pkg      *ionpkg.Package
		tracker  *autoload.Tracker
		logger   *log.Logger
	}
)

// register adds the package flags to cmd.
func (f *packageFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.vendor, "vendor", "", "package vendor (default from composer.json)")
	fl.StringVar(&f.project, "project", "", "package project (default from composer.json)")
	fl.StringVar(&f.purl, "purl", "", "package identity as a composer package-url, e.g. pkg:composer/acme/widgets@1.2.0")
	f.registerPaths(cmd)
	fl.BoolVar(&f.debug, "debug", false, "force debug mode on or off")
	fl.BoolVar(&f.cache, "cache", false, "force the class-map cache on or off")
	fl.StringSliceVar(&f.adapters, "adapter", nil, "loader strategy, psr0 or psr4 (repeatable, default psr0 then psr4)")
	fl.StringVar(&f.runtime, "runtime", "", "runtime version as major.minor (default from configuration)")
	fl.StringVar(&f.pkgVersion, "pkg-version", "", "explicit package version")
}

// registerPaths adds only the search path flags to cmd.
func (f *packageFlags) registerPaths(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringSliceVar(&f.dev, "dev", []string{defaultDevelopmentPath}, "development path relative to the root (repeatable)")
	fl.StringSliceVar(&f.paths, "path", nil, "additional path searched outside debug mode (repeatable)")
}

// openPackage builds the package rooted at root in a fresh registry.
func (a *App) openPackage(cmd *cobra.Command, f *packageFlags, root string) (*session, error) {
	rtString := a.cfg.Runtime
	if f.runtime != "" {
		rtString = f.runtime
	}
	rv, err := autoload.ParseRuntimeVersion(rtString)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse runtime version").
			WithResource(rtString).
			WithSuggestion("Pass the runtime as major.minor, e.g. --runtime 8.1").
			Wrap(err).
			BuildError()
	}

	opts, err := f.options(cmd, root)
	if err != nil {
		return nil, err
	}

	tracker := autoload.NewTracker(rv)
	regOpts := []ionpkg.RegistryOption{
		ionpkg.WithToggles(a.cfg.Toggles()),
		ionpkg.WithLogger(a.logger),
	}
	if a.Clock != nil {
		regOpts = append(regOpts, ionpkg.WithClock(a.Clock))
	}
	registry := ionpkg.NewRegistry(tracker, regOpts...)

	p, err := registry.Create(opts)
	if err != nil {
		if errors.Is(err, ionpkg.ErrInvalidName) {
			return nil, issue.NewErrorContext().
				WithOperation("create package").
				WithResource(root).
				WithSuggestion("Pass --vendor and --project, or --purl").
				WithSuggestion("Add a \"name\": \"vendor/project\" field to composer.json").
				Wrap(err).
				BuildError()
		}
		return nil, err
	}
	return &session{registry: registry, pkg: p, tracker: tracker, logger: a.logger}, nil
}

// close saves the package's caches the way a host does when it exits.
// Failures are logged and never change the command's result.
func (s *session) close() {
	if err := s.registry.Close(); err != nil {
		s.logger.Warn("cache not saved", "package", packageSummary(s.pkg), "error", err)
	}
}

// options converts the flags into package options. Identity comes from
// --purl, then --vendor/--project, then the composer.json name field.
func (f *packageFlags) options(cmd *cobra.Command, root string) (ionpkg.Options, error) {
	opts := ionpkg.Options{
		Vendor:           f.vendor,
		Project:          f.project,
		Root:             root,
		DevelopmentPaths: f.dev,
		AdditionalPaths:  f.paths,
		Adapters:         f.adapters,
	}

	versionString := f.pkgVersion
	if f.purl != "" {
		vendor, project, version, err := ionpkg.ParsePURL(f.purl)
		if err != nil {
			return opts, err
		}
		opts.Vendor, opts.Project = vendor, project
		if versionString == "" {
			versionString = version
		}
	}
	if opts.Vendor == "" || opts.Project == "" {
		vendor, project := composerName(root)
		if opts.Vendor == "" {
			opts.Vendor = vendor
		}
		if opts.Project == "" {
			opts.Project = project
		}
	}

	if versionString != "" {
		v, err := semver.Parse(versionString)
		if err != nil {
			return opts, err
		}
		opts.Version = v
	}

	if cmd.Flags().Changed("debug") {
		opts.Debug = ionpkg.Bool(f.debug)
	}
	if cmd.Flags().Changed("cache") {
		opts.Cache = ionpkg.Bool(f.cache)
	}
	return opts, nil
}

// composerName reads the "vendor/project" name field of the composer.json
// next to root. Missing or unusable files yield empty names.
func composerName(root string) (vendor, project string) {
	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}

	data, err := os.ReadFile(filepath.Join(dir, semver.DependencyManifestFilename))
	if err != nil {
		return "", ""
	}
	var manifest struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", ""
	}
	vendor, project, ok := strings.Cut(manifest.Name, "/")
	if !ok {
		return "", ""
	}
	return vendor, project
}

// searchDirs returns root and its existing development and additional paths,
// without duplicates.
func (f *packageFlags) searchDirs(root string) ([]string, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ionpkg.ErrInvalidRoot, err)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return nil, err
	}

	dirs := []string{resolved}
	seen := map[string]bool{resolved: true}
	for _, p := range append(append([]string(nil), f.paths...), f.dev...) {
		dir, ok := ionpkg.SearchPath(resolved, p)
		if !ok || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// relPath returns path relative to base when it lies below it.
func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

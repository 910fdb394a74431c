// SPDX-License-Identifier: MPL-2.0

package autoload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type (
	// Owner supplies the package-level state an Adapter consults.
	Owner interface {
		// VersionString returns the package version, or "" when unknown.
		VersionString() string
		// CacheEnabled reports whether resolutions are cached.
		CacheEnabled() bool
		// CacheAlwaysWrite reports whether SaveCache writes even without new entries.
		CacheAlwaysWrite() bool
	}

	// Clock supplies the time stamped into cache file comments.
	Clock interface {
		Now() time.Time
	}

	// Option configures an Adapter.
	Option func(*Adapter)

	// Stats counts what an Adapter did since it was created.
	Stats struct {
		// Loads is the number of Load calls.
		Loads int
		// CacheHits is the number of Load calls served from the cache.
		CacheHits int
		// Probes is the number of naming-convention resolutions.
		Probes int
		// Misses is the number of Load calls that found nothing.
		Misses int
	}

	// Adapter resolves class names to files under one include path with a
	// single Strategy, optionally caching resolutions on disk.
	Adapter struct {
		owner        Owner
		strategy     Strategy
		includePath  string
		runtime      Runtime
		deploymentID string
		logger       *log.Logger
		clock        Clock

		mu    sync.Mutex
		cache map[string]CacheEntry
		dirty bool
		stats Stats
	}

	realClock struct{}
)

func (realClock) Now() time.Time { return time.Now() }

// WithLogger sets the logger used for resolution and cache events.
func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the clock used for cache file comments.
func WithClock(c Clock) Option {
	return func(a *Adapter) {
		if c != nil {
			a.clock = c
		}
	}
}

// NewAdapter creates an adapter for includePath. When the owner has caching
// enabled, a previously saved cache for the same deployment is loaded.
func NewAdapter(owner Owner, strategy Strategy, includePath string, rt Runtime, opts ...Option) *Adapter {
	includePath = filepath.Clean(includePath)

	a := &Adapter{
		owner:        owner,
		strategy:     strategy,
		includePath:  includePath,
		runtime:      rt,
		deploymentID: DeploymentID(includePath, rt.Version(), owner.VersionString()),
		logger:       log.New(io.Discard),
		clock:        realClock{},
		cache:        map[string]CacheEntry{},
	}
	for _, opt := range opts {
		opt(a)
	}

	if owner.CacheEnabled() {
		a.LoadCache()
	}
	return a
}

// Strategy returns the naming convention of the adapter.
func (a *Adapter) Strategy() Strategy { return a.strategy }

// IncludePath returns the root directory searched by the adapter.
func (a *Adapter) IncludePath() string { return a.includePath }

// DeploymentID returns the id naming the adapter's cache file.
func (a *Adapter) DeploymentID() string { return a.deploymentID }

// CachePath returns the location of the adapter's cache file.
func (a *Adapter) CachePath() string {
	return filepath.Join(a.includePath, CacheFilename(a.deploymentID))
}

// Hook returns the adapter's Load method as a dispatcher hook.
func (a *Adapter) Hook() Hook { return a.Load }

// Dirty reports whether the cache holds entries that were not saved yet.
func (a *Adapter) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Entries returns a copy of the cached class name to path mapping.
func (a *Adapter) Entries() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(a.cache))
	for class, entry := range a.cache {
		out[class] = entry.Path
	}
	return out
}

// Stats returns the adapter's counters.
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Load resolves className, includes the file through the runtime and reports
// success. Failed lookups are never cached and are retried on every call.
// The adapter lock is not held while the runtime includes a file, so the
// included code may resolve further classes through the same adapter.
func (a *Adapter) Load(className string) bool {
	key := strings.TrimPrefix(className, NamespaceSeparator)
	cacheEnabled := a.owner.CacheEnabled()

	a.mu.Lock()
	a.stats.Loads++
	cached, hit := a.cache[key]
	a.mu.Unlock()

	if cacheEnabled && hit && fileExists(cached.Path) && a.include(cached.Path, key) {
		a.mu.Lock()
		a.stats.CacheHits++
		a.mu.Unlock()
		return true
	}

	path, ok := a.strategy.Resolve(a.includePath, key)
	found := ok && a.include(path, key)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Probes++
	if !found {
		a.stats.Misses++
		a.logger.Debug("class not found", "class", key, "strategy", a.strategy, "path", a.includePath)
		return false
	}
	if cacheEnabled {
		entry := CacheEntry{Path: path, Strategy: a.strategy.String()}
		if prev, exists := a.cache[key]; !exists || prev != entry {
			a.cache[key] = entry
			a.dirty = true
		}
	}
	return true
}

func (a *Adapter) include(path, className string) bool {
	if err := a.runtime.Include(path); err != nil {
		a.logger.Warn("failed to include class file", "class", className, "file", path, "error", err)
		return false
	}
	a.logger.Debug("class loaded", "class", className, "file", path, "strategy", a.strategy)
	return true
}

// LoadCache replaces the in-memory cache with the saved cache file for this
// deployment, keeping the entries resolved by this adapter's strategy. It
// reports false, leaving the cache empty, when no usable file exists.
func (a *Adapter) LoadCache() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cache = map[string]CacheEntry{}
	a.dirty = false

	path := a.CachePath()
	doc, ok := readCacheDocument(path)
	if !ok || (doc.DeploymentID != "" && doc.DeploymentID != a.deploymentID) {
		return false
	}

	for class, entry := range doc.Entries {
		if class == "" || entry.Path == "" {
			continue
		}
		if entry.Strategy != "" && entry.Strategy != a.strategy.String() {
			continue
		}
		a.cache[class] = entry
	}
	a.logger.Debug("cache loaded", "file", path, "entries", len(a.cache))
	return true
}

// SaveCache writes the cache file when it has unsaved entries, or always when
// the owner requests it. Saving is skipped when the include path is not an
// existing directory or cannot be written.
func (a *Adapter) SaveCache() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.dirty && !(a.owner.CacheEnabled() && a.owner.CacheAlwaysWrite()) {
		return nil
	}
	if !dirExists(a.includePath) {
		a.logger.Debug("cache not saved: include path is not a directory", "path", a.includePath)
		return nil
	}

	path := a.CachePath()
	entries := maps.Clone(a.cache)
	// Adapters sharing an include path share the file; keep their entries.
	if onDisk, ok := readCacheDocument(path); ok && onDisk.DeploymentID == a.deploymentID {
		for class, entry := range onDisk.Entries {
			if _, exists := entries[class]; !exists && class != "" && entry.Path != "" {
				entries[class] = entry
			}
		}
	}

	doc := cacheDocument{
		Comment:      a.comment(),
		DeploymentID: a.deploymentID,
		Entries:      entries,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding autoload cache: %w", err)
	}

	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			a.logger.Debug("cache not saved: permission denied", "file", path)
			return nil
		}
		return fmt.Errorf("saving autoload cache %s: %w", path, err)
	}

	a.dirty = false
	a.logger.Debug("cache saved", "file", path, "entries", len(entries))
	return nil
}

func (a *Adapter) comment() string {
	var b strings.Builder
	fmt.Fprintf(&b, "This file was auto-generated for runtime version %s ", a.runtime.Version())
	if v := a.owner.VersionString(); v != "" {
		fmt.Fprintf(&b, "and package version %s, ", v)
	}
	fmt.Fprintf(&b, "on %s and can be safely deleted.", a.clock.Now().UTC().Format(time.RFC3339))
	return b.String()
}

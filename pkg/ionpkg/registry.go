// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"errors"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ionphp/ionload/pkg/autoload"
)

// Registry owns the live package instances, their shared hook chain and the
// cache saves scheduled for shutdown.
type Registry struct {
	runtime    autoload.Runtime
	dispatcher *autoload.Dispatcher
	toggles    Toggles
	logger     *log.Logger
	clock      autoload.Clock

	mu        sync.Mutex
	instances map[string]*Package
	onClose   []*autoload.Adapter
	closed    bool
}

// NewRegistry creates an empty registry whose adapters include files through rt.
func NewRegistry(rt autoload.Runtime, opts ...RegistryOption) *Registry {
	r := &Registry{
		runtime:   rt,
		logger:    log.New(io.Discard),
		instances: map[string]*Package{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dispatcher == nil {
		r.dispatcher = autoload.NewDispatcher()
	}
	return r
}

// Runtime returns the runtime adapters include files through.
func (r *Registry) Runtime() autoload.Runtime { return r.runtime }

// Dispatcher returns the hook chain every package registers into.
func (r *Registry) Dispatcher() *autoload.Dispatcher { return r.dispatcher }

// Toggles returns the process-wide toggles.
func (r *Registry) Toggles() Toggles { return r.toggles }

// Resolve runs the hook chain for className.
func (r *Registry) Resolve(className string) bool {
	return r.dispatcher.Resolve(className)
}

// Get returns the registered instance of vendor/project, or nil.
func (r *Registry) Get(vendor, project string) *Package {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[packageName(vendor, project)]
}

// Has reports whether vendor/project has a registered instance.
func (r *Registry) Has(vendor, project string) bool {
	return r.Get(vendor, project) != nil
}

// Instances returns every registered instance ordered by name.
func (r *Registry) Instances() []*Package {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := slices.Sorted(maps.Keys(r.instances))
	out := make([]*Package, 0, len(names))
	for _, name := range names {
		out = append(out, r.instances[name])
	}
	return out
}

// Close saves the cache of every cache-enabled adapter created by this
// registry, including adapters of destroyed packages. Later calls do nothing.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	adapters := r.onClose
	r.onClose = nil
	r.mu.Unlock()

	var errs []error
	for _, a := range adapters {
		if err := a.SaveCache(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// register places p in its name slot. A strictly lower incoming version
// destroys the higher registered instance first. Unknown versions on either
// side, or equal versions, simply overwrite the slot.
func (r *Registry) register(p *Package) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if existing, ok := r.instances[name]; ok && existing != p {
		if p.version != nil && existing.version != nil && p.version.IsLowerThan(existing.version) {
			r.logger.Debug("destroying superseded package",
				"package", name, "existing", existing.version, "incoming", p.version)
			r.destroyLocked(existing)
		}
	}
	r.instances[name] = p
}

// scheduleSave queues a cache save for Close.
func (r *Registry) scheduleSave(a *autoload.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = append(r.onClose, a)
}

// destroyLocked tears p down. The caller must hold r.mu.
func (r *Registry) destroyLocked(p *Package) {
	if p.unhook(r.dispatcher) && p.cache {
		if err := p.FlushCache(); err != nil {
			r.logger.Warn("failed to save cache of destroyed package", "package", p.Name(), "error", err)
		}
	}
	if r.instances[p.Name()] == p {
		delete(r.instances, p.Name())
	}
}

// SPDX-License-Identifier: MPL-2.0

package autoload

import "sync"

type (
	// Hook tries to load className and reports whether it succeeded.
	Hook func(className string) bool

	// HookID identifies a registered hook. The zero value is never issued.
	HookID uint64

	// Dispatcher is an ordered chain of class resolution hooks. Registering a
	// hook never replaces an earlier one.
	Dispatcher struct {
		mu    sync.RWMutex
		next  HookID
		hooks []registeredHook
	}

	registeredHook struct {
		id   HookID
		hook Hook
	}
)

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register appends h to the chain and returns its id.
func (d *Dispatcher) Register(h Hook) HookID {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	d.hooks = append(d.hooks, registeredHook{id: d.next, hook: h})
	return d.next
}

// Unregister removes the hook with the given id. It reports whether the hook
// was registered.
func (d *Dispatcher) Unregister(id HookID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, rh := range d.hooks {
		if rh.id == id {
			d.hooks = append(d.hooks[:i:i], d.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve calls each hook in registration order until one succeeds.
// Hooks run without the dispatcher lock held, so they may register or
// unregister hooks themselves.
func (d *Dispatcher) Resolve(className string) bool {
	d.mu.RLock()
	hooks := make([]Hook, len(d.hooks))
	for i, rh := range d.hooks {
		hooks[i] = rh.hook
	}
	d.mu.RUnlock()

	for _, h := range hooks {
		if h(className) {
			return true
		}
	}
	return false
}

// Len returns the number of registered hooks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hooks)
}

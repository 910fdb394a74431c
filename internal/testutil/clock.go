// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually controlled clock for deterministic cache comments
// and timestamps. It satisfies autoload.Clock and ionpkg's clock option.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// ReferenceTime is the default FakeClock time.
var ReferenceTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// NewFakeClock creates a FakeClock set to initial, or to ReferenceTime when
// initial is zero.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = ReferenceTime
	}
	return &FakeClock{current: initial}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set sets the fake time to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// SPDX-License-Identifier: MPL-2.0

package autoload

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidRuntimeVersion is returned when a runtime version string is not "major.minor".
var ErrInvalidRuntimeVersion = errors.New("invalid runtime version")

type (
	// RuntimeVersion is the major/minor version of the host runtime. It is part
	// of every deployment id, so a runtime upgrade invalidates all caches.
	RuntimeVersion struct {
		Major int
		Minor int
	}

	// Runtime is the host that loads resolved source files.
	Runtime interface {
		// Version returns the host runtime version.
		Version() RuntimeVersion
		// Include loads the source file at path.
		Include(path string) error
	}

	// Tracker is a Runtime that records included files instead of executing
	// them. It backs the CLI and tests.
	Tracker struct {
		version  RuntimeVersion
		mu       sync.Mutex
		included []string
	}
)

// String returns the version as "major.minor".
func (v RuntimeVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseRuntimeVersion parses a "major.minor" string such as "8.1".
func ParseRuntimeVersion(s string) (RuntimeVersion, error) {
	major, minor, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return RuntimeVersion{}, fmt.Errorf("%w: %q", ErrInvalidRuntimeVersion, s)
	}
	maj, err := strconv.Atoi(major)
	if err != nil || maj < 0 {
		return RuntimeVersion{}, fmt.Errorf("%w: %q", ErrInvalidRuntimeVersion, s)
	}
	minr, err := strconv.Atoi(minor)
	if err != nil || minr < 0 {
		return RuntimeVersion{}, fmt.Errorf("%w: %q", ErrInvalidRuntimeVersion, s)
	}
	return RuntimeVersion{Major: maj, Minor: minr}, nil
}

// NewTracker creates a Tracker reporting the given runtime version.
func NewTracker(v RuntimeVersion) *Tracker {
	return &Tracker{version: v}
}

// Version returns the configured runtime version.
func (t *Tracker) Version() RuntimeVersion {
	return t.version
}

// Include records path after checking that it is a readable regular file.
func (t *Tracker) Include(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("include %s: not a regular file", path)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.included = append(t.included, path)
	return nil
}

// Included returns every recorded path in include order.
func (t *Tracker) Included() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.included)
}

// Has reports whether path was included at least once.
func (t *Tracker) Has(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Contains(t.included, path)
}

// Last returns the most recently included path, or "" if nothing was included.
func (t *Tracker) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.included) == 0 {
		return ""
	}
	return t.included[len(t.included)-1]
}

// Reset forgets every recorded include.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.included = nil
}

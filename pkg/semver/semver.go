// SPDX-License-Identifier: MPL-2.0

package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	modsemver "golang.org/x/mod/semver"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

type (
	// Version is an immutable semantic version. The zero value is 0.0.0.
	Version struct {
		major   uint64
		minor   uint64
		patch   uint64
		release string
		build   []string
	}

	// InvalidVersionError is returned when a string is not a canonical
	// major.minor.patch[-release][+build] version.
	InvalidVersionError struct {
		Value string
	}
)

// canonicalRegex matches a complete canonical version, with an optional "v" prefix.
var canonicalRegex = regexp.MustCompile(
	`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
		`(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
		`(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// New builds a version directly from its components.
func New(major, minor, patch uint64, release string, build ...string) *Version {
	v := &Version{major: major, minor: minor, patch: patch, release: release}
	if len(build) > 0 {
		v.build = append([]string(nil), build...)
	}
	return v
}

// Parse parses a canonical version string such as "1.2.3", "v2.0.0-rc.1" or
// "1.0.0-beta+exp.sha.5114f85".
func Parse(s string) (*Version, error) {
	matches := canonicalRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return nil, &InvalidVersionError{Value: s}
	}

	var parts [3]uint64
	for i := range parts {
		n, err := strconv.ParseUint(matches[i+1], 10, 64)
		if err != nil {
			return nil, &InvalidVersionError{Value: s}
		}
		parts[i] = n
	}

	var build []string
	if matches[5] != "" {
		build = strings.Split(matches[5], ".")
	}

	return New(parts[0], parts[1], parts[2], matches[4], build...), nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests and constants.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major version number.
func (v *Version) Major() uint64 { return v.major }

// Minor returns the minor version number.
func (v *Version) Minor() uint64 { return v.minor }

// Patch returns the patch version number.
func (v *Version) Patch() uint64 { return v.patch }

// Release returns the pre-release label, or "" when there is none.
func (v *Version) Release() string { return v.release }

// Build returns a copy of the build metadata identifiers.
func (v *Version) Build() []string {
	if len(v.build) == 0 {
		return nil
	}
	return append([]string(nil), v.build...)
}

// Compare returns -1 if v < other, 0 if v == other, 1 if v > other.
// Build metadata is ignored. A release label sorts below the same
// major.minor.patch without one.
func (v *Version) Compare(other *Version) int {
	if c := compareUint(v.major, other.major); c != 0 {
		return c
	}
	if c := compareUint(v.minor, other.minor); c != 0 {
		return c
	}
	if c := compareUint(v.patch, other.patch); c != 0 {
		return c
	}

	switch {
	case v.release == other.release:
		return 0
	case v.release == "":
		return 1
	case other.release == "":
		return -1
	}

	return modsemver.Compare("v0.0.0-"+v.release, "v0.0.0-"+other.release)
}

// IsHigherThan reports whether v sorts strictly after other.
func (v *Version) IsHigherThan(other *Version) bool { return v.Compare(other) > 0 }

// IsLowerThan reports whether v sorts strictly before other.
func (v *Version) IsLowerThan(other *Version) bool { return v.Compare(other) < 0 }

// IsEqualTo reports whether v and other have the same precedence.
func (v *Version) IsEqualTo(other *Version) bool { return v.Compare(other) == 0 }

// String returns the canonical form major.minor.patch[-release][+build].
func (v *Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.major, v.minor, v.patch)
	if v.release != "" {
		sb.WriteString("-")
		sb.WriteString(v.release)
	}
	if len(v.build) > 0 {
		sb.WriteString("+")
		sb.WriteString(strings.Join(v.build, "."))
	}
	return sb.String()
}

// Tag returns the version formatted as a VCS tag ("v" + String()).
func (v *Version) Tag() string { return "v" + v.String() }

// ToMap returns the version components keyed by name.
func (v *Version) ToMap() map[string]any {
	var release any
	if v.release != "" {
		release = v.release
	}
	return map[string]any{
		"major":   v.major,
		"minor":   v.minor,
		"patch":   v.patch,
		"release": release,
		"build":   v.Build(),
	}
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

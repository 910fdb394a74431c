// SPDX-License-Identifier: MPL-2.0

package autoload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// NamespaceSeparator separates the segments of a class name.
	NamespaceSeparator = `\`
	// SourceExtension is appended to every candidate file name.
	SourceExtension = ".php"
)

// Strategy names the naming convention an Adapter uses.
type Strategy int

const (
	// PSR0 maps every namespace segment to a directory.
	PSR0 Strategy = iota
	// PSR4 maps only the last namespace segment, falling back to PSR0.
	PSR4
)

// ErrInvalidAdapter is the sentinel error wrapped by InvalidAdapterError.
var ErrInvalidAdapter = errors.New("invalid loader adapter")

// InvalidAdapterError is returned for an adapter name that does not select a Strategy.
type InvalidAdapterError struct {
	Name string
}

// Error implements the error interface.
func (e *InvalidAdapterError) Error() string {
	return fmt.Sprintf("invalid loader adapter %q (expected psr0 or psr4)", e.Name)
}

// Unwrap returns ErrInvalidAdapter so callers can use errors.Is for programmatic detection.
func (e *InvalidAdapterError) Unwrap() error { return ErrInvalidAdapter }

// DefaultStrategies is the adapter pair created per search path when the
// caller names none.
func DefaultStrategies() []Strategy {
	return []Strategy{PSR0, PSR4}
}

// String returns the canonical lower-case strategy name.
func (s Strategy) String() string {
	switch s {
	case PSR0:
		return "psr0"
	case PSR4:
		return "psr4"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy selects a Strategy by name. Accepted names are "psr0" and
// "psr4" in any case, and the adapter class names "Psr0LoaderAdapter" and
// "Psr4LoaderAdapter", optionally namespace-qualified.
func ParseStrategy(name string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndex(key, NamespaceSeparator); i >= 0 {
		key = key[i+1:]
	}
	key = strings.TrimSuffix(key, "loaderadapter")
	key = strings.ReplaceAll(key, "-", "")

	switch key {
	case "psr0":
		return PSR0, nil
	case "psr4":
		return PSR4, nil
	default:
		return 0, &InvalidAdapterError{Name: name}
	}
}

// ParseStrategies parses every name, failing on the first invalid one.
func ParseStrategies(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, err := ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Candidates returns the files the strategy probes for className under
// includePath, in probe order. It returns nil for names that cannot map to a
// file inside includePath.
func (s Strategy) Candidates(includePath, className string) []string {
	segments, ok := splitClassName(className)
	if !ok {
		return nil
	}

	psr0 := joinSegments(includePath, segments)
	if s != PSR4 || len(segments) == 1 {
		return []string{psr0}
	}
	return []string{joinSegments(includePath, segments[len(segments)-1:]), psr0}
}

// Resolve returns the first candidate that exists as a regular file.
func (s Strategy) Resolve(includePath, className string) (string, bool) {
	for _, candidate := range s.Candidates(includePath, className) {
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// splitClassName splits a class name on namespace separators. A leading
// separator is ignored. Names with empty, "." or ".." segments, forward
// slashes or NUL bytes are rejected.
func splitClassName(className string) ([]string, bool) {
	name := strings.TrimPrefix(className, NamespaceSeparator)
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return nil, false
	}

	segments := strings.Split(name, NamespaceSeparator)
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return nil, false
		}
	}
	return segments, true
}

func joinSegments(includePath string, segments []string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, includePath)
	parts = append(parts, segments...)
	return filepath.Join(parts...) + SourceExtension
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

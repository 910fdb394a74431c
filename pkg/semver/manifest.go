// SPDX-License-Identifier: MPL-2.0

package semver

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

const (
	// VersionManifestFilename is the dedicated version file checked first.
	VersionManifestFilename = "version.json"
	// DependencyManifestFilename is the package-manager descriptor used as a fallback.
	DependencyManifestFilename = "composer.json"

	versionField = "version"
)

// ErrInvalidManifest is the sentinel error wrapped by ManifestError.
var ErrInvalidManifest = errors.New("invalid manifest")

// ManifestError is returned when a manifest is not well-formed JSON.
type ManifestError struct {
	Err error
}

// tokenRegex finds a canonical version embedded in a constraint string such as "^1.2.3".
var tokenRegex = regexp.MustCompile(
	`(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)` +
		`(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?` +
		`(?:\+[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?`)

// Error implements the error interface.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid manifest JSON: %v", e.Err)
}

// Unwrap returns ErrInvalidManifest so callers can use errors.Is for programmatic detection.
func (e *ManifestError) Unwrap() error { return ErrInvalidManifest }

// ParseVersionManifest reads the "version" field of a version.json document.
// It returns (nil, nil) when the field is absent or not a canonical version.
func ParseVersionManifest(data []byte) (*Version, error) {
	field, ok, err := versionFieldOf(data)
	if err != nil || !ok {
		return nil, err
	}

	v, parseErr := Parse(field)
	if parseErr != nil {
		return nil, nil
	}
	return v, nil
}

// ParseDependencyManifest reads the "version" field of a dependency manifest
// (e.g. composer.json). The field may be a constraint; the first canonical
// version token in it is used. It returns (nil, nil) when no token exists.
func ParseDependencyManifest(data []byte) (*Version, error) {
	field, ok, err := versionFieldOf(data)
	if err != nil || !ok {
		return nil, err
	}

	for _, token := range tokenRegex.FindAllString(field, -1) {
		if v, parseErr := Parse(token); parseErr == nil {
			return v, nil
		}
	}
	return nil, nil
}

// versionFieldOf decodes data and returns its string "version" field.
// Only structurally invalid JSON is reported as an error.
func versionFieldOf(data []byte) (string, bool, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false, &ManifestError{Err: err}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return "", false, nil
	}
	field, ok := obj[versionField].(string)
	return field, ok, nil
}

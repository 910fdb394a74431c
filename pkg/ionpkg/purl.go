// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"errors"
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

// PURLType is the package-url type of every package.
const PURLType = "composer"

// ErrInvalidPURL is returned by ParsePURL for identities it cannot use.
var ErrInvalidPURL = errors.New("invalid package url")

// PURL returns the package-url identity, such as
// "pkg:composer/ion/autoloader@1.2.0". The version is omitted when unknown.
func (p *Package) PURL() string {
	return packageurl.NewPackageURL(PURLType, p.vendor, p.project, p.VersionString(), nil, "").ToString()
}

// ParsePURL extracts vendor, project and the optional version from a
// composer package-url.
func ParsePURL(s string) (vendor, project, version string, err error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %w", ErrInvalidPURL, err)
	}
	if p.Type != PURLType {
		return "", "", "", fmt.Errorf("%w: type %q is not %q", ErrInvalidPURL, p.Type, PURLType)
	}
	if p.Namespace == "" || p.Name == "" {
		return "", "", "", fmt.Errorf("%w: %q needs both vendor and project", ErrInvalidPURL, s)
	}
	return p.Namespace, p.Name, p.Version, nil
}

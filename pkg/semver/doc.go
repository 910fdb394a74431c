// SPDX-License-Identifier: MPL-2.0

// Package semver implements the small semantic-version model used to decide
// which of several registered instances of the same package stays active.
//
// Versions are read from a package's version.json file, falling back to the
// "version" field of its composer.json, where a constraint such as "^1.2.3"
// is reduced to its first canonical version token.
package semver

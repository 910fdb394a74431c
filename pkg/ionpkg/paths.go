// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

const vendorDirName = "vendor"

// Dependency records whether a package was detected as an installed dependency.
type Dependency int

const (
	// DependencyUnknown means nothing marks the package as a dependency. It is
	// treated as "not a dependency" by the debug rules.
	DependencyUnknown Dependency = iota
	// DependencyYes means the package root lies inside a vendor directory.
	DependencyYes
)

// vcsDirs mark a working copy, which enables debug mode for non-dependencies.
var vcsDirs = []string{".git", ".hg"}

// String returns "yes" or "unknown".
func (d Dependency) String() string {
	if d == DependencyYes {
		return "yes"
	}
	return "unknown"
}

// SearchPath resolves path relative to root into an absolute directory with
// symlinks, "." and ".." resolved. It reports false when the result is not an
// existing directory.
func SearchPath(root, path string) (string, bool) {
	trimmed := strings.Trim(path, `/\`)
	joined := filepath.Join(root, filepath.FromSlash(trimmed))

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", false
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", false
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return resolved, true
}

// CallerRoot returns the directory of the source file that called it. Hosts
// that want the package root inferred from their own location pass its
// result as Options.Root.
func CallerRoot() string {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return ""
	}
	return filepath.Dir(file)
}

// resolveRoot returns the absolute, symlink-free root directory and, when
// root names a file, that file as the entry.
func resolveRoot(root string) (dir, entry string, err error) {
	if strings.TrimSpace(root) == "" {
		return "", "", fmt.Errorf("no root given")
	}

	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", "", err
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		return resolved, "", nil
	}
	return filepath.Dir(resolved), resolved, nil
}

// detectDependency reports DependencyYes when any segment of root is "vendor".
func detectDependency(root string) Dependency {
	segments := strings.FieldsFunc(filepath.ToSlash(root), func(r rune) bool { return r == '/' })
	if slices.Contains(segments, vendorDirName) {
		return DependencyYes
	}
	return DependencyUnknown
}

// hasRepository reports whether root holds a version control directory.
func hasRepository(root string) bool {
	for _, name := range vcsDirs {
		if info, err := os.Stat(filepath.Join(root, name)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

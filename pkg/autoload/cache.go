// SPDX-License-Identifier: MPL-2.0

package autoload

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const (
	// CacheFilePrefix starts the name of every generated cache file.
	CacheFilePrefix = "ion-auto-load"
	// CacheFileExtension is the extension of generated cache files.
	CacheFileExtension = "json"
)

type (
	// CacheEntry is one persisted resolution. Adapters sharing an include
	// path share the cache file, so each entry names the strategy that
	// resolved it.
	CacheEntry struct {
		Path     string `json:"path"`
		Strategy string `json:"strategy,omitempty"`
	}

	// cacheDocument is the on-disk cache format. Comment is informational
	// and never read back.
	cacheDocument struct {
		Comment      string                `json:"comment"`
		DeploymentID string                `json:"deployment_id"`
		Entries      map[string]CacheEntry `json:"entries"`
	}
)

// DeploymentID returns the stable identifier of an include path deployed
// under a runtime version and package version. Changing any input yields a
// different id and therefore a different cache file.
func DeploymentID(includePath string, rv RuntimeVersion, pkgVersion string) string {
	h := xxhash.New()
	for _, part := range []string{includePath, strconv.Itoa(rv.Major), strconv.Itoa(rv.Minor), pkgVersion} {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// CacheFilename returns the cache file name for a deployment id.
func CacheFilename(deploymentID string) string {
	return CacheFilePrefix + "-" + deploymentID + "." + CacheFileExtension
}

// RemoveCacheFiles deletes every generated cache file directly inside dir and
// returns the removed paths. A missing directory is not an error.
func RemoveCacheFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, CacheFilePrefix+"-*."+CacheFileExtension))
	if err != nil {
		return nil, fmt.Errorf("listing cache files: %w", err)
	}

	var removed []string
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing cache file %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// readCacheDocument decodes a cache file. It reports false for a missing or
// unreadable file, invalid JSON or a document without an entries object.
func readCacheDocument(path string) (cacheDocument, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheDocument{}, false
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return cacheDocument{}, false
	}
	if doc.Entries == nil {
		return cacheDocument{}, false
	}
	return doc, true
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers never observe a partial document.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+CacheFilePrefix+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting cache file permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	renamed = true
	return nil
}

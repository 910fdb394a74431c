// SPDX-License-Identifier: MPL-2.0

package autoload

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ionphp/ionload/internal/testutil"
)

type (
	fakeOwner struct {
		version     string
		cache       bool
		alwaysWrite bool
	}

	failingRuntime struct {
		*Tracker
	}

	// nestingRuntime runs onInclude after recording each include, the way a
	// host triggers autoloading of a parent class while loading a child.
	nestingRuntime struct {
		*Tracker
		onInclude func(path string)
	}
)

func (o *fakeOwner) VersionString() string  { return o.version }
func (o *fakeOwner) CacheEnabled() bool     { return o.cache }
func (o *fakeOwner) CacheAlwaysWrite() bool { return o.alwaysWrite }

func (failingRuntime) Include(path string) error {
	return errors.New("syntax error in " + path)
}

func (r nestingRuntime) Include(path string) error {
	if err := r.Tracker.Include(path); err != nil {
		return err
	}
	r.onInclude(path)
	return nil
}

var testRuntimeVersion = RuntimeVersion{Major: 8, Minor: 1}

func TestAdapter_PSR0(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := testutil.MustWriteClass(t, dir, `Ion\Data\Item`, false)
	rt := NewTracker(testRuntimeVersion)
	a := NewAdapter(&fakeOwner{}, PSR0, dir, rt)

	if !a.Load(`Ion\Data\Item`) {
		t.Fatal("Load should resolve the nested file")
	}
	if rt.Last() != want {
		t.Errorf("included %q, want %q", rt.Last(), want)
	}
	if a.Load(`Ion\Data\Missing`) {
		t.Error("Load of a missing class should fail")
	}
}

func TestAdapter_PSR4FallsBackToPSR0(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := testutil.MustWriteClass(t, dir, `Ion\Data\Item`, false)
	rt := NewTracker(testRuntimeVersion)
	a := NewAdapter(&fakeOwner{}, PSR4, dir, rt)

	if !a.Load(`Ion\Data\Item`) {
		t.Fatal("PSR-4 adapter should fall back to the PSR-0 layout")
	}
	if rt.Last() != nested {
		t.Errorf("included %q, want %q", rt.Last(), nested)
	}

	flat := testutil.MustWriteClass(t, dir, `Ion\Data\Item`, true)
	if !a.Load(`Ion\Data\Item`) {
		t.Fatal("Load should succeed")
	}
	if rt.Last() != flat {
		t.Errorf("PSR-4 layout should win when present: included %q, want %q", rt.Last(), flat)
	}

	psr0 := NewAdapter(&fakeOwner{}, PSR0, t.TempDir(), rt)
	testutil.MustWriteClass(t, psr0.IncludePath(), `Ion\Data\Other`, true)
	if psr0.Load(`Ion\Data\Other`) {
		t.Error("PSR-0 adapter must not use the last-segment layout")
	}
}

func TestAdapter_NoNegativeCaching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := NewAdapter(&fakeOwner{cache: true}, PSR0, dir, NewTracker(testRuntimeVersion))

	if a.Load(`Late\Arrival`) {
		t.Fatal("class does not exist yet")
	}
	if a.Dirty() || len(a.Entries()) != 0 {
		t.Error("a miss must not be cached")
	}

	testutil.MustWriteClass(t, dir, `Late\Arrival`, false)
	if !a.Load(`Late\Arrival`) {
		t.Fatal("a later lookup should probe again and succeed")
	}
	if got := a.Stats(); got.Probes != 2 || got.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 probes and 1 miss", got)
	}
}

func TestAdapter_CacheRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	flat := testutil.MustWriteClass(t, dir, `NS\Class`, true)
	nested := testutil.MustWriteClass(t, dir, `NS\Class`, false)
	owner := &fakeOwner{version: "1.2.0", cache: true}

	first := NewAdapter(owner, PSR4, dir, NewTracker(testRuntimeVersion))
	if !first.Load(`NS\Class`) {
		t.Fatal("first Load should resolve")
	}
	if !first.Dirty() {
		t.Error("a new resolution should mark the cache dirty")
	}
	if err := first.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}
	if first.Dirty() {
		t.Error("SaveCache should clear the dirty flag")
	}

	rt := NewTracker(testRuntimeVersion)
	second := NewAdapter(owner, PSR4, dir, rt)
	if second.DeploymentID() != first.DeploymentID() {
		t.Fatal("same inputs must produce the same deployment id")
	}
	if !second.Load(`NS\Class`) {
		t.Fatal("cached class should load")
	}
	if got := second.Stats(); got.Probes != 0 || got.CacheHits != 1 {
		t.Errorf("Stats() = %+v, want a cache hit without probing", got)
	}
	if rt.Last() != flat {
		t.Errorf("included %q, want cached %q", rt.Last(), flat)
	}

	if err := os.Remove(flat); err != nil {
		t.Fatal(err)
	}
	third := NewAdapter(owner, PSR4, dir, rt)
	if !third.Load(`NS\Class`) {
		t.Fatal("stale entry should fall back to probing")
	}
	if got := third.Stats(); got.Probes != 1 || got.CacheHits != 0 {
		t.Errorf("Stats() = %+v, want one probe", got)
	}
	if rt.Last() != nested {
		t.Errorf("included %q, want %q", rt.Last(), nested)
	}
	if !third.Dirty() || third.Entries()[`NS\Class`] != nested {
		t.Error("the refreshed resolution should replace the stale entry")
	}
}

func TestAdapter_LeadingSeparatorSharesCacheEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteClass(t, dir, `A\B`, false)
	a := NewAdapter(&fakeOwner{cache: true}, PSR0, dir, NewTracker(testRuntimeVersion))

	if !a.Load(`\A\B`) || !a.Load(`A\B`) {
		t.Fatal("both spellings should resolve")
	}
	if got := a.Stats(); got.Probes != 1 || got.CacheHits != 1 {
		t.Errorf("Stats() = %+v, want one probe and one cache hit", got)
	}
}

func TestAdapter_SaveCacheOnlyWhenDirty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := NewAdapter(&fakeOwner{cache: true}, PSR0, dir, NewTracker(testRuntimeVersion))

	if err := a.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}
	if _, err := os.Stat(a.CachePath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("clean cache should not be written, stat error = %v", err)
	}

	always := NewAdapter(&fakeOwner{cache: true, alwaysWrite: true}, PSR0, dir, NewTracker(testRuntimeVersion))
	if err := always.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}
	if _, err := os.Stat(always.CachePath()); err != nil {
		t.Errorf("always-write should produce a cache file: %v", err)
	}
	if !always.LoadCache() {
		t.Error("an empty saved cache should still load")
	}
}

func TestAdapter_SaveCacheSkipsMissingDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir := filepath.Join(base, "src")
	testutil.MustWriteClass(t, dir, `Gone`, false)
	a := NewAdapter(&fakeOwner{cache: true}, PSR0, dir, NewTracker(testRuntimeVersion))
	if !a.Load(`Gone`) {
		t.Fatal("Load should succeed")
	}

	testutil.MustRemoveAll(t, dir)
	if err := a.SaveCache(); err != nil {
		t.Fatalf("SaveCache should skip silently, got %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Error("SaveCache must not recreate the include path")
	}
}

func TestAdapter_CacheDisabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteClass(t, dir, `Plain`, false)
	a := NewAdapter(&fakeOwner{cache: false}, PSR0, dir, NewTracker(testRuntimeVersion))

	if !a.Load(`Plain`) || !a.Load(`Plain`) {
		t.Fatal("Load should succeed")
	}
	if got := a.Stats(); got.Probes != 2 || got.CacheHits != 0 {
		t.Errorf("Stats() = %+v, want every load to probe", got)
	}
	if a.Dirty() || len(a.Entries()) != 0 {
		t.Error("disabled cache must stay empty")
	}
}

func TestAdapter_IncludeErrorIsMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteClass(t, dir, `Broken`, false)
	rt := failingRuntime{NewTracker(testRuntimeVersion)}
	a := NewAdapter(&fakeOwner{cache: true}, PSR0, dir, rt)

	if a.Load(`Broken`) {
		t.Error("an include failure should be reported as a miss")
	}
	if a.Dirty() {
		t.Error("a failed include must not be cached")
	}
}

func TestAdapter_LoadCacheRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	owner := &fakeOwner{cache: true}
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "<?php return [];"},
		{"truncated", `{"entries": {"A": {"path": "/x"}`},
		{"no_entries", `{"comment": "hello"}`},
		{"null_entries", `{"entries": null}`},
		{"wrong_deployment", `{"deployment_id": "0000000000000000", "entries": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			locator := NewAdapter(&fakeOwner{}, PSR0, dir, NewTracker(testRuntimeVersion))
			testutil.MustWriteFile(t, locator.CachePath(), tt.content)

			a := NewAdapter(owner, PSR0, dir, NewTracker(testRuntimeVersion))
			if a.LoadCache() {
				t.Error("LoadCache should report failure")
			}
			if len(a.Entries()) != 0 {
				t.Error("cache should stay empty")
			}
		})
	}
}

func TestAdapter_CacheDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.MustWriteClass(t, dir, `Doc\Item`, false)
	clock := testutil.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	a := NewAdapter(&fakeOwner{version: "2.0.0", cache: true}, PSR0, dir, NewTracker(testRuntimeVersion), WithClock(clock))
	if !a.Load(`Doc\Item`) {
		t.Fatal("Load should succeed")
	}
	if err := a.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, CacheFilename(a.DeploymentID())))
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}
	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("cache file is not JSON: %v", err)
	}
	if doc.DeploymentID != a.DeploymentID() {
		t.Errorf("deployment_id = %q, want %q", doc.DeploymentID, a.DeploymentID())
	}
	if doc.Entries[`Doc\Item`].Path != path {
		t.Errorf("entries = %v", doc.Entries)
	}
	for _, part := range []string{"8.1", "2.0.0", "2024-03-01T10:00:00Z"} {
		if !strings.Contains(doc.Comment, part) {
			t.Errorf("comment %q should mention %s", doc.Comment, part)
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if err != nil || len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestAdapter_SharedCacheFileKeepsEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := testutil.MustWriteClass(t, dir, `Shared\Nested`, false)
	flat := testutil.MustWriteClass(t, dir, `Other\Flat`, true)
	owner := &fakeOwner{cache: true}

	psr0 := NewAdapter(owner, PSR0, dir, NewTracker(testRuntimeVersion))
	psr4 := NewAdapter(owner, PSR4, dir, NewTracker(testRuntimeVersion))
	if psr0.CachePath() != psr4.CachePath() {
		t.Fatal("adapters on one include path should share the cache file")
	}

	if !psr0.Load(`Shared\Nested`) || !psr4.Load(`Other\Flat`) {
		t.Fatal("both classes should resolve")
	}
	if err := psr0.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}
	if err := psr4.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	doc, ok := readCacheDocument(psr0.CachePath())
	if !ok {
		t.Fatal("cache file should be readable")
	}
	if doc.Entries[`Shared\Nested`].Path != nested || doc.Entries[`Other\Flat`].Path != flat {
		t.Errorf("entries = %v, want both saved classes", doc.Entries)
	}

	if got := NewAdapter(owner, PSR0, dir, NewTracker(testRuntimeVersion)).Entries(); len(got) != 1 || got[`Shared\Nested`] != nested {
		t.Errorf("psr0 Entries() = %v, want only its own class", got)
	}
	if got := NewAdapter(owner, PSR4, dir, NewTracker(testRuntimeVersion)).Entries(); len(got) != 1 || got[`Other\Flat`] != flat {
		t.Errorf("psr4 Entries() = %v, want only its own class", got)
	}
}

func TestAdapter_CacheEntriesOfOtherStrategyAreIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	flat := testutil.MustWriteClass(t, dir, `Acme\Panel`, true)
	owner := &fakeOwner{cache: true}

	psr4 := NewAdapter(owner, PSR4, dir, NewTracker(testRuntimeVersion))
	if !psr4.Load(`Acme\Panel`) {
		t.Fatal("psr4 should resolve the flat layout")
	}
	if err := psr4.SaveCache(); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	psr0 := NewAdapter(owner, PSR0, dir, NewTracker(testRuntimeVersion))
	if psr0.Load(`Acme\Panel`) {
		t.Errorf("psr0 loaded %s from the psr4 cache entry", flat)
	}
	if got := psr0.Stats(); got.CacheHits != 0 {
		t.Errorf("Stats() = %+v, want no cache hit", got)
	}
}

func TestAdapter_NestedResolutionDuringInclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	child := testutil.MustWriteClass(t, dir, `App\Child`, false)
	base := testutil.MustWriteClass(t, dir, `App\Base`, false)

	d := NewDispatcher()
	var (
		a          *Adapter
		baseLoaded bool
		saveErr    error
	)
	rt := nestingRuntime{
		Tracker: NewTracker(testRuntimeVersion),
		onInclude: func(path string) {
			if path != child {
				return
			}
			baseLoaded = d.Resolve(`App\Base`)
			saveErr = a.SaveCache()
		},
	}
	a = NewAdapter(&fakeOwner{cache: true}, PSR0, dir, rt)
	d.Register(a.Hook())

	done := make(chan bool, 1)
	go func() { done <- d.Resolve(`App\Child`) }()

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("App\\Child should resolve")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("resolving a class from inside an include did not return")
	}

	if !baseLoaded {
		t.Error("App\\Base should resolve while App\\Child is being included")
	}
	if saveErr != nil {
		t.Errorf("SaveCache during include: %v", saveErr)
	}
	if got := rt.Included(); len(got) != 2 || got[0] != child || got[1] != base {
		t.Errorf("Included() = %v, want [%s %s]", got, child, base)
	}
	if entries := a.Entries(); entries[`App\Child`] != child || entries[`App\Base`] != base {
		t.Errorf("Entries() = %v, want both classes", entries)
	}
}

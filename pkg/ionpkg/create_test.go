// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ionphp/ionload/internal/testutil"
	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/semver"
	"github.com/ionphp/ionload/pkg/settings"
)

func newTestRegistry(t *testing.T, opts ...RegistryOption) (*Registry, *autoload.Tracker) {
	t.Helper()
	rt := autoload.NewTracker(autoload.RuntimeVersion{Major: 8, Minor: 1})
	r := NewRegistry(rt, opts...)
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return r, rt
}

// newRoot returns a symlink-free temp directory with the given subdirectories.
func newRoot(t *testing.T, dirs ...string) string {
	t.Helper()
	root := testutil.MustResolve(t, t.TempDir())
	for _, d := range dirs {
		testutil.MustMkdirAll(t, filepath.Join(root, d), 0o755)
	}
	return root
}

func TestCreate_SearchPathsFollowDebugMode(t *testing.T) {
	t.Parallel()

	root := newRoot(t, "lib1", "lib2", "lib3", "src")
	base := Options{
		Vendor:           "ion",
		Project:          "autoloader",
		Root:             root,
		AdditionalPaths:  []string{"lib1", "lib2", "lib3"},
		DevelopmentPaths: []string{"src"},
	}

	tests := []struct {
		name  string
		debug bool
		want  []string
	}{
		{"debug", true, []string{filepath.Join(root, "src")}},
		{"normal", false, []string{
			filepath.Join(root, "lib1"),
			filepath.Join(root, "lib2"),
			filepath.Join(root, "lib3"),
			filepath.Join(root, "src"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := newTestRegistry(t)
			opts := base
			opts.Debug = Bool(tt.debug)
			p, err := r.Create(opts)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if got := p.SearchPaths(); !slices.Equal(got, tt.want) {
				t.Errorf("SearchPaths() = %v, want %v", got, tt.want)
			}
			if len(p.Adapters()) != 2*len(tt.want) {
				t.Errorf("got %d adapters, want %d", len(p.Adapters()), 2*len(tt.want))
			}
			if !slices.Equal(p.AdditionalPaths(), base.AdditionalPaths) {
				t.Errorf("AdditionalPaths() = %v", p.AdditionalPaths())
			}
		})
	}
}

func TestCreate_SkipsUnresolvablePaths(t *testing.T) {
	t.Parallel()

	root := newRoot(t, "src")
	testutil.MustWriteFile(t, filepath.Join(root, "file.txt"), "not a dir")
	r, _ := newTestRegistry(t)

	p, err := r.Create(Options{
		Vendor:           "ion",
		Project:          "skip",
		Root:             root,
		AdditionalPaths:  []string{"missing", "file.txt", "/src/"},
		DevelopmentPaths: []string{"src"},
		Debug:            Bool(false),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	src := filepath.Join(root, "src")
	if got := p.SearchPaths(); !slices.Equal(got, []string{src, src}) {
		t.Errorf("SearchPaths() = %v, want [%s %s]", got, src, src)
	}
}

func TestCreate_AdaptersAndHooks(t *testing.T) {
	t.Parallel()

	root := newRoot(t, "src")
	r, _ := newTestRegistry(t)

	p, err := r.Create(Options{Vendor: "ion", Project: "hooks", Root: root, DevelopmentPaths: []string{"src"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var strategies []autoload.Strategy
	for _, a := range p.Adapters() {
		strategies = append(strategies, a.Strategy())
	}
	if !slices.Equal(strategies, []autoload.Strategy{autoload.PSR0, autoload.PSR4}) {
		t.Errorf("default strategies = %v", strategies)
	}
	if len(p.Hooks()) != 2 || r.Dispatcher().Len() != 2 {
		t.Errorf("hooks = %v, dispatcher holds %d", p.Hooks(), r.Dispatcher().Len())
	}

	custom, err := r.Create(Options{
		Vendor: "ion", Project: "custom", Root: root,
		DevelopmentPaths: []string{"src"},
		Adapters:         []string{"Psr4LoaderAdapter"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(custom.Adapters()) != 1 || custom.Adapters()[0].Strategy() != autoload.PSR4 {
		t.Errorf("custom adapters = %v", custom.Adapters())
	}
}

func TestCreate_InvalidAdapter(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	r, _ := newTestRegistry(t)

	_, err := r.Create(Options{
		Vendor: "ion", Project: "bad", Root: root,
		DevelopmentPaths: []string{"missing"},
		Adapters:         []string{"psr0", "NoSuchAdapter"},
	})
	if !errors.Is(err, autoload.ErrInvalidAdapter) {
		t.Fatalf("expected ErrInvalidAdapter, got %v", err)
	}
	if r.Has("ion", "bad") || r.Dispatcher().Len() != 0 {
		t.Error("a failed construction must not register anything")
	}
}

func TestCreate_InvalidRootAndName(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)

	_, err := r.Create(Options{Vendor: "ion", Project: "gone", Root: filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("expected ErrInvalidRoot, got %v", err)
	}
	var pe *PackageError
	if !errors.As(err, &pe) || pe.Name != "ion/gone" {
		t.Errorf("expected *PackageError for ion/gone, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should keep the filesystem cause: %v", err)
	}

	if _, err := r.Create(Options{Vendor: "ion", Project: "empty"}); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("empty root: expected ErrInvalidRoot, got %v", err)
	}
	if _, err := r.Create(Options{Project: "x", Root: t.TempDir()}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty vendor: expected ErrInvalidName, got %v", err)
	}
}

func TestCreate_EntryFile(t *testing.T) {
	t.Parallel()

	root := newRoot(t, "src")
	entry := testutil.MustWriteFile(t, filepath.Join(root, "index.php"), "<?php")
	r, _ := newTestRegistry(t)

	p, err := r.Create(Options{Vendor: "ion", Project: "entry", Root: entry, DevelopmentPaths: []string{"src"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Root() != root || p.Entry() != entry {
		t.Errorf("Root() = %q, Entry() = %q", p.Root(), p.Entry())
	}
	if got := p.SearchPaths(); !slices.Equal(got, []string{filepath.Join(root, "src")}) {
		t.Errorf("SearchPaths() = %v", got)
	}
}

func TestCreate_Debug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		vendored  bool
		git       bool
		settings  string
		toggle    *bool
		explicit  *bool
		wantDebug bool
		wantCache bool
	}{
		{name: "default", wantDebug: false, wantCache: true},
		{name: "repository", git: true, wantDebug: true, wantCache: false},
		{name: "repository_in_vendor", vendored: true, git: true, wantDebug: false, wantCache: true},
		{name: "setting_true", settings: `{"debug": true}`, wantDebug: true, wantCache: false},
		{name: "setting_false_keeps_repository", git: true, settings: `{"debug": false}`, wantDebug: true, wantCache: false},
		{name: "settings_false_keep_repository", git: true, settings: `{"debug": false, "cache": false}`, wantDebug: true, wantCache: false},
		{name: "setting_false", settings: `{"debug": false}`, wantDebug: false, wantCache: true},
		{name: "toggle", toggle: Bool(true), wantDebug: true, wantCache: false},
		{name: "toggle_false_beats_setting", toggle: Bool(false), settings: `{"debug": true}`, wantDebug: false, wantCache: true},
		{name: "toggle_ignored_for_dependency", vendored: true, toggle: Bool(true), wantDebug: false, wantCache: true},
		{name: "explicit_beats_toggle", toggle: Bool(true), explicit: Bool(false), wantDebug: false, wantCache: true},
		{name: "explicit_in_vendor", vendored: true, explicit: Bool(true), wantDebug: true, wantCache: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := newRoot(t)
			if tt.vendored {
				root = filepath.Join(root, "vendor", "ion", "lib")
				testutil.MustMkdirAll(t, root, 0o755)
			}
			if tt.git {
				testutil.MustMkdirAll(t, filepath.Join(root, ".git"), 0o755)
			}
			if tt.settings != "" {
				testutil.MustWriteFile(t, filepath.Join(root, settings.Filename), tt.settings)
			}

			r, _ := newTestRegistry(t, WithToggles(Toggles{Debug: tt.toggle}))
			p, err := r.Create(Options{Vendor: "ion", Project: "debug", Root: root, Debug: tt.explicit})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if p.DebugEnabled() != tt.wantDebug {
				t.Errorf("DebugEnabled() = %v, want %v", p.DebugEnabled(), tt.wantDebug)
			}
			if p.CacheEnabled() != tt.wantCache {
				t.Errorf("CacheEnabled() = %v, want %v", p.CacheEnabled(), tt.wantCache)
			}
			wantDep := DependencyUnknown
			if tt.vendored {
				wantDep = DependencyYes
			}
			if p.IsDependency() != wantDep {
				t.Errorf("IsDependency() = %v, want %v", p.IsDependency(), wantDep)
			}
		})
	}
}

func TestCreate_Cache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings string
		toggle   *bool
		explicit *bool
		debug    bool
		want     bool
	}{
		{name: "default", want: true},
		{name: "debug_disables", debug: true, want: false},
		{name: "setting_enables_in_debug", debug: true, settings: `{"cache": true}`, want: true},
		{name: "setting_false", settings: `{"cache": false}`, want: true},
		{name: "setting_zero", settings: `{"cache": "0"}`, want: true},
		{name: "setting_false_in_debug", debug: true, settings: `{"cache": false}`, want: false},
		{name: "toggle_beats_setting", toggle: Bool(true), settings: `{"cache": false}`, want: true},
		{name: "toggle_off", toggle: Bool(false), want: false},
		{name: "explicit_beats_toggle", toggle: Bool(false), explicit: Bool(true), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := newRoot(t)
			if tt.settings != "" {
				testutil.MustWriteFile(t, filepath.Join(root, settings.Filename), tt.settings)
			}

			r, _ := newTestRegistry(t, WithToggles(Toggles{Cache: tt.toggle}))
			p, err := r.Create(Options{Vendor: "ion", Project: "cache", Root: root, Debug: Bool(tt.debug), Cache: tt.explicit})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if p.CacheEnabled() != tt.want {
				t.Errorf("CacheEnabled() = %v, want %v", p.CacheEnabled(), tt.want)
			}
		})
	}
}

func TestCreate_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    map[string]string
		explicit *semver.Version
		ignore   bool
		want     string
		wantErr  error
	}{
		{name: "none"},
		{name: "version_file", files: map[string]string{"version.json": `{"version": "1.4.0"}`}, want: "1.4.0"},
		{name: "version_file_wins", files: map[string]string{
			"version.json":  `{"version": "2.0.0"}`,
			"composer.json": `{"version": "^1.0.0"}`,
		}, want: "2.0.0"},
		{name: "composer_fallback", files: map[string]string{"composer.json": `{"version": "~3.1.2"}`}, want: "3.1.2"},
		{name: "version_file_without_field", files: map[string]string{
			"version.json":  `{"name": "x"}`,
			"composer.json": `{"version": "1.0.1"}`,
		}, want: "1.0.1"},
		{name: "blank_version_file", files: map[string]string{
			"version.json":  "  ",
			"composer.json": `{"version": "0.3.0"}`,
		}, want: "0.3.0"},
		{name: "explicit", files: map[string]string{"version.json": `{"version": "1.0.0"}`}, explicit: semver.MustParse("9.9.9"), want: "9.9.9"},
		{name: "explicit_with_ignore", explicit: semver.MustParse("9.9.9"), ignore: true, want: "9.9.9"},
		{name: "ignored", files: map[string]string{"version.json": `{"version": "1.0.0"}`}, ignore: true},
		{name: "ignored_skips_malformed", files: map[string]string{"version.json": `{`}, ignore: true},
		{name: "malformed", files: map[string]string{"version.json": `{"version":`}, wantErr: semver.ErrInvalidManifest},
		{name: "malformed_composer", files: map[string]string{"composer.json": `[`}, wantErr: semver.ErrInvalidManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := newRoot(t)
			for name, content := range tt.files {
				testutil.MustWriteFile(t, filepath.Join(root, name), content)
			}

			r, _ := newTestRegistry(t, WithToggles(Toggles{IgnoreVersion: tt.ignore}))
			p, err := r.Create(Options{Vendor: "ion", Project: "version", Root: root, Version: tt.explicit})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if p.VersionString() != tt.want {
				t.Errorf("VersionString() = %q, want %q", p.VersionString(), tt.want)
			}
			if (p.Version() == nil) != (tt.want == "") {
				t.Errorf("Version() = %v", p.Version())
			}
		})
	}
}

func TestCreate_Settings(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	testutil.MustWriteFile(t, filepath.Join(root, settings.Filename), `{"debug": true, "extra": "value"}`)

	r, _ := newTestRegistry(t)
	p, err := r.Create(Options{Vendor: "ion", Project: "settings", Root: root})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Settings().GetString("extra", "") != "value" {
		t.Error("opaque settings should pass through")
	}

	ignoring, _ := newTestRegistry(t, WithToggles(Toggles{IgnoreSettings: true}))
	q, err := ignoring.Create(Options{Vendor: "ion", Project: "settings", Root: root})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if q.Settings().Len() != 0 || q.DebugEnabled() {
		t.Error("ignored settings should be empty and not enable debug")
	}

	broken := newRoot(t)
	testutil.MustWriteFile(t, filepath.Join(broken, settings.Filename), `{"debug": tru`)
	_, err = r.Create(Options{Vendor: "ion", Project: "broken", Root: broken})
	var pe *settings.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *settings.ParseError, got %v", err)
	}
	if r.Has("ion", "broken") {
		t.Error("a failed construction must not register the package")
	}

	if _, err := ignoring.Create(Options{Vendor: "ion", Project: "broken", Root: broken}); err != nil {
		t.Errorf("ignored malformed settings should not fail: %v", err)
	}
}

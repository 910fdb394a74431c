// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry.
type Id int

const (
	SettingsParseErrorId Id = iota + 1
	VersionManifestInvalidId
	InvalidRootId
	InvalidAdapterId
	ClassNotFoundId
	ConfigLoadFailedId
	CacheNotWritableId
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry with Markdown guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance and its links for the terminal using the
// glamour style at stylePath ("dark", "light", "notty" or a JSON file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))

	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	settingsParseErrorIssue = &Issue{
		id: SettingsParseErrorId,
		mdMsg: `
# Package settings could not be read!

The ` + "`autoloader.json`" + ` file in the package root exists but is not a JSON object.

## Things you can try:
- Check the file for trailing commas, comments or unquoted keys
- Keep the file flat; recognised keys are ` + "`debug`" + ` and ` + "`cache`" + `:
~~~json
{
  "debug": false,
  "cache": true
}
~~~
- Delete the file (or leave it empty) to fall back to the defaults
- Set ` + "`ION_PACKAGE_IGNORE_CONFIGURATION=1`" + ` to skip settings files entirely`,
		extLinks: []HttpLink{"https://www.json.org/json-en.html"},
	}

	versionManifestInvalidIssue = &Issue{
		id: VersionManifestInvalidId,
		mdMsg: `
# Package version could not be read!

` + "`version.json`" + ` or ` + "`composer.json`" + ` exists but is not valid JSON.

## Things you can try:
- Fix the JSON syntax; only the ` + "`version`" + ` field is read
- Give the version explicitly:
~~~
$ ionload info . --pkg-version 1.2.0
~~~
- Set ` + "`ION_PACKAGE_IGNORE_VERSION=1`" + ` to skip version files`,
		extLinks: []HttpLink{"https://semver.org"},
	}

	invalidRootIssue = &Issue{
		id: InvalidRootId,
		mdMsg: `
# Package root not found!

The package root (or entry file) does not exist.

## Things you can try:
- Pass the directory that contains your ` + "`src`" + ` folder, or a file inside it
- Check for typos and broken symlinks in the path`,
	}

	invalidAdapterIssue = &Issue{
		id: InvalidAdapterId,
		mdMsg: `
# Unknown loader adapter!

Loader adapters select the naming convention used to find class files.

## Available adapters:
- ` + "`psr0`" + ` maps ` + "`Vendor\\Pkg\\Item`" + ` to ` + "`Vendor/Pkg/Item.php`" + `
- ` + "`psr4`" + ` maps ` + "`Vendor\\Pkg\\Item`" + ` to ` + "`Item.php`" + `, then falls back to ` + "`psr0`" + `

## Things you can try:
~~~
$ ionload resolve . 'Vendor\Pkg\Item' --adapter psr4
~~~`,
		extLinks: []HttpLink{
			"https://www.php-fig.org/psr/psr-0/",
			"https://www.php-fig.org/psr/psr-4/",
		},
	}

	classNotFoundIssue = &Issue{
		id: ClassNotFoundId,
		mdMsg: `
# Class not found!

No search path holds a file for the class under any configured adapter.

## Things you can try:
- Inspect the search paths and adapters:
~~~
$ ionload info .
~~~
- Debug mode searches only the development paths; disable it with ` + "`--debug=false`" + `
- Remember that file names are case-sensitive on most systems`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The ionload configuration file could not be loaded.

## Things you can try:
- Show where the configuration is read from:
~~~
$ ionload config path
~~~
- Check the CUE syntax; allowed fields are ` + "`debug`" + `, ` + "`cache`" + `, ` + "`ignore_version`" + `,
  ` + "`ignore_settings`" + `, ` + "`cache_always_write`" + `, ` + "`runtime`" + ` and ` + "`log_level`" + `
- Remove the file to use the defaults`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	cacheNotWritableIssue = &Issue{
		id: CacheNotWritableId,
		mdMsg: `
# Autoload cache could not be written!

Cache files named ` + "`ion-auto-load-<id>.json`" + ` are written next to the sources.

## Things you can try:
- Make the search path writable for the current user
- Disable caching with ` + "`--cache=false`" + ` or ` + "`ION_AUTOLOAD_CACHE=0`" + `
- Cache files are disposable; ` + "`ionload cache clear .`" + ` removes them`,
	}

	issues = map[Id]*Issue{
		settingsParseErrorIssue.Id():     settingsParseErrorIssue,
		versionManifestInvalidIssue.Id(): versionManifestInvalidIssue,
		invalidRootIssue.Id():            invalidRootIssue,
		invalidAdapterIssue.Id():         invalidAdapterIssue,
		classNotFoundIssue.Id():          classNotFoundIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		cacheNotWritableIssue.Id():       cacheNotWritableIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/pkg/ionpkg"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatTOML = "toml"
)

type (
	// packageInfo is the exported description of a package.
	packageInfo struct {
		Name             string        `json:"name" toml:"name"`
		PURL             string        `json:"purl" toml:"purl"`
		Version          string        `json:"version,omitempty" toml:"version,omitempty"`
		Root             string        `json:"root" toml:"root"`
		Entry            string        `json:"entry,omitempty" toml:"entry,omitempty"`
		Dependency       string        `json:"dependency" toml:"dependency"`
		Debug            bool          `json:"debug" toml:"debug"`
		Cache            bool          `json:"cache" toml:"cache"`
		CacheAlwaysWrite bool          `json:"cache_always_write" toml:"cache_always_write"`
		Runtime          string        `json:"runtime" toml:"runtime"`
		SearchPaths      []string      `json:"search_paths" toml:"search_paths"`
		Adapters         []adapterInfo `json:"adapters" toml:"adapters"`
	}

	// adapterInfo describes one loader of a package.
	adapterInfo struct {
		Strategy      string `json:"strategy" toml:"strategy"`
		Path          string `json:"path" toml:"path"`
		DeploymentID  string `json:"deployment_id" toml:"deployment_id"`
		CacheFile     string `json:"cache_file" toml:"cache_file"`
		CachedClasses int    `json:"cached_classes" toml:"cached_classes"`
	}
)

func newInfoCommand(app *App) *cobra.Command {
	var (
		flags  packageFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "info <root>",
		Short: "Describe a package: identity, version, modes and loaders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, formatText, formatJSON, formatTOML); err != nil {
				return err
			}
			s, err := app.openPackage(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			return writeInfo(cmd.OutOrStdout(), describePackage(s), format)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, json or toml")
	return cmd
}

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(allowed, ", "))
}

func describePackage(s *session) packageInfo {
	p := s.pkg
	info := packageInfo{
		Name:             p.Name(),
		PURL:             p.PURL(),
		Version:          p.VersionString(),
		Root:             p.Root(),
		Entry:            p.Entry(),
		Dependency:       p.IsDependency().String(),
		Debug:            p.DebugEnabled(),
		Cache:            p.CacheEnabled(),
		CacheAlwaysWrite: p.CacheAlwaysWrite(),
		Runtime:          s.registry.Runtime().Version().String(),
		SearchPaths:      p.SearchPaths(),
		Adapters:         []adapterInfo{},
	}
	if info.SearchPaths == nil {
		info.SearchPaths = []string{}
	}

	for _, a := range p.Adapters() {
		info.Adapters = append(info.Adapters, adapterInfo{
			Strategy:      a.Strategy().String(),
			Path:          a.IncludePath(),
			DeploymentID:  a.DeploymentID(),
			CacheFile:     a.CachePath(),
			CachedClasses: len(a.Entries()),
		})
	}
	return info
}

func writeInfo(w io.Writer, info packageInfo, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatTOML:
		data, err := toml.Marshal(info)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		renderInfoText(w, info)
		return nil
	}
}

func renderInfoText(w io.Writer, info packageInfo) {
	row := func(key, value string) {
		fmt.Fprintf(w, "%s %s\n", keyColumnStyle.Render(key), value)
	}

	fmt.Fprintln(w, TitleStyle.Render(info.Name))
	row("purl", info.PURL)
	version := info.Version
	if version == "" {
		version = SubtitleStyle.Render("(unknown)")
	}
	row("version", version)
	row("root", info.Root)
	if info.Entry != "" {
		row("entry", info.Entry)
	}
	row("dependency", info.Dependency)
	row("debug", fmt.Sprint(info.Debug))
	row("cache", fmt.Sprint(info.Cache))
	row("runtime", info.Runtime)

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Loaders"))
	if len(info.Adapters) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(no search path exists)"))
	}
	for _, a := range info.Adapters {
		fmt.Fprintf(w, "  %s %s %s\n",
			KeyStyle.Render(a.Strategy), relPath(info.Root, a.Path),
			SubtitleStyle.Render(fmt.Sprintf("cache %s, %d classes", a.DeploymentID, a.CachedClasses)))
	}
}

// packageSummary is a one-line description used in log and status output.
func packageSummary(p *ionpkg.Package) string {
	if v := p.VersionString(); v != "" {
		return p.Name() + "@" + v
	}
	return p.Name()
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/internal/config"
)

// newConfigCommand creates the `ionload config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ionload configuration",
		Long: `Manage ionload configuration.

Configuration is stored in:
  - Linux: ~/.config/ionload/config.cue
  - macOS: ~/Library/Application Support/ionload/config.cue
  - Windows: %APPDATA%\ionload\config.cue

Environment variables override the file:
  ION_PACKAGE_DEBUG, ION_AUTOLOAD_CACHE, ION_PACKAGE_IGNORE_VERSION,
  ION_PACKAGE_IGNORE_CONFIGURATION, ION_AUTOLOAD_CACHE_DEBUG,
  IONLOAD_RUNTIME, IONLOAD_LOG_LEVEL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			showConfig(cmd, app.cfg)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path(app.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(app.loadOptions(), config.DefaultConfig(), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	row := func(key, value string) {
		fmt.Fprintf(out, "%s %s\n", keyColumnStyle.Render(key), value)
	}
	optional := func(b *bool) string {
		if b == nil {
			return SubtitleStyle.Render("(unset)")
		}
		return SuccessStyle.Render(fmt.Sprint(*b))
	}

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	source := cfg.Source
	if source == "" {
		source = SubtitleStyle.Render("(using defaults)")
	}
	row("config file", source)
	fmt.Fprintln(out)

	row(config.KeyDebug, optional(cfg.Debug))
	row(config.KeyCache, optional(cfg.Cache))
	row(config.KeyIgnoreVersion, fmt.Sprint(cfg.IgnoreVersion))
	row(config.KeyIgnoreSettings, fmt.Sprint(cfg.IgnoreSettings))
	row(config.KeyCacheAlwaysWrite, fmt.Sprint(cfg.CacheAlwaysWrite))
	row(config.KeyRuntime, cfg.Runtime)
	row(config.KeyLogLevel, cfg.LogLevel)
}

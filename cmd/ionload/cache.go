// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/internal/issue"
	"github.com/ionphp/ionload/pkg/autoload"
)

// newCacheCommand creates the `ionload cache` command tree.
func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage class-map cache files",
		Long: `Manage the class-map cache files (ion-auto-load-<id>.json) that loaders
write next to the sources they search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(newCacheFlushCommand(app))
	cacheCmd.AddCommand(newCacheClearCommand())
	return cacheCmd
}

func newCacheFlushCommand(app *App) *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "flush <root> [class]...",
		Short: "Resolve classes, then save the package's cache files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openPackage(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			if !s.pkg.CacheEnabled() {
				return issue.NewErrorContext().
					WithOperation("flush cache").
					WithResource(packageSummary(s.pkg)).
					WithSuggestion("Enable the cache with --cache").
					WithSuggestion("Debug mode disables the cache unless autoloader.json sets \"cache\": true").
					Wrap(errors.New("cache is disabled for this package")).
					BuildError()
			}

			results := s.resolveAll(args[1:])
			renderResolutions(cmd.OutOrStdout(), s.pkg.Root(), results)

			if err := s.registry.Close(); err != nil {
				return issue.NewErrorContext().
					WithOperation("save cache").
					WithResource(packageSummary(s.pkg)).
					WithIssue(issue.CacheNotWritableId).
					Wrap(err).
					BuildError()
			}

			// Adapters on one search path share a cache file.
			out := cmd.OutOrStdout()
			seen := map[string]bool{}
			for _, a := range s.pkg.Adapters() {
				path := a.CachePath()
				if seen[path] {
					continue
				}
				seen[path] = true
				if _, err := os.Stat(path); err != nil {
					continue
				}
				fmt.Fprintf(out, "%s saved %s\n", SuccessStyle.Render("✓"), relPath(s.pkg.Root(), path))
			}
			return missingClassesError(results)
		},
	}
	flags.register(cmd)
	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "clear <root>",
		Short: "Delete generated cache files from the package's search paths",
		Args:  cobra.ExactArgs(1),
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := flags.searchDirs(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			removed := 0
			for _, dir := range dirs {
				files, err := autoload.RemoveCacheFiles(dir)
				for _, f := range files {
					fmt.Fprintf(out, "%s removed %s\n", SuccessStyle.Render("✓"), relPath(dirs[0], f))
				}
				removed += len(files)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "%d cache files removed\n", removed)
			return nil
		},
	}
	flags.registerPaths(cmd)
	return cmd
}

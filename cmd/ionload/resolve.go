// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/internal/issue"
	"github.com/ionphp/ionload/pkg/autoload"
)

// resolution is the outcome of resolving one class.
type resolution struct {
	class    string
	found    bool
	strategy autoload.Strategy
	file     string
	cached   bool
}

func newResolveCommand(app *App) *cobra.Command {
	var flags packageFlags

	cmd := &cobra.Command{
		Use:   "resolve <root> <class>...",
		Short: "Resolve classes through a package's loader chain",
		Long: `Resolve classes through the loader chain of the package at <root>.

Each class is reported with the strategy that found it and the file it maps
to. The command exits with status 1 when any class is not found. New
resolutions are saved to the cache when the command ends.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openPackage(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			results := s.resolveAll(args[1:])
			renderResolutions(cmd.OutOrStdout(), s.pkg.Root(), results)
			return missingClassesError(results)
		},
	}
	flags.register(cmd)
	return cmd
}

// resolveAll resolves each class through the registry's hook chain. The
// adapter that succeeded is identified from its counters.
func (s *session) resolveAll(classes []string) []resolution {
	adapters := s.pkg.Adapters()
	results := make([]resolution, 0, len(classes))

	for _, class := range classes {
		before := make([]autoload.Stats, len(adapters))
		for i, a := range adapters {
			before[i] = a.Stats()
		}

		res := resolution{class: class, found: s.registry.Resolve(class)}
		if res.found {
			res.file = s.tracker.Last()
			for i, a := range adapters {
				after := a.Stats()
				if after.Loads-after.Misses > before[i].Loads-before[i].Misses {
					res.strategy = a.Strategy()
					res.cached = after.CacheHits > before[i].CacheHits
					break
				}
			}
		}
		results = append(results, res)
	}
	return results
}

func renderResolutions(w io.Writer, root string, results []resolution) {
	for _, r := range results {
		if !r.found {
			fmt.Fprintf(w, "%s %s %s\n", ErrorStyle.Render("✗"), r.class, SubtitleStyle.Render("not found"))
			continue
		}
		suffix := ""
		if r.cached {
			suffix = " " + SubtitleStyle.Render("(cached)")
		}
		fmt.Fprintf(w, "%s %s %s %s%s\n",
			SuccessStyle.Render("✓"), r.class, KeyStyle.Render(r.strategy.String()), relPath(root, r.file), suffix)
	}
}

func missingClassesError(results []resolution) error {
	var missing []string
	for _, r := range results {
		if !r.found {
			missing = append(missing, r.class)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return &ExitError{
		Code: 1,
		Err: issue.NewErrorContext().
			WithOperation("resolve classes").
			WithResource(strings.Join(missing, ", ")).
			WithIssue(issue.ClassNotFoundId).
			Wrap(fmt.Errorf("%w: %d of %d", errClassNotFound, len(missing), len(results))).
			BuildError(),
	}
}

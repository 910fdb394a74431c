// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/pkg/semver"
)

// newVersionCommand creates the `ionload version` command tree.
func newVersionCommand(app *App) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Parse and compare semantic versions",
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	parseCmd := &cobra.Command{
		Use:   "parse <version>",
		Short: "Show the components of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, formatText, formatJSON); err != nil {
				return err
			}
			v, err := semver.Parse(args[0])
			if err != nil {
				return err
			}
			return writeVersion(cmd, v, format)
		},
	}
	parseCmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	versionCmd.AddCommand(parseCmd)

	versionCmd.AddCommand(&cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Compare two versions by precedence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := semver.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := semver.Parse(args[1])
			if err != nil {
				return err
			}

			op := "="
			switch {
			case a.IsLowerThan(b):
				op = "<"
			case a.IsHigherThan(b):
				op = ">"
			}
			app.logger.Debug("compared versions", "a", a, "b", b, "result", a.Compare(b))
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", a, KeyStyle.Render(op), b)
			return nil
		},
	})

	return versionCmd
}

func writeVersion(cmd *cobra.Command, v *semver.Version, format string) error {
	out := cmd.OutOrStdout()
	m := v.ToMap()

	if format == formatJSON {
		m["version"] = v.String()
		m["tag"] = v.Tag()
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	row := func(key, value string) {
		fmt.Fprintf(out, "%s %s\n", keyColumnStyle.Render(key), value)
	}
	row("version", v.String())
	row("major", fmt.Sprint(v.Major()))
	row("minor", fmt.Sprint(v.Minor()))
	row("patch", fmt.Sprint(v.Patch()))
	if v.Release() != "" {
		row("release", v.Release())
	}
	if build := v.Build(); len(build) > 0 {
		row("build", strings.Join(build, "."))
	}
	row("tag", v.Tag())
	return nil
}

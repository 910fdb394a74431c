// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ionphp/ionload/internal/issue"
	"github.com/ionphp/ionload/pkg/settings"
)

func newSettingsCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "settings <root>",
		Short: "Show the entries of a package's autoloader.json in file order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, formatText, formatJSON); err != nil {
				return err
			}

			dir := args[0]
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				dir = filepath.Dir(dir)
			}
			path := filepath.Join(dir, settings.Filename)

			st, err := settings.Load(path)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("load package settings").
					WithResource(path).
					WithIssue(issue.SettingsParseErrorId).
					Wrap(err).
					BuildError()
			}
			app.logger.Debug("settings loaded", "file", path, "entries", st.Len())

			if format == formatJSON {
				return writeSettingsJSON(cmd.OutOrStdout(), st)
			}
			return writeSettingsText(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	return cmd
}

func writeSettingsText(w io.Writer, st *settings.Settings) error {
	if st.Len() == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no settings)"))
		return nil
	}
	for _, e := range st.Entries() {
		value, err := json.Marshal(e.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", keyColumnStyle.Render(e.Key), value)
	}
	return nil
}

// writeSettingsJSON writes the settings as one JSON object keeping the file's
// key order.
func writeSettingsJSON(w io.Writer, st *settings.Settings) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range st.Entries() {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if st.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

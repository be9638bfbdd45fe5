// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newSearchCommand creates the `bp search` command.
func newSearchCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search crates.io for battery packs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			query := strings.Join(args, " ")

			facade, err := app.facade(nil)
			if err != nil {
				return app.fail("search battery packs", query, err)
			}
			items, err := facade.Enumerate(cmd.Context(), query)
			if err != nil {
				return app.fail("search battery packs", query, err)
			}

			if format != formatTable {
				return writeStructured(app.stdout, format, map[string]any{"packs": items})
			}
			if len(items) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No battery packs found."))
				return nil
			}
			rows := make([][]string, len(items))
			for i, item := range items {
				rows[i] = []string{item.ShortName, item.Version, item.Description}
			}
			fmt.Fprintln(app.stdout, renderTable([]string{"PACK", "VERSION", "DESCRIPTION"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json or toml")

	return cmd
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/battery-pack-rs/battery-pack/internal/selection"

	"github.com/spf13/cobra"
)

// newPickCommand creates the `bp pick` command.
func newPickCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "pick [query]",
		Short: "Choose a battery pack interactively and resolve it",
		Long: `Search the registry for battery packs, choose one from the list and print
its flattened namespace. Requires an interactive terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if !app.interactive {
				return app.fail("pick battery pack", "", selection.ErrNoChooser)
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			facade, err := app.facade(nil)
			if err != nil {
				return app.fail("pick battery pack", query, err)
			}
			item, res, err := facade.Pick(cmd.Context(), query)
			if err != nil {
				return app.fail("pick battery pack", string(item.Name), err)
			}
			return writeResolution(app.stdout, format, res)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json or toml")

	return cmd
}

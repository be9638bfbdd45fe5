// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/battery-pack-rs/battery-pack/internal/tui"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"

	"github.com/spf13/cobra"
)

// newCacheCommand creates the `bp cache` command tree.
func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the template cache",
		Long: `Inspect and prune the template cache.

Pack archives are cached per name and version, each with a checksum
recorded at download time. The location defaults to the user cache
directory and can be changed with cache.dir or $BATTERY_PACK_CACHE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(
		newCacheListCommand(app),
		newCacheInvalidateCommand(app),
		newCacheCleanCommand(app),
		newCachePathCommand(app),
	)
	return cacheCmd
}

func newCacheListCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached pack archives",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			svc, err := app.services()
			if err != nil {
				return app.fail("list cache", "", err)
			}
			entries, err := svc.Cache.Entries()
			if err != nil {
				return app.fail("list cache", svc.Cache.Dir(), err)
			}

			if format != formatTable {
				return writeStructured(app.stdout, format, map[string]any{"entries": entries})
			}
			if len(entries) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("cache is empty"))
				return nil
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Name, e.Version, strconv.FormatInt(e.Size, 10), e.FetchedAt.Format(time.DateTime), e.Source}
			}
			fmt.Fprintln(app.stdout, renderTable([]string{"PACK", "VERSION", "BYTES", "FETCHED", "SOURCE"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json or toml")
	return cmd
}

func newCacheInvalidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <pack> [version]",
		Short: "Evict one version, or every version, of a pack",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := string(batterypack.ResolvePackName(args[0]))
			version := ""
			if len(args) == 2 {
				version = args[1]
			}

			svc, err := app.services()
			if err != nil {
				return app.fail("invalidate cache entry", name, err)
			}
			if err := svc.Cache.Invalidate(name, version); err != nil {
				return app.fail("invalidate cache entry", name, err)
			}

			target := name
			if version != "" {
				target += "@" + version
			}
			fmt.Fprintf(app.stdout, "%s Evicted %s\n", SuccessStyle.Render("✓"), target)
			return nil
		},
	}
}

func newCacheCleanCommand(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove every cached archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services()
			if err != nil {
				return app.fail("clean cache", "", err)
			}

			if !yes {
				if !app.interactive {
					return fmt.Errorf("refusing to clean %s without --yes", svc.Cache.Dir())
				}
				ok, err := tui.Confirm(cmd.Context(), tui.ConfirmOptions{
					Title:       "Remove every cached pack archive?",
					Description: svc.Cache.Dir(),
					Config:      app.tuiConfig(),
				})
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(app.stdout, SubtitleStyle.Render("cache left untouched"))
					return nil
				}
			}

			if err := svc.Cache.Clean(); err != nil {
				return app.fail("clean cache", svc.Cache.Dir(), err)
			}
			fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), svc.Cache.Dir())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newCachePathCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services()
			if err != nil {
				return app.fail("locate cache", "", err)
			}
			fmt.Fprintln(app.stdout, svc.Cache.Dir())
			return nil
		},
	}
}

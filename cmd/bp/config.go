// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/battery-pack-rs/battery-pack/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `bp config` command tree. Subcommands read
// the configuration the root command already loaded.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bp configuration",
		Long: `Manage bp configuration.

Configuration is stored in:
  - Linux: ~/.config/battery-pack/config.cue
  - macOS: ~/Library/Application Support/battery-pack/config.cue
  - Windows: %APPDATA%\battery-pack\config.cue

Every key can be overridden with a BP_ environment variable, for example
BP_DISTRIBUTION=git or BP_REGISTRY_TIMEOUT=10s.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig(force)
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(app.stdout, "%s already exists (use --force to overwrite)\n", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.cfgPath
			if path == "" {
				var err error
				if path, err = config.ConfigFilePath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App) error {
	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	source := SubtitleStyle.Render("(using defaults)")
	if app.cfgErr != nil {
		source = ErrorStyle.Render("(invalid, using defaults)")
	} else if app.cfgSource != "" {
		source = app.cfgSource
	}
	fmt.Fprintf(w, "%s: %s\n\n", keyStyle.Render("Config file"), source)

	cfg := app.cfg
	row := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(default)")
		} else {
			value = valueStyle.Render(value)
		}
		fmt.Fprintf(w, "  %s: %s\n", key, value)
	}

	fmt.Fprintf(w, "%s: %s\n\n", keyStyle.Render("distribution"), valueStyle.Render(string(cfg.Distribution)))

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("registry"))
	row("url", string(cfg.Registry.URL))
	row("cdn_url", string(cfg.Registry.CDNURL))
	row("user_agent", cfg.Registry.UserAgent)
	row("timeout", string(cfg.Registry.Timeout))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("cache"))
	row("dir", string(cfg.Cache.Dir))
	row("listing_size", strconv.Itoa(cfg.Cache.ListingSize))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("git"))
	row("url_pattern", string(cfg.Git.URLPattern))
	row("token_env", cfg.Git.TokenEnv)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	row("color_scheme", string(cfg.UI.ColorScheme))
	row("verbose", strconv.FormatBool(cfg.UI.Verbose))
	row("interactive", strconv.FormatBool(cfg.UI.Interactive))

	return nil
}

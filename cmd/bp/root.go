// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the bp command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	var (
		cfgFile     string
		verbose     bool
		interactive bool
	)

	rootCmd := &cobra.Command{
		Use:   "bp",
		Short: "Compose and scaffold Rust battery packs",
		Long: TitleStyle.Render("bp") + SubtitleStyle.Render(" - Compose and scaffold Rust battery packs") + `

A battery pack is a curated crate that re-exports a set of dependencies and
may extend other battery packs. bp resolves the extension graph into one
flattened namespace and scaffolds new projects from the templates packs ship.

` + SubtitleStyle.Render("Examples:") + `
  bp search cli             Find battery packs on crates.io
  bp show cli               Describe cli-battery-pack
  bp resolve Cargo.toml     Print the flattened namespace of a local pack
  bp new cli --dir my-tool  Scaffold a project from a pack template
  bp add cli -F derive      Add cli-battery-pack to ./Cargo.toml
  bp config show            Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.verbose = verbose
			app.loadConfig(cmd.Context(), cfgFile)
			if !cmd.Flags().Changed("verbose") {
				app.verbose = app.cfg.UI.Verbose
			}
			app.interactive = app.cfg.UI.Interactive
			if cmd.Flags().Changed("interactive") {
				app.interactive = interactive
			}
			installLogger(app.stderr, app.verbose)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/battery-pack/config.cue)")
	rootCmd.PersistentFlags().BoolVarP(&interactive, "interactive", "i", true, "prompt when a choice is ambiguous")

	rootCmd.AddCommand(
		newResolveCommand(app),
		newSearchCommand(app),
		newShowCommand(app),
		newNewCommand(app),
		newAddCommand(app),
		newPickCommand(app),
		newCacheCommand(app),
		newConfigCommand(app),
		newCompletionCommand(),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs bp with production dependencies. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(ExitFailure))
	}
}

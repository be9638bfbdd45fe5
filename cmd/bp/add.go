// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/templates"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"

	"github.com/spf13/cobra"
)

type addOptions struct {
	features     []string
	version      string
	manifestPath string
}

// newAddCommand creates the `bp add` command.
func newAddCommand(app *App) *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <pack>",
		Short: "Add a battery pack to a Cargo project",
		Long: `Add a battery pack as a dependency of a Cargo project.

The pack is looked up on the registry and declared under its short name, so
"bp add cli" writes cli = { package = "cli-battery-pack", version = "..." }
into [dependencies]. An existing entry under the same name is updated.

Examples:
  bp add cli
  bp add cli -F color -F derive
  bp add web --version 0.2 --manifest-path crates/app/Cargo.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := batterypack.ResolvePackName(args[0])
			dep, replaced, err := app.addPack(cmd.Context(), name, opts)
			if err != nil {
				return app.fail("add battery pack", string(name), err)
			}

			verb := "Added"
			if replaced {
				verb = "Updated"
			}
			fmt.Fprintf(app.stdout, "%s %s %s (%s %s) to %s\n",
				SuccessStyle.Render("✓"), verb, CmdStyle.Render(dep.Key), dep.Package, dep.Version, opts.manifestPath)
			if len(dep.Features) > 0 {
				fmt.Fprintf(app.stdout, "  features: %s\n", strings.Join(dep.Features, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.features, "features", "F", nil, "features to enable (repeatable, comma or space separated)")
	cmd.Flags().StringVar(&opts.version, "version", "", "version requirement (default: newest stable release)")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest-path", "Cargo.toml", "Cargo.toml of the project to edit")

	return cmd
}

// addPack checks that name is published and declares it in the project
// manifest.
func (a *App) addPack(ctx context.Context, name batterypack.PackName, opts addOptions) (batterypack.Dependency, bool, error) {
	if ok, errs := name.IsValid(); !ok {
		return batterypack.Dependency{}, false, errs[0]
	}
	version := strings.TrimSpace(opts.version)
	if ok, errs := batterypack.VersionConstraint(version).IsValid(); !ok {
		return batterypack.Dependency{}, false, errs[0]
	}

	svc, err := a.services()
	if err != nil {
		return batterypack.Dependency{}, false, err
	}
	crate, err := svc.Registry.FetchCrate(ctx, string(name))
	if err != nil {
		return batterypack.Dependency{}, false, err
	}

	if version == "" {
		version = crate.MaxVersion
		if available := crate.Available(); version == "" && len(available) > 0 {
			version = available[0]
		}
		if version == "" {
			return batterypack.Dependency{}, false, fmt.Errorf("%s: %w", name, templates.ErrNoVersions)
		}
	}

	dep := batterypack.PackDependency(name, version, splitFeatures(opts.features))
	replaced, err := batterypack.AddDependency(opts.manifestPath, dep)
	if err != nil {
		return batterypack.Dependency{}, false, err
	}
	return dep, replaced, nil
}

// splitFeatures accepts -F a,b -F "c d" the way cargo does, dropping
// duplicates.
func splitFeatures(values []string) []string {
	var out []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out
}

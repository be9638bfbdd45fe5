// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/battery-pack-rs/battery-pack/internal/selection"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"

	"github.com/spf13/cobra"
)

type resolveOptions struct {
	packsDir string
	format   string
	offline  bool
}

// newResolveCommand creates the `bp resolve` command.
func newResolveCommand(app *App) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <manifest|pack>",
		Short: "Print the flattened namespace of a battery pack",
		Long: `Resolve a battery pack's extension graph and print the flattened namespace.

The argument is a local manifest (a .cue file, a Cargo.toml, or a directory
containing either) or the name of a published pack. Packs named in extends
are looked up in --packs-dir first, then on the registry.

` + SubtitleStyle.Render("Examples:") + `
  bp resolve ./Cargo.toml
  bp resolve packs/cli.cue --packs-dir packs --format json
  bp resolve cli`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			res, err := app.resolve(cmd.Context(), args[0], opts)
			if err != nil {
				return app.fail("resolve battery pack", args[0], err)
			}
			return writeResolution(app.stdout, opts.format, res)
		},
	}

	cmd.Flags().StringVar(&opts.packsDir, "packs-dir", "", "directory of local packs (<name>.cue or <name>/Cargo.toml)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format: table, json or toml")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "never contact the registry; only --packs-dir is searched")

	return cmd
}

// resolve loads target as a local manifest when it is a path, otherwise as
// a pack name.
func (a *App) resolve(ctx context.Context, target string, opts resolveOptions) (*selection.Resolution, error) {
	lookup, err := a.packLookup(opts.packsDir, opts.offline)
	if err != nil {
		return nil, err
	}

	var facade *selection.Facade
	if opts.offline {
		facade = selection.New(nil, nil, lookup)
	} else if facade, err = a.facade(lookup); err != nil {
		return nil, err
	}

	if isPath(target) {
		manifest, err := selection.LoadManifest(target)
		if err != nil {
			return nil, err
		}
		return facade.ResolveManifest(ctx, manifest)
	}
	return facade.ResolvePack(ctx, target)
}

// packLookup chains the local packs directory in front of the registry.
func (a *App) packLookup(packsDir string, offline bool) (composition.Lookup, error) {
	var chain selection.Chain
	if packsDir != "" {
		chain = append(chain, selection.NewDirLookup(packsDir))
	}
	if !offline {
		svc, err := a.services()
		if err != nil {
			return nil, err
		}
		chain = append(chain, selection.NewCacheLookup(svc.Cache))
	}
	return chain, nil
}

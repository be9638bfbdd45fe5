// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/battery-pack-rs/battery-pack/internal/selection"
	"github.com/battery-pack-rs/battery-pack/internal/tui"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"

	"github.com/spf13/cobra"
)

type newOptions struct {
	template string
	version  string
	dir      string
	name     string
	path     string
}

// newNewCommand creates the `bp new` command.
func newNewCommand(app *App) *cobra.Command {
	var opts newOptions

	cmd := &cobra.Command{
		Use:   "new <pack>",
		Short: "Scaffold a project from a battery pack template",
		Long: `Scaffold a project from one of a battery pack's templates.

The pack archive is fetched through the template cache. When the pack has
several templates and none is marked default, --template picks one; in an
interactive terminal you are asked instead.

` + SubtitleStyle.Render("Examples:") + `
  bp new cli
  bp new cli --template subcommands --name mytool
  bp new --path ./my-battery-pack --template minimal`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.path == "" {
				return fmt.Errorf("a pack name or --path is required")
			}
			pack := ""
			if len(args) == 1 {
				pack = args[0]
			}

			dest, err := app.scaffold(cmd.Context(), pack, opts)
			if err != nil {
				resource := pack
				if resource == "" {
					resource = opts.path
				}
				return app.fail("scaffold project", resource, err)
			}
			fmt.Fprintf(app.stdout, "%s Created project in %s\n", SuccessStyle.Render("✓"), dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "template to use")
	cmd.Flags().StringVar(&opts.version, "version", "", "pack version (default: newest release)")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "destination directory (default: ./<name>)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "project name substituted into the template")
	cmd.Flags().StringVar(&opts.path, "path", "", "use a local pack checkout instead of the registry")

	return cmd
}

// scaffold materialises the selected template and returns the destination.
func (a *App) scaffold(ctx context.Context, pack string, opts newOptions) (string, error) {
	sel, err := a.acquire(ctx, pack, opts)
	if err != nil {
		return "", err
	}
	defer func() { _ = sel.Close() }()

	name := opts.name
	if name == "" {
		name = batterypack.ShortName(sel.Descriptor.Name)
	}
	dest := opts.dir
	if dest == "" {
		dest = name
	}
	dest, err = filepath.Abs(dest)
	if err != nil {
		return "", err
	}

	if err := sel.CopyTo(dest, name); err != nil {
		return "", err
	}
	a.logSelection(sel)
	return dest, nil
}

func (a *App) acquire(ctx context.Context, pack string, opts newOptions) (*selection.TemplateSelection, error) {
	if opts.path != "" {
		return selection.New(nil, nil, nil, a.chooserOpts()...).TemplateFromDir(ctx, opts.path, opts.template)
	}

	facade, err := a.facade(nil)
	if err != nil {
		return nil, err
	}
	svc, err := a.services()
	if err != nil {
		return nil, err
	}

	// Warm the cache behind a spinner; the template prompt that may follow
	// must not run while the spinner owns the terminal.
	name := string(batterypack.ResolvePackName(pack))
	err = tui.RunWithSpinner(ctx, "Fetching "+name, a.tuiConfig(), func(ctx context.Context) error {
		_, err := svc.Cache.Resolve(ctx, name, opts.version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return facade.AcquireTemplate(ctx, name, opts.version, opts.template)
}

func (a *App) chooserOpts() []selection.Option {
	if !a.interactive {
		return nil
	}
	return []selection.Option{selection.WithChooser(a.chooser())}
}

func (a *App) logSelection(sel *selection.TemplateSelection) {
	if !a.verbose {
		return
	}
	fmt.Fprintf(a.stderr, "%s %s\n", SubtitleStyle.Render("template:"), sel.Descriptor)
}

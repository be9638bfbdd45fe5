// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/config"
	"github.com/battery-pack-rs/battery-pack/internal/registry"
	"github.com/battery-pack-rs/battery-pack/internal/selection"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// packDetails is everything `bp show` reports about a pack.
type packDetails struct {
	Manifest *batterypack.PackManifest
	Crate    *registry.Crate
	Owners   []registry.Owner
}

// newShowCommand creates the `bp show` command.
func newShowCommand(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <pack>",
		Short: "Describe a published battery pack",
		Long: `Describe a published battery pack: its crates, the packs it extends,
its templates, owners and package URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := batterypack.ResolvePackName(args[0])
			details, err := app.packDetails(cmd.Context(), name)
			if err != nil {
				return app.fail("show battery pack", string(name), err)
			}

			md := detailsMarkdown(details)
			if raw {
				fmt.Fprint(app.stdout, md)
				return nil
			}
			out, err := renderMarkdown(md, app.cfg.UI.ColorScheme)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")

	return cmd
}

func (a *App) packDetails(ctx context.Context, name batterypack.PackName) (*packDetails, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}

	manifest, err := selection.NewCacheLookup(svc.Cache).Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	details := &packDetails{Manifest: manifest}
	// Registry metadata is decoration; the git distribution may serve packs
	// crates.io has never seen.
	if crate, err := svc.Registry.FetchCrate(ctx, string(name)); err == nil {
		details.Crate = crate
		if owners, err := svc.Registry.Owners(ctx, string(name)); err == nil {
			details.Owners = owners
		}
	}
	return details, nil
}

// detailsMarkdown renders d as a markdown document.
func detailsMarkdown(d *packDetails) string {
	m := d.Manifest
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", m.Name())
	if m.Description() != "" {
		fmt.Fprintf(&sb, "%s\n\n", m.Description())
	}
	if m.Version() != "" {
		fmt.Fprintf(&sb, "- **Version:** %s\n", m.Version())
		fmt.Fprintf(&sb, "- **PURL:** `%s`\n", registry.PURL(string(m.Name()), m.Version()))
	}
	if d.Crate != nil && d.Crate.Repository != "" {
		fmt.Fprintf(&sb, "- **Repository:** %s\n", d.Crate.Repository)
	}
	if len(d.Owners) > 0 {
		logins := make([]string, len(d.Owners))
		for i, o := range d.Owners {
			logins[i] = o.Login
		}
		fmt.Fprintf(&sb, "- **Owners:** %s\n", strings.Join(logins, ", "))
	}

	if extends := m.Extends(); len(extends) > 0 {
		sb.WriteString("\n## Extends\n\n")
		for _, e := range extends {
			fmt.Fprintf(&sb, "- %s\n", e.Pack)
		}
	}

	sb.WriteString("\n## Crates\n\n")
	crates := m.Crates()
	if len(crates) == 0 {
		sb.WriteString("_none declared directly_\n")
	}
	for _, c := range crates {
		line := fmt.Sprintf("- `%s`", c.Name)
		if c.Version != "" {
			line += " " + string(c.Version)
		}
		if c.Alias != "" {
			line += fmt.Sprintf(" as `%s`", c.Alias)
		}
		sb.WriteString(line + "\n")
	}
	if excluded := m.Exclude(); len(excluded) > 0 {
		names := make([]string, len(excluded))
		for i, n := range excluded {
			names[i] = "`" + string(n) + "`"
		}
		fmt.Fprintf(&sb, "\nExcludes %s.\n", strings.Join(names, ", "))
	}

	if names := m.TemplateNames(); len(names) > 0 {
		sb.WriteString("\n## Templates\n\n")
		tmpls := m.Templates()
		for _, n := range names {
			if desc := tmpls[n].Description; desc != "" {
				fmt.Fprintf(&sb, "- **%s**: %s\n", n, desc)
			} else {
				fmt.Fprintf(&sb, "- **%s**\n", n)
			}
		}
		fmt.Fprintf(&sb, "\nScaffold with `bp new %s --template <name>`.\n", m.Name().Short())
	}

	return sb.String()
}

// renderMarkdown renders md for the terminal in the configured scheme.
func renderMarkdown(md string, scheme config.ColorScheme) (string, error) {
	styleOpt := glamour.WithAutoStyle()
	switch scheme {
	case config.ColorSchemeDark:
		styleOpt = glamour.WithStandardStyle("dark")
	case config.ColorSchemeLight:
		styleOpt = glamour.WithStandardStyle("light")
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render(md)
}

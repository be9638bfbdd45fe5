// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/selection"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pelletier/go-toml/v2"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatTOML  = "toml"
)

var outputFormats = []string{formatTable, formatJSON, formatTOML}

type (
	// resolutionView is the serialised form of a Resolution.
	resolutionView struct {
		Root    batterypack.PackName   `json:"root" toml:"root"`
		Packs   []batterypack.PackName `json:"packs" toml:"packs"`
		Entries []entryView            `json:"entries" toml:"entries"`
	}

	entryView struct {
		Name    string               `json:"name" toml:"name"`
		Crate   string               `json:"crate" toml:"crate"`
		Version string               `json:"version,omitempty" toml:"version,omitempty"`
		Owner   batterypack.PackName `json:"owner" toml:"owner"`
		Path    string               `json:"path" toml:"path"`
		Module  string               `json:"module,omitempty" toml:"module,omitempty"`
		Glob    bool                 `json:"glob,omitempty" toml:"glob,omitempty"`
		Items   []string             `json:"items,omitempty" toml:"items,omitempty"`
	}
)

func newResolutionView(res *selection.Resolution) resolutionView {
	view := resolutionView{
		Root:  res.Graph.Root(),
		Packs: res.Graph.Order(),
	}
	for _, e := range res.Namespace.Entries() {
		view.Entries = append(view.Entries, entryView{
			Name:    e.ExposedName,
			Crate:   string(e.Crate.Name),
			Version: string(e.Crate.Version),
			Owner:   e.Owner,
			Path:    e.Path,
			Module:  e.Module,
			Glob:    e.Glob,
			Items:   e.Items,
		})
	}
	return view
}

func validateFormat(format string) error {
	if slices.Contains(outputFormats, format) {
		return nil
	}
	return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(outputFormats, ", "))
}

// writeStructured encodes v as JSON or TOML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// writeResolution prints res in format.
func writeResolution(w io.Writer, format string, res *selection.Resolution) error {
	view := newResolutionView(res)
	if format != formatTable {
		return writeStructured(w, format, view)
	}

	packs := make([]string, len(view.Packs))
	for i, p := range view.Packs {
		packs[i] = string(p)
	}
	fmt.Fprintln(w, TitleStyle.Render(string(view.Root)))
	fmt.Fprintln(w, SubtitleStyle.Render("packs: "+strings.Join(packs, " → ")))
	fmt.Fprintln(w)

	rows := make([][]string, len(view.Entries))
	for i, e := range view.Entries {
		name := e.Name
		if e.Module != "" {
			name = e.Module + "::" + name
		}
		rows[i] = []string{name, e.Crate, e.Version, string(e.Owner), e.reexport()}
	}
	fmt.Fprintln(w, renderTable([]string{"NAME", "CRATE", "VERSION", "OWNER", "PATH"}, rows))
	return nil
}

// reexport renders the use path, e.g. "tokio::*" or "serde::{Serialize, Deserialize}".
func (e entryView) reexport() string {
	switch {
	case e.Glob:
		return e.Path + "::*"
	case len(e.Items) == 1:
		return e.Path + "::" + e.Items[0]
	case len(e.Items) > 1:
		return e.Path + "::{" + strings.Join(e.Items, ", ") + "}"
	default:
		return e.Path
	}
}

// renderTable renders a borderless table with styled headers.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		String()
}

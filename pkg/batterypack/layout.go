// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"fmt"
	"maps"
	"slices"
)

// GlobMarker selects every public item of a crate in the table form of a
// placement list: root = { tokio = "*" }.
const GlobMarker = "*"

// rustKeywords must be written as raw identifiers (r#name) when used as a
// module name.
var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "crate": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true,
}

type (
	// Placement puts one dependency into a facade module.
	Placement struct {
		// Crate is the dependency key: a registry name, an alias or a parent
		// pack.
		Crate string `json:"crate" toml:"crate"`
		// Glob re-exports every public item of the crate.
		Glob bool `json:"glob,omitempty" toml:"glob,omitempty"`
		// Items re-exports only the listed items.
		Items []string `json:"items,omitempty" toml:"items,omitempty"`
	}

	// Module is one named facade module.
	Module struct {
		Name       string      `json:"name" toml:"name"`
		Placements []Placement `json:"placements" toml:"placements"`
	}

	// Layout shapes the facade. Without one every crate is re-exported at
	// the root. With one only the placed dependencies are.
	Layout struct {
		Root []Placement `json:"root,omitempty" toml:"root,omitempty"`
		// Modules are ordered by name.
		Modules []Module `json:"modules,omitempty" toml:"modules,omitempty"`
	}
)

// Whole reports whether p re-exports the crate itself rather than its items.
func (p Placement) Whole() bool { return !p.Glob && len(p.Items) == 0 }

// Explicit reports whether the layout places anything.
func (l Layout) Explicit() bool { return len(l.Root) > 0 || len(l.Modules) > 0 }

func (l Layout) clone() Layout {
	out := Layout{Root: clonePlacements(l.Root)}
	for _, m := range l.Modules {
		out.Modules = append(out.Modules, Module{Name: m.Name, Placements: clonePlacements(m.Placements)})
	}
	return out
}

func clonePlacements(ps []Placement) []Placement {
	if ps == nil {
		return nil
	}
	out := make([]Placement, len(ps))
	for i, p := range ps {
		out[i] = Placement{Crate: p.Crate, Glob: p.Glob, Items: slices.Clone(p.Items)}
	}
	return out
}

// ModuleIdent returns the identifier a module is declared under. Keywords
// are escaped: "type" becomes "r#type".
func ModuleIdent(name string) string {
	if rustKeywords[name] {
		return "r#" + name
	}
	return name
}

// DecodeLayout builds a Layout from the decoded root and modules values.
// Each value is either a list of dependency keys or a table mapping a key to
// GlobMarker or a list of items. Table entries with no items are dropped.
func DecodeLayout(root any, modules map[string]any) (Layout, error) {
	var (
		l   Layout
		err error
	)
	if l.Root, err = decodePlacements(root); err != nil {
		return Layout{}, fmt.Errorf("root: %w", err)
	}
	for _, name := range slices.Sorted(maps.Keys(modules)) {
		ps, err := decodePlacements(modules[name])
		if err != nil {
			return Layout{}, fmt.Errorf("modules.%s: %w", name, err)
		}
		l.Modules = append(l.Modules, Module{Name: name, Placements: ps})
	}
	return l, nil
}

func decodePlacements(v any) ([]Placement, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]Placement, 0, len(v))
		for i, item := range v {
			key, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("[%d]: want a string, got %T", i, item)
			}
			out = append(out, Placement{Crate: key})
		}
		return out, nil
	case map[string]any:
		out := make([]Placement, 0, len(v))
		for _, key := range slices.Sorted(maps.Keys(v)) {
			switch cfg := v[key].(type) {
			case string:
				if cfg != GlobMarker {
					return nil, fmt.Errorf("%s: want %q or a list of items, got %q", key, GlobMarker, cfg)
				}
				out = append(out, Placement{Crate: key, Glob: true})
			case []any:
				items := make([]string, 0, len(cfg))
				for i, item := range cfg {
					s, ok := item.(string)
					if !ok {
						return nil, fmt.Errorf("%s[%d]: want a string, got %T", key, i, item)
					}
					items = append(items, s)
				}
				if len(items) > 0 {
					out = append(out, Placement{Crate: key, Items: items})
				}
			default:
				return nil, fmt.Errorf("%s: want %q or a list of items, got %T", key, GlobMarker, cfg)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want a list or a table, got %T", v)
	}
}

func (l Layout) validate(malformed func(field, reason string, err error)) {
	check := func(field string, ps []Placement) {
		for i, p := range ps {
			if p.Crate == "" {
				malformed(fmt.Sprintf("%s[%d]", field, i), "dependency key must not be empty", nil)
			}
			if slices.Contains(p.Items, "") {
				malformed(fmt.Sprintf("%s[%d].items", field, i), "items must not be empty", nil)
			}
		}
	}
	check("root", l.Root)
	for _, m := range l.Modules {
		if !aliasPattern.MatchString(m.Name) {
			malformed("modules."+m.Name, "module name must be an identifier", nil)
			continue
		}
		check("modules."+m.Name, m.Placements)
	}
}

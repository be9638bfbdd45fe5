// SPDX-License-Identifier: MPL-2.0

// Package namespace flattens a composition graph into the single namespace a
// battery pack facade re-exports.
//
// Packs are merged in graph order, ancestors first and the root last. Each
// curated crate is exposed under its alias, or its identifier form when it
// has none, and inherited crates are reached through their owning pack
// (cli_battery_pack::clap). Crates owned by the root facade crate itself keep
// their registry name untouched; see undecoratedOwner.
//
// When the root declares a Layout, the merged entries are then arranged into
// facade modules: only placed dependencies are kept, each tagged with its
// module and with the glob or item selection the placement asked for.
package namespace

import (
	"errors"
	"fmt"
	"slices"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
)

var (
	// ErrNameCollision is the sentinel wrapped by NameCollisionError.
	ErrNameCollision = errors.New("name collision")

	// ErrEmptyNamespace is the sentinel wrapped by EmptyNamespaceError.
	ErrEmptyNamespace = errors.New("empty namespace")

	// ErrUnknownPlacement is the sentinel wrapped by UnknownPlacementError.
	ErrUnknownPlacement = errors.New("unknown placement")
)

type (
	// Entry is one re-exported crate of the flattened namespace.
	Entry struct {
		// ExposedName is the identifier the crate is re-exported under.
		ExposedName string `json:"exposed_name" toml:"exposed_name"`
		// Owner is the pack that declared the crate.
		Owner batterypack.PackName `json:"owner" toml:"owner"`
		// Crate is the declaration as written in Owner's manifest.
		Crate batterypack.CrateReference `json:"crate" toml:"crate"`
		// Path is the import path the facade re-exports.
		Path string `json:"path" toml:"path"`
		// Module is the facade module holding the entry, empty for the top
		// level. Keywords are already escaped.
		Module string `json:"module,omitempty" toml:"module,omitempty"`
		// Glob re-exports every public item of Path instead of Path itself.
		Glob bool `json:"glob,omitempty" toml:"glob,omitempty"`
		// Items, when set, are the only items of Path re-exported.
		Items []string `json:"items,omitempty" toml:"items,omitempty"`
	}

	// OwnerConstraint pairs a crate with the version requirement its owning
	// pack declared for it.
	OwnerConstraint struct {
		Owner   batterypack.PackName          `json:"owner" toml:"owner"`
		Crate   batterypack.CrateName         `json:"crate" toml:"crate"`
		Version batterypack.VersionConstraint `json:"version,omitempty" toml:"version,omitempty"`
	}

	// FlattenedNamespace is the merged, ordered result of Resolve.
	FlattenedNamespace struct {
		root    batterypack.PackName
		entries []Entry
		index   map[string]int
	}

	// NameCollisionError reports two packs exposing the same name. First is
	// the pack merged earlier.
	NameCollisionError struct {
		Name   string
		First  batterypack.PackName
		Second batterypack.PackName
	}

	// EmptyNamespaceError reports a root that would re-export nothing.
	EmptyNamespaceError struct {
		Pack batterypack.PackName
	}

	// UnknownPlacementError reports a layout key that names neither a merged
	// crate nor a pack of the graph.
	UnknownPlacementError struct {
		Key    string
		Module string
	}

	// merger accumulates entries; removed entries become tombstones until
	// the final compaction.
	merger struct {
		root    *batterypack.PackManifest
		entries []Entry
		removed []bool
		index   map[string]int
	}
)

// Error implements the error interface.
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("name collision: %q is exposed by both %s and %s", e.Name, e.First, e.Second)
}

// Unwrap returns ErrNameCollision so callers can use errors.Is.
func (e *NameCollisionError) Unwrap() error { return ErrNameCollision }

// Error implements the error interface.
func (e *EmptyNamespaceError) Error() string {
	return fmt.Sprintf("empty namespace: %s declares no crates and extends no packs", e.Pack)
}

// Unwrap returns ErrEmptyNamespace so callers can use errors.Is.
func (e *EmptyNamespaceError) Unwrap() error { return ErrEmptyNamespace }

// Error implements the error interface.
func (e *UnknownPlacementError) Error() string {
	where := "the top level"
	if e.Module != "" {
		where = "module " + e.Module
	}
	return fmt.Sprintf("unknown placement: %q placed in %s is not a crate or pack of the namespace", e.Key, where)
}

// Unwrap returns ErrUnknownPlacement so callers can use errors.Is.
func (e *UnknownPlacementError) Unwrap() error { return ErrUnknownPlacement }

// Resolve merges every pack of g into one namespace.
//
// Inherited entries are merged first, in graph order. The root's exclude list
// drops inherited crates by registry or exposed name. A root entry replaces
// an inherited entry with the same exposed name when it names the same crate
// or sets Override. Two non-root packs declaring the same crate, version and
// alias merge into the first owner's entry. Every other clash is a
// NameCollisionError. A root Layout is applied last; see arrange.
func Resolve(g *composition.Graph) (*FlattenedNamespace, error) {
	rootName := g.Root()
	root, ok := g.Manifest(rootName)
	if !ok {
		return nil, fmt.Errorf("namespace: root %s missing from graph", rootName)
	}
	if len(root.Crates()) == 0 && len(root.Extends()) == 0 {
		return nil, &EmptyNamespaceError{Pack: rootName}
	}

	m := &merger{root: root, index: make(map[string]int)}
	for _, owner := range g.Ancestors() {
		manifest, _ := g.Manifest(owner)
		for _, ref := range manifest.Crates() {
			if err := m.inherit(owner, ref); err != nil {
				return nil, err
			}
		}
	}
	for _, ref := range root.Crates() {
		if err := m.declare(ref); err != nil {
			return nil, err
		}
	}

	entries := m.compact()
	if layout := root.Layout(); layout.Explicit() {
		var err error
		if entries, err = arrange(g, root, layout, entries); err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 {
		return nil, &EmptyNamespaceError{Pack: rootName}
	}
	return newFlattenedNamespace(rootName, entries), nil
}

func (m *merger) inherit(owner batterypack.PackName, ref batterypack.CrateReference) error {
	e := project(owner, ref, false)
	if m.root.Excludes(ref.Name) || m.root.Excludes(batterypack.CrateName(e.ExposedName)) {
		return nil
	}

	if i, dup := m.index[e.ExposedName]; dup {
		if m.entries[i].Crate.SameDeclaration(ref) {
			return nil
		}
		return &NameCollisionError{Name: e.ExposedName, First: m.entries[i].Owner, Second: owner}
	}
	m.add(e)
	return nil
}

func (m *merger) declare(ref batterypack.CrateReference) error {
	e := project(m.root.Name(), ref, true)

	if i, dup := m.index[e.ExposedName]; dup {
		prev := m.entries[i]
		if prev.Owner == m.root.Name() || (prev.Crate.Name != ref.Name && !ref.Override) {
			return &NameCollisionError{Name: e.ExposedName, First: prev.Owner, Second: m.root.Name()}
		}
		m.removed[i] = true
	}
	m.add(e)
	return nil
}

func (m *merger) add(e Entry) {
	m.index[e.ExposedName] = len(m.entries)
	m.entries = append(m.entries, e)
	m.removed = append(m.removed, false)
}

func (m *merger) compact() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for i, e := range m.entries {
		if !m.removed[i] {
			out = append(out, e)
		}
	}
	return out
}

func newFlattenedNamespace(root batterypack.PackName, entries []Entry) *FlattenedNamespace {
	ns := &FlattenedNamespace{root: root, entries: entries, index: make(map[string]int, len(entries))}
	for i, e := range entries {
		ns.index[e.QualifiedName()] = i
	}
	return ns
}

// arrange keeps only the placed dependencies of entries, in layout order:
// top-level placements first, then modules by name. A key may name a merged
// entry by exposed or registry name, or a pack of the graph. Placing a whole
// pack places every entry it contributes, inherited ones included; a glob or
// item placement of a pack re-exports from the pack crate itself. Keys the
// root excludes are skipped. Placing the same entry twice in one module keeps
// the first.
func arrange(g *composition.Graph, root *batterypack.PackManifest, layout batterypack.Layout, entries []Entry) ([]Entry, error) {
	modules := append([]batterypack.Module{{Placements: layout.Root}}, layout.Modules...)

	var out []Entry
	seen := make(map[string]bool)
	for _, mod := range modules {
		for _, p := range mod.Placements {
			if root.Excludes(batterypack.CrateName(p.Crate)) {
				continue
			}
			placed, ok := placementEntries(g, root.Name(), p, entries)
			if !ok {
				return nil, &UnknownPlacementError{Key: p.Crate, Module: mod.Name}
			}
			for _, e := range placed {
				e.Module = ""
				if mod.Name != "" {
					e.Module = batterypack.ModuleIdent(mod.Name)
				}
				e.Glob = p.Glob
				e.Items = slices.Clone(p.Items)
				if key := e.QualifiedName(); !seen[key] {
					seen[key] = true
					out = append(out, e)
				}
			}
		}
	}
	return out, nil
}

func placementEntries(g *composition.Graph, root batterypack.PackName, p batterypack.Placement, entries []Entry) ([]Entry, bool) {
	for _, e := range entries {
		if e.ExposedName == p.Crate || e.ExposedName == batterypack.Ident(p.Crate) {
			return []Entry{e}, true
		}
	}
	for _, e := range entries {
		if string(e.Crate.Name) == p.Crate {
			return []Entry{e}, true
		}
	}

	pack := batterypack.PackName(p.Crate)
	if _, ok := g.Manifest(pack); !ok || pack == root {
		return nil, false
	}
	if !p.Whole() {
		ident := batterypack.Ident(p.Crate)
		return []Entry{{
			ExposedName: ident,
			Owner:       pack,
			Crate:       batterypack.CrateReference{Name: batterypack.CrateName(pack)},
			Path:        ident,
		}}, true
	}

	contributors := lineage(g, pack)
	var out []Entry
	for _, e := range entries {
		if contributors[e.Owner] {
			out = append(out, e)
		}
	}
	return out, true
}

// lineage returns pack and every pack it transitively extends.
func lineage(g *composition.Graph, pack batterypack.PackName) map[batterypack.PackName]bool {
	seen := map[batterypack.PackName]bool{pack: true}
	queue := []batterypack.PackName{pack}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, parent := range g.Parents(next) {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	return seen
}

// project computes the exposed name and import path of ref declared by owner.
func project(owner batterypack.PackName, ref batterypack.CrateReference, isRoot bool) Entry {
	e := Entry{Owner: owner, Crate: ref}

	if undecoratedOwner(owner) {
		e.ExposedName = string(ref.Name)
		e.Path = string(ref.Name)
		return e
	}

	e.ExposedName = batterypack.Ident(string(ref.Name))
	if ref.Alias != "" {
		e.ExposedName = string(ref.Alias)
	}
	if isRoot {
		e.Path = batterypack.Ident(string(ref.Name))
	} else {
		e.Path = batterypack.Ident(string(owner)) + "::" + e.ExposedName
	}
	return e
}

// undecoratedOwner is the reserved-root rule: crates owned by the root facade
// crate ("battery-pack") are exposed under their registry name verbatim, with
// no alias defaulting and no owner prefix on the path.
//
// Parsed manifests never reach it: Validate rejects "battery-pack" as a pack
// name and as an extends entry, and ParseCargoManifest skips the dependency.
// Only graphs built from NewPackManifest values can carry such an owner.
func undecoratedOwner(owner batterypack.PackName) bool {
	return owner.IsReservedRoot()
}

// Root returns the pack the namespace was resolved for.
func (ns *FlattenedNamespace) Root() batterypack.PackName { return ns.root }

// Len returns the number of entries.
func (ns *FlattenedNamespace) Len() int { return len(ns.entries) }

// Entries returns the entries in merge order: inherited entries first, then
// the root's own.
func (ns *FlattenedNamespace) Entries() []Entry { return slices.Clone(ns.entries) }

// QualifiedName is the exposed name prefixed with the module path, e.g.
// "http::reqwest". Top-level entries return ExposedName unchanged.
func (e Entry) QualifiedName() string {
	if e.Module == "" {
		return e.ExposedName
	}
	return e.Module + "::" + e.ExposedName
}

// Lookup returns the entry with the given qualified name.
func (ns *FlattenedNamespace) Lookup(name string) (Entry, bool) {
	i, ok := ns.index[name]
	if !ok {
		return Entry{}, false
	}
	return ns.entries[i], true
}

// Names returns the qualified names in entry order.
func (ns *FlattenedNamespace) Names() []string {
	out := make([]string, len(ns.entries))
	for i, e := range ns.entries {
		out[i] = e.QualifiedName()
	}
	return out
}

// Constraints returns the (owner, crate, version) triples a generator needs
// to emit dependency declarations, in entry order. A crate placed in several
// modules is listed once.
func (ns *FlattenedNamespace) Constraints() []OwnerConstraint {
	out := make([]OwnerConstraint, 0, len(ns.entries))
	for _, e := range ns.entries {
		c := OwnerConstraint{Owner: e.Owner, Crate: e.Crate.Name, Version: e.Crate.Version}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Owners returns the distinct owning packs in entry order.
func (ns *FlattenedNamespace) Owners() []batterypack.PackName {
	var owners []batterypack.PackName
	for _, e := range ns.entries {
		if !slices.Contains(owners, e.Owner) {
			owners = append(owners, e.Owner)
		}
	}
	return owners
}

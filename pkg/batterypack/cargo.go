// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

type (
	cargoDoc struct {
		Package      *cargoPackage  `toml:"package"`
		Dependencies map[string]any `toml:"dependencies"`
	}

	cargoPackage struct {
		Name        string        `toml:"name"`
		Version     any           `toml:"version"`
		Description any           `toml:"description"`
		Metadata    cargoMetadata `toml:"metadata"`
	}

	cargoMetadata struct {
		Battery *cargoBattery `toml:"battery"`
	}

	cargoBattery struct {
		Extends   []string               `toml:"extends"`
		Exclude   []string               `toml:"exclude"`
		Overrides []string               `toml:"overrides"`
		Templates map[string]templateDoc `toml:"templates"`
		Root      any                    `toml:"root"`
		Modules   map[string]any         `toml:"modules"`
	}
)

// ParseCargoManifest reads a pack published as a crate. The crate is a pack
// when its Cargo.toml carries a [package.metadata.battery] table.
//
// Every entry of [dependencies] becomes a curated crate, in name order, except
// the root facade crate. A renamed dependency (key = { package = "..." })
// keeps the key as its alias. Dependencies that are themselves packs are
// treated as parents, together with any explicit metadata extends list. The
// optional root and modules keys become the pack's Layout.
func ParseCargoManifest(data []byte, filename string) (*PackManifest, error) {
	var doc cargoDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, &MalformedManifestError{Source: filename, Reason: fmt.Sprintf("line %d, column %d", row, col), Err: err}
		}
		return nil, &MalformedManifestError{Source: filename, Err: err}
	}

	if doc.Package == nil || doc.Package.Name == "" {
		return nil, &MalformedManifestError{Source: filename, Field: "package.name", Reason: "missing"}
	}
	battery := doc.Package.Metadata.Battery
	if battery == nil {
		return nil, &MalformedManifestError{Source: filename, Field: "package.metadata.battery", Reason: "missing; not a battery pack"}
	}

	var extends []ExtendsReference
	seen := make(map[PackName]bool)
	addParent := func(name PackName) {
		if !seen[name] {
			seen[name] = true
			extends = append(extends, ExtendsReference{Pack: name})
		}
	}
	for _, e := range battery.Extends {
		addParent(PackName(e))
	}

	var crates []CrateReference
	for _, key := range slices.Sorted(maps.Keys(doc.Dependencies)) {
		ref, err := parseDependency(key, doc.Dependencies[key])
		if err != nil {
			return nil, &MalformedManifestError{Source: filename, Field: "dependencies." + key, Err: err}
		}
		switch {
		case PackName(ref.Name) == ReservedRootName:
			continue
		case ref.Name.IsPack():
			addParent(PackName(ref.Name))
		default:
			ref.Override = slices.Contains(battery.Overrides, ref.ExposedName())
			crates = append(crates, ref)
		}
	}

	exclude := make([]CrateName, 0, len(battery.Exclude))
	for _, x := range battery.Exclude {
		exclude = append(exclude, CrateName(x))
	}

	layout, err := DecodeLayout(battery.Root, battery.Modules)
	if err != nil {
		return nil, &MalformedManifestError{Source: filename, Field: "package.metadata.battery", Err: err}
	}

	m := NewPackManifest(PackName(doc.Package.Name), crates, extends,
		WithDescription(stringField(doc.Package.Description)),
		WithVersion(stringField(doc.Package.Version)),
		WithExclude(exclude...),
		WithTemplates(convertTemplates(battery.Templates)),
		WithLayout(layout),
	)
	if err := m.Validate(filename); err != nil {
		return nil, err
	}
	return m, nil
}

// parseDependency handles both `name = "1.0"` and the table form.
// Workspace-inherited versions are left empty.
func parseDependency(key string, value any) (CrateReference, error) {
	switch v := value.(type) {
	case string:
		return CrateReference{Name: CrateName(key), Version: VersionConstraint(v)}, nil
	case map[string]any:
		ref := CrateReference{Name: CrateName(key)}
		if pkg, ok := v["package"].(string); ok && pkg != key {
			ref.Name = CrateName(pkg)
			ref.Alias = CrateAlias(Ident(key))
		}
		if version, ok := v["version"].(string); ok {
			ref.Version = VersionConstraint(version)
		}
		return ref, nil
	default:
		return CrateReference{}, fmt.Errorf("unsupported dependency value of type %T", value)
	}
}

// stringField accepts plain strings and ignores workspace-inherited tables.
func stringField(v any) string {
	s, _ := v.(string)
	return s
}

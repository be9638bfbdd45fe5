// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrMalformedManifest is the sentinel wrapped by MalformedManifestError.
var ErrMalformedManifest = errors.New("malformed manifest")

type (
	// CrateReference is one curated crate a pack re-exports.
	CrateReference struct {
		// Name is the registry name of the crate.
		Name CrateName `json:"name"`
		// Version is the requirement handed to the project generator.
		Version VersionConstraint `json:"version,omitempty"`
		// Alias, when set, replaces the registry name as the exposed name.
		Alias CrateAlias `json:"alias,omitempty"`
		// Override marks a root entry that deliberately replaces an inherited
		// entry with the same exposed name.
		Override bool `json:"override,omitempty"`
	}

	// ExtendsReference names a parent pack.
	ExtendsReference struct {
		Pack PackName `json:"pack"`
	}

	// PackManifest is the parsed, immutable description of one pack.
	// Accessors return copies.
	PackManifest struct {
		name        PackName
		description string
		version     string
		crates      []CrateReference
		extends     []ExtendsReference
		exclude     []CrateName
		templates   map[string]TemplateConfig
		layout      Layout
	}

	// ManifestOption configures optional PackManifest fields.
	ManifestOption func(*PackManifest)

	// MalformedManifestError reports a manifest that could not be turned into
	// a PackManifest. Field is a dotted path such as "crates[2].alias".
	MalformedManifestError struct {
		Source string
		Field  string
		Reason string
		Err    error
	}
)

// Error implements the error interface.
func (e *MalformedManifestError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed manifest")
	if e.Source != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Source)
	}
	if e.Field != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Field)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both ErrMalformedManifest and the underlying cause.
func (e *MalformedManifestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedManifest}
	}
	return []error{ErrMalformedManifest, e.Err}
}

// ExposedName returns the alias if present, else the registry name.
func (c CrateReference) ExposedName() string {
	if c.Alias != "" {
		return string(c.Alias)
	}
	return string(c.Name)
}

// SameDeclaration reports whether two references declare the same crate,
// version and alias.
func (c CrateReference) SameDeclaration(other CrateReference) bool {
	return c.Name == other.Name && c.Version == other.Version && c.Alias == other.Alias
}

// WithDescription sets the human-readable description.
func WithDescription(description string) ManifestOption {
	return func(m *PackManifest) { m.description = description }
}

// WithVersion records the pack's own published version.
func WithVersion(version string) ManifestOption {
	return func(m *PackManifest) { m.version = version }
}

// WithExclude lists inherited crates the pack removes from its namespace.
func WithExclude(names ...CrateName) ManifestOption {
	return func(m *PackManifest) { m.exclude = append(m.exclude, names...) }
}

// WithTemplates attaches the pack's starter templates.
func WithTemplates(templates map[string]TemplateConfig) ManifestOption {
	return func(m *PackManifest) {
		if m.templates == nil {
			m.templates = make(map[string]TemplateConfig, len(templates))
		}
		maps.Copy(m.templates, templates)
	}
}

// WithLayout sets the facade layout.
func WithLayout(layout Layout) ManifestOption {
	return func(m *PackManifest) { m.layout = layout.clone() }
}

// NewPackManifest builds a manifest from already-decoded parts. The slices are
// copied. It performs no validation; call Validate for that.
func NewPackManifest(name PackName, crates []CrateReference, extends []ExtendsReference, opts ...ManifestOption) *PackManifest {
	m := &PackManifest{
		name:    name,
		crates:  slices.Clone(crates),
		extends: slices.Clone(extends),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the pack's registry name.
func (m *PackManifest) Name() PackName { return m.name }

// Description returns the human-readable description.
func (m *PackManifest) Description() string { return m.description }

// Version returns the pack's own version, empty when unknown.
func (m *PackManifest) Version() string { return m.version }

// Crates returns the declared crates in declaration order.
func (m *PackManifest) Crates() []CrateReference { return slices.Clone(m.crates) }

// Extends returns the parent packs in declaration order.
func (m *PackManifest) Extends() []ExtendsReference { return slices.Clone(m.extends) }

// Exclude returns the inherited crates the pack drops.
func (m *PackManifest) Exclude() []CrateName { return slices.Clone(m.exclude) }

// Excludes reports whether name is in the exclude list.
func (m *PackManifest) Excludes(name CrateName) bool { return slices.Contains(m.exclude, name) }

// Templates returns a copy of the template table.
func (m *PackManifest) Templates() map[string]TemplateConfig { return maps.Clone(m.templates) }

// Layout returns a copy of the facade layout.
func (m *PackManifest) Layout() Layout { return m.layout.clone() }

// TemplateNames returns the template names in sorted order.
func (m *PackManifest) TemplateNames() []string {
	return slices.Sorted(maps.Keys(m.templates))
}

// Validate checks the naming rules and the structural invariants of the
// manifest. An invalid pack name is reported as InvalidNameError, anything
// else as MalformedManifestError. source labels the errors.
func (m *PackManifest) Validate(source string) error {
	if ok, errs := m.name.IsValid(); !ok {
		return errs[0]
	}

	var errs []error
	malformed := func(field, reason string, err error) {
		errs = append(errs, &MalformedManifestError{Source: source, Field: field, Reason: reason, Err: err})
	}

	exposed := make(map[string]int, len(m.crates))
	for i, c := range m.crates {
		field := fmt.Sprintf("crates[%d]", i)
		if ok, ee := c.Name.IsValid(); !ok {
			malformed(field+".name", "", ee[0])
			continue
		}
		if ok, ee := c.Alias.IsValid(); !ok {
			malformed(field+".alias", "", ee[0])
			continue
		}
		if ok, ee := c.Version.IsValid(); !ok {
			malformed(field+".version", "", ee[0])
			continue
		}
		if PackName(c.Name) == ReservedRootName {
			malformed(field+".name", "the root facade crate cannot be curated", nil)
			continue
		}
		if prev, dup := exposed[c.ExposedName()]; dup {
			malformed(field, fmt.Sprintf("exposed name %q already declared by crates[%d]", c.ExposedName(), prev), nil)
			continue
		}
		exposed[c.ExposedName()] = i
	}

	seen := make(map[PackName]struct{}, len(m.extends))
	for i, e := range m.extends {
		field := fmt.Sprintf("extends[%d]", i)
		if ok, ee := e.Pack.IsValid(); !ok {
			malformed(field, "", ee[0])
			continue
		}
		if _, dup := seen[e.Pack]; dup {
			malformed(field, fmt.Sprintf("%q listed twice", e.Pack), nil)
			continue
		}
		seen[e.Pack] = struct{}{}
	}

	for i, x := range m.exclude {
		if ok, ee := x.IsValid(); !ok {
			malformed(fmt.Sprintf("exclude[%d]", i), "", ee[0])
		}
	}

	m.layout.validate(malformed)

	for _, name := range m.TemplateNames() {
		if strings.TrimSpace(m.templates[name].Path) == "" {
			malformed(fmt.Sprintf("templates.%s.path", name), "must not be empty", nil)
		}
	}

	return errors.Join(errs...)
}

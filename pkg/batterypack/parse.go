// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	_ "embed"
	"fmt"

	"github.com/battery-pack-rs/battery-pack/pkg/cueutil"
)

// MaxManifestSize caps a pack manifest. Manifests list a few dozen crates;
// anything near the limit is not one.
const MaxManifestSize int64 = 256 * 1024

var (
	//go:embed batterypack_schema.cue
	batteryPackSchema string

	manifestSchema = cueutil.MustCompileSchema(batteryPackSchema, "#BatteryPack")
)

type (
	manifestDoc struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Version     string                 `json:"version"`
		Crates      []crateDoc             `json:"crates"`
		Extends     []string               `json:"extends"`
		Exclude     []string               `json:"exclude"`
		Templates   map[string]templateDoc `json:"templates"`
		Root        any                    `json:"root"`
		Modules     map[string]any         `json:"modules"`
	}

	crateDoc struct {
		Name     string `json:"name"`
		Version  string `json:"version"`
		Alias    string `json:"alias"`
		Override bool   `json:"override"`
	}

	templateDoc struct {
		Path        string `json:"path" toml:"path"`
		Description string `json:"description" toml:"description"`
	}
)

// Parse decodes a CUE manifest, checks it against #BatteryPack and validates
// it. Schema violations yield MalformedManifestError; a bad pack name yields
// InvalidNameError.
func Parse(data []byte, filename string) (*PackManifest, error) {
	res, err := cueutil.Decode[manifestDoc](manifestSchema, data,
		cueutil.WithFilename(filename),
		cueutil.WithMaxFileSize(MaxManifestSize),
	)
	if err != nil {
		return nil, &MalformedManifestError{Source: filename, Err: err}
	}

	layout, err := DecodeLayout(res.Value.Root, res.Value.Modules)
	if err != nil {
		return nil, &MalformedManifestError{Source: filename, Err: err}
	}

	m := res.Value.toManifest(WithLayout(layout))
	if err := m.Validate(filename); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *manifestDoc) toManifest(opts ...ManifestOption) *PackManifest {
	crates := make([]CrateReference, 0, len(d.Crates))
	for _, c := range d.Crates {
		crates = append(crates, CrateReference{
			Name:     CrateName(c.Name),
			Version:  VersionConstraint(c.Version),
			Alias:    CrateAlias(c.Alias),
			Override: c.Override,
		})
	}

	extends := make([]ExtendsReference, 0, len(d.Extends))
	for _, e := range d.Extends {
		extends = append(extends, ExtendsReference{Pack: PackName(e)})
	}

	exclude := make([]CrateName, 0, len(d.Exclude))
	for _, x := range d.Exclude {
		exclude = append(exclude, CrateName(x))
	}

	opts = append([]ManifestOption{
		WithDescription(d.Description),
		WithVersion(d.Version),
		WithExclude(exclude...),
		WithTemplates(convertTemplates(d.Templates)),
	}, opts...)
	return NewPackManifest(PackName(d.Name), crates, extends, opts...)
}

func convertTemplates(docs map[string]templateDoc) map[string]TemplateConfig {
	templates := make(map[string]TemplateConfig, len(docs))
	for name, doc := range docs {
		templates[name] = TemplateConfig(doc)
	}
	return templates
}

// String summarises the manifest for debug logging.
func (m *PackManifest) String() string {
	return fmt.Sprintf("%s (%d crates, extends %d, %d templates)", m.name, len(m.crates), len(m.extends), len(m.templates))
}

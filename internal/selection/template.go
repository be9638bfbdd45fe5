// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

const (
	projectNamePlaceholder = "{{project-name}}"
	crateNamePlaceholder   = "{{crate_name}}"

	// generatorConfigFile configures the scaffolding tool and is not part of
	// the generated project.
	generatorConfigFile = "cargo-generate.toml"
)

// ErrDestinationNotEmpty is returned by CopyTo for a populated destination.
var ErrDestinationNotEmpty = errors.New("destination is not empty")

// TemplateSelection is a template ready to be materialised.
type TemplateSelection struct {
	Descriptor batterypack.TemplateDescriptor
	Config     batterypack.TemplateConfig
	// Dir is the template directory on disk.
	Dir string

	cleanup string
}

func newSelection(root, name string, cfg batterypack.TemplateConfig) (*TemplateSelection, error) {
	rel := filepath.Clean(filepath.FromSlash(cfg.Path))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s = %q", ErrTemplateOutsidePack, name, cfg.Path)
	}

	dir := filepath.Join(root, rel)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template %s: %s is not a directory", name, cfg.Path)
	}
	return &TemplateSelection{Config: cfg, Dir: dir}, nil
}

// Close removes the unpacked archive, if the selection owns one.
func (s *TemplateSelection) Close() error {
	if s.cleanup == "" {
		return nil
	}
	err := os.RemoveAll(s.cleanup)
	s.cleanup = ""
	return err
}

// CopyTo materialises the template into dest, which must be missing or
// empty. When projectName is set, {{project-name}} and {{crate_name}} are
// substituted in text files. Symlinks are skipped.
func (s *TemplateSelection) CopyTo(dest, projectName string) error {
	if entries, err := os.ReadDir(dest); err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrDestinationNotEmpty, dest)
	}

	var replacer *strings.Replacer
	if projectName != "" {
		replacer = strings.NewReplacer(
			projectNamePlaceholder, projectName,
			crateNamePlaceholder, batterypack.Ident(projectName),
		)
	}

	return filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Dir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			return nil
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case rel == generatorConfigFile:
			return nil
		case !d.Type().IsRegular():
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if replacer != nil && !bytes.ContainsRune(data, 0) {
			data = []byte(replacer.Replace(string(data)))
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}

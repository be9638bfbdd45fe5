// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/templates"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
)

const (
	// CargoManifestFile is the manifest every published pack carries.
	CargoManifestFile = "Cargo.toml"

	// CUEManifestFile is the manifest of a pack directory authored in CUE.
	CUEManifestFile = "battery-pack.cue"
)

type (
	// DirLookup resolves packs from a local directory holding <name>.cue
	// files or <name>/ crate directories. Short names work as file names too.
	DirLookup struct {
		dir string
	}

	// CacheLookup resolves packs from the Cargo.toml of their highest
	// published archive, fetched through the template cache.
	CacheLookup struct {
		cache *templates.Cache
	}

	// Chain tries each Lookup in order. It moves on only when a lookup
	// reports ErrPackNotFound; any other failure stops the chain.
	Chain []composition.Lookup
)

// LoadManifest reads a pack manifest from path. Files ending in .cue are CUE
// manifests and anything else is read as a Cargo.toml. A directory is read
// through its battery-pack.cue or Cargo.toml.
func LoadManifest(path string) (*batterypack.PackManifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loadManifestDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseManifest(data, path)
}

func loadManifestDir(dir string) (*batterypack.PackManifest, error) {
	for _, name := range []string{CUEManifestFile, CargoManifestFile} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadManifest(p)
		}
	}
	return nil, fmt.Errorf("no %s or %s in %s: %w", CUEManifestFile, CargoManifestFile, dir, fs.ErrNotExist)
}

func parseManifest(data []byte, filename string) (*batterypack.PackManifest, error) {
	if strings.EqualFold(filepath.Ext(filename), ".cue") {
		return batterypack.Parse(data, filename)
	}
	return batterypack.ParseCargoManifest(data, filename)
}

// NewDirLookup returns a Lookup over dir.
func NewDirLookup(dir string) *DirLookup {
	return &DirLookup{dir: dir}
}

// Resolve implements composition.Lookup.
func (l *DirLookup) Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stems := []string{string(name)}
	if short := name.Short(); short != string(name) {
		stems = append(stems, short)
	}

	for _, stem := range stems {
		if strings.ContainsAny(stem, `/\`) || stem == "" || stem == "." || stem == ".." {
			continue
		}
		if p := filepath.Join(l.dir, stem+".cue"); isFile(p) {
			return LoadManifest(p)
		}
		if p := filepath.Join(l.dir, stem); isDir(p) {
			m, err := loadManifestDir(p)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return m, err
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", composition.ErrPackNotFound, name, l.dir)
}

// NewCacheLookup returns a Lookup over cache.
func NewCacheLookup(cache *templates.Cache) *CacheLookup {
	return &CacheLookup{cache: cache}
}

// Resolve implements composition.Lookup.
func (l *CacheLookup) Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error) {
	entry, err := l.cache.Resolve(ctx, string(name), "")
	if errors.Is(err, templates.ErrNotPublished) || errors.Is(err, templates.ErrNoVersions) {
		return nil, fmt.Errorf("%w: %s: %w", composition.ErrPackNotFound, name, err)
	}
	if err != nil {
		return nil, err
	}
	return manifestFromEntry(entry)
}

// Resolve implements composition.Lookup.
func (c Chain) Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error) {
	var notFound []error
	for _, lookup := range c {
		m, err := lookup.Resolve(ctx, name)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, composition.ErrPackNotFound) {
			return nil, err
		}
		notFound = append(notFound, err)
	}
	if len(notFound) == 0 {
		return nil, fmt.Errorf("%w: %s", composition.ErrPackNotFound, name)
	}
	return nil, errors.Join(notFound...)
}

func manifestFromEntry(entry *templates.CacheEntry) (*batterypack.PackManifest, error) {
	data, err := templates.ReadFile(entry, CargoManifestFile)
	if err != nil {
		return nil, fmt.Errorf("reading manifest of %s@%s: %w", entry.Name, entry.Version, err)
	}
	return batterypack.ParseCargoManifest(data, entry.Name+"@"+entry.Version+"/"+CargoManifestFile)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

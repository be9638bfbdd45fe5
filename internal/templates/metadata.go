// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	archiveExt = ".crate"
	sidecarExt = ".toml"
)

type (
	// CacheEntry is one verified archive on disk.
	CacheEntry struct {
		Name      string    `json:"name" toml:"name"`
		Version   string    `json:"version" toml:"version"`
		Path      string    `json:"path" toml:"-"`
		Checksum  string    `json:"checksum" toml:"checksum"`
		Source    string    `json:"source" toml:"source"`
		Size      int64     `json:"size" toml:"size"`
		FetchedAt time.Time `json:"fetched_at" toml:"fetched_at"`
	}
)

func (c *Cache) archivePath(name, version string) string {
	return filepath.Join(c.dir, name, version+archiveExt)
}

func (c *Cache) sidecarPath(name, version string) string {
	return filepath.Join(c.dir, name, version+sidecarExt)
}

// readSidecar loads the metadata of name@version and points Path at the archive.
func (c *Cache) readSidecar(name, version string) (*CacheEntry, error) {
	data, err := os.ReadFile(c.sidecarPath(name, version))
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := toml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding sidecar for %s@%s: %w", name, version, err)
	}
	if entry.Name != name || entry.Version != version || entry.Checksum == "" {
		return nil, fmt.Errorf("sidecar for %s@%s does not describe this entry", name, version)
	}
	entry.Path = c.archivePath(name, version)
	return &entry, nil
}

// writeSidecar persists entry atomically next to its archive.
func (c *Cache) writeSidecar(entry *CacheEntry) (err error) {
	data, err := toml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}

	dir := filepath.Join(c.dir, entry.Name)
	tmp, err := os.CreateTemp(dir, ".sidecar-*")
	if err != nil {
		return fmt.Errorf("creating sidecar: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing sidecar: %w", err)
	}
	if err = os.Rename(tmp.Name(), c.sidecarPath(entry.Name, entry.Version)); err != nil {
		return fmt.Errorf("committing sidecar: %w", err)
	}
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"context"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/registry"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

type (
	// Item is one pack offered for selection.
	Item struct {
		Name        batterypack.PackName `json:"name" toml:"name"`
		ShortName   string               `json:"short_name" toml:"short_name"`
		Version     string               `json:"version,omitempty" toml:"version,omitempty"`
		Description string               `json:"description,omitempty" toml:"description,omitempty"`
	}

	// Catalog enumerates known packs.
	Catalog interface {
		Search(ctx context.Context, query string) ([]Item, error)
	}

	// RegistryCatalog searches crates.io for crates tagged battery-pack.
	RegistryCatalog struct {
		client *registry.Client
	}
)

// NewRegistryCatalog returns a Catalog over client.
func NewRegistryCatalog(client *registry.Client) *RegistryCatalog {
	return &RegistryCatalog{client: client}
}

// Search implements Catalog.
func (c *RegistryCatalog) Search(ctx context.Context, query string) ([]Item, error) {
	results, err := c.client.Search(ctx, query, true)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(results))
	for _, r := range results {
		items = append(items, newItem(r.Name, r.MaxVersion, r.Description))
	}
	return items, nil
}

// Title renders the item for a chooser list.
func (i Item) Title() string {
	var b strings.Builder
	b.WriteString(i.ShortName)
	if i.Version != "" {
		b.WriteString(" ")
		b.WriteString(i.Version)
	}
	if i.Description != "" {
		b.WriteString(" - ")
		b.WriteString(i.Description)
	}
	return b.String()
}

func newItem(name, version, description string) Item {
	return Item{
		Name:        batterypack.PackName(name),
		ShortName:   batterypack.ShortName(name),
		Version:     version,
		Description: strings.TrimSpace(description),
	}
}

// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/battery-pack-rs/battery-pack/internal/templates"
)

// CratesIO serves pack archives from crates.io. Yanked versions are never
// listed, and every archive carries the checksum crates.io published for it.
type CratesIO struct {
	client *Client
}

// NewCratesIO wraps client as a templates.Distribution.
func NewCratesIO(client *Client) *CratesIO {
	return &CratesIO{client: client}
}

// ListVersions returns the non-yanked versions of name.
func (d *CratesIO) ListVersions(ctx context.Context, name string) ([]string, error) {
	crate, err := d.client.FetchCrate(ctx, name)
	if errors.Is(err, ErrCrateNotFound) {
		return nil, fmt.Errorf("%w: %w", templates.ErrNotPublished, err)
	}
	if err != nil {
		return nil, err
	}
	return crate.Available(), nil
}

// Fetch streams name@version from the CDN with the registry checksum.
func (d *CratesIO) Fetch(ctx context.Context, name, version string) (*templates.Archive, error) {
	crate, err := d.client.FetchCrate(ctx, name)
	if err != nil {
		return nil, err
	}
	v, ok := crate.Version(version)
	if !ok {
		return nil, fmt.Errorf("%s@%s: %w", name, version, templates.ErrVersionNotFound)
	}
	if v.Yanked {
		return nil, fmt.Errorf("%s@%s is yanked: %w", name, version, templates.ErrVersionNotFound)
	}
	if v.Checksum == "" {
		return nil, errors.New("registry published no checksum for " + name + "@" + version)
	}

	body, err := d.client.Download(ctx, name, version)
	if err != nil {
		return nil, err
	}
	return &templates.Archive{
		Body:     body,
		Checksum: v.Checksum,
		Source:   d.client.DownloadURL(name, version),
	}, nil
}

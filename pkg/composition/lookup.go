// SPDX-License-Identifier: MPL-2.0

package composition

import (
	"context"
	"errors"
	"fmt"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

// ErrPackNotFound is wrapped by Lookup implementations for unknown packs.
var ErrPackNotFound = errors.New("pack not found")

type (
	// Lookup resolves a pack name to its manifest. Implementations may hit
	// the network or the filesystem; Build calls Resolve at most once per
	// name.
	Lookup interface {
		Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error)
	}

	// LookupFunc adapts a plain function to Lookup.
	LookupFunc func(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error)

	// MapLookup is an in-memory Lookup keyed by pack name.
	MapLookup map[batterypack.PackName]*batterypack.PackManifest
)

// Resolve calls f.
func (f LookupFunc) Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error) {
	return f(ctx, name)
}

// Resolve returns the manifest stored under name.
func (m MapLookup) Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	manifest, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	return manifest, nil
}

// NewMapLookup indexes manifests by their own name.
func NewMapLookup(manifests ...*batterypack.PackManifest) MapLookup {
	m := make(MapLookup, len(manifests))
	for _, manifest := range manifests {
		m[manifest.Name()] = manifest
	}
	return m
}

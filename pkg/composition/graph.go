// SPDX-License-Identifier: MPL-2.0

// Package composition builds the extension graph of a battery pack: the root
// pack plus every pack it transitively extends, in a deterministic order
// where each pack follows all packs it extends.
package composition

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/dag"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

var (
	// ErrCyclicExtension is the sentinel wrapped by CyclicExtensionError.
	ErrCyclicExtension = errors.New("cyclic extension")

	// ErrUnresolvedExtension is the sentinel wrapped by UnresolvedExtensionError.
	ErrUnresolvedExtension = errors.New("unresolved extension")

	// ErrLookupMismatch is returned when a Lookup answers with a manifest
	// for a different pack than the one requested.
	ErrLookupMismatch = errors.New("lookup returned a different pack")
)

type (
	// Graph is the resolved extension graph rooted at one pack. It is
	// read-only once built.
	Graph struct {
		root      batterypack.PackName
		manifests map[batterypack.PackName]*batterypack.PackManifest
		order     []batterypack.PackName
	}

	// CyclicExtensionError reports an extension cycle as a closed path in
	// extends direction: Cycle [a b a] means a extends b and b extends a.
	CyclicExtensionError struct {
		Cycle []batterypack.PackName
	}

	// UnresolvedExtensionError reports a parent the lookup does not know.
	UnresolvedExtensionError struct {
		Pack         batterypack.PackName
		ReferencedBy batterypack.PackName
		Err          error
	}
)

// Error implements the error interface.
func (e *CyclicExtensionError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, p := range e.Cycle {
		parts[i] = string(p)
	}
	return fmt.Sprintf("cyclic extension: %s", strings.Join(parts, " -> "))
}

// Unwrap returns ErrCyclicExtension so callers can use errors.Is.
func (e *CyclicExtensionError) Unwrap() error { return ErrCyclicExtension }

// Error implements the error interface.
func (e *UnresolvedExtensionError) Error() string {
	return fmt.Sprintf("unresolved extension: %s extends %s, which could not be found", e.ReferencedBy, e.Pack)
}

// Unwrap exposes ErrUnresolvedExtension and the lookup error.
func (e *UnresolvedExtensionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvedExtension}
	}
	return []error{ErrUnresolvedExtension, e.Err}
}

// Build walks the extends edges breadth-first from root. Each distinct parent
// is resolved through lookup exactly once; the root itself is never looked
// up. Build fails with UnresolvedExtensionError for a parent the lookup
// reports as ErrPackNotFound and with CyclicExtensionError when the packs
// extend each other in a loop, self-extension included.
func Build(ctx context.Context, root *batterypack.PackManifest, lookup Lookup) (*Graph, error) {
	if root == nil {
		return nil, errors.New("composition: nil root manifest")
	}

	rootName := root.Name()
	manifests := map[batterypack.PackName]*batterypack.PackManifest{rootName: root}
	edges := dag.New[batterypack.PackName]()
	edges.AddNode(rootName)

	queue := []batterypack.PackName{rootName}
	for len(queue) > 0 {
		child := queue[0]
		queue = queue[1:]

		for _, ext := range manifests[child].Extends() {
			parent := ext.Pack
			edges.AddEdge(parent, child)
			if _, seen := manifests[parent]; seen {
				continue
			}

			if err := ctx.Err(); err != nil {
				return nil, err
			}
			manifest, err := lookup.Resolve(ctx, parent)
			switch {
			case errors.Is(err, ErrPackNotFound):
				return nil, &UnresolvedExtensionError{Pack: parent, ReferencedBy: child, Err: err}
			case err != nil:
				return nil, fmt.Errorf("resolving %s (extended by %s): %w", parent, child, err)
			case manifest == nil:
				return nil, &UnresolvedExtensionError{Pack: parent, ReferencedBy: child}
			case manifest.Name() != parent:
				return nil, fmt.Errorf("%w: asked for %s, got %s", ErrLookupMismatch, parent, manifest.Name())
			}

			manifests[parent] = manifest
			queue = append(queue, parent)
		}
	}

	order, err := edges.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError[batterypack.PackName]
		if errors.As(err, &cycleErr) {
			// Edges point from parent to child; report in extends direction.
			cycle := slices.Clone(cycleErr.Cycle)
			slices.Reverse(cycle)
			return nil, &CyclicExtensionError{Cycle: cycle}
		}
		return nil, err
	}

	return &Graph{root: rootName, manifests: manifests, order: order}, nil
}

// Root returns the name of the root pack.
func (g *Graph) Root() batterypack.PackName { return g.root }

// Len returns the number of packs in the graph, root included.
func (g *Graph) Len() int { return len(g.order) }

// Order returns every pack after all packs it extends. Independent parents
// keep their declaration order and the root is last.
func (g *Graph) Order() []batterypack.PackName { return slices.Clone(g.order) }

// Manifest returns the manifest of a pack in the graph.
func (g *Graph) Manifest(name batterypack.PackName) (*batterypack.PackManifest, bool) {
	m, ok := g.manifests[name]
	return m, ok
}

// Parents returns the packs name directly extends, in declaration order.
func (g *Graph) Parents(name batterypack.PackName) []batterypack.PackName {
	m, ok := g.manifests[name]
	if !ok {
		return nil
	}
	extends := m.Extends()
	parents := make([]batterypack.PackName, len(extends))
	for i, e := range extends {
		parents[i] = e.Pack
	}
	return parents
}

// Ancestors returns every pack the root transitively extends, in Order.
func (g *Graph) Ancestors() []batterypack.PackName {
	return slices.Clone(g.order[:len(g.order)-1])
}

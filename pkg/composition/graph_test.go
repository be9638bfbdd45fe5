// SPDX-License-Identifier: MPL-2.0

package composition

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

type countingLookup struct {
	mu    sync.Mutex
	inner Lookup
	calls map[batterypack.PackName]int
}

func newCountingLookup(inner Lookup) *countingLookup {
	return &countingLookup{inner: inner, calls: make(map[batterypack.PackName]int)}
}

func (c *countingLookup) Resolve(ctx context.Context, name batterypack.PackName) (*batterypack.PackManifest, error) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
	return c.inner.Resolve(ctx, name)
}

func pack(name string, extends ...string) *batterypack.PackManifest {
	refs := make([]batterypack.ExtendsReference, len(extends))
	for i, e := range extends {
		refs[i] = batterypack.ExtendsReference{Pack: batterypack.PackName(e)}
	}
	return batterypack.NewPackManifest(batterypack.PackName(name), nil, refs)
}

func names(ss ...string) []batterypack.PackName {
	out := make([]batterypack.PackName, len(ss))
	for i, s := range ss {
		out[i] = batterypack.PackName(s)
	}
	return out
}

func TestBuild_OrderAndAccessors(t *testing.T) {
	t.Parallel()

	root := pack("cli-battery-pack", "error-battery-pack", "logging-battery-pack")
	lookup := newCountingLookup(NewMapLookup(
		pack("error-battery-pack"),
		pack("logging-battery-pack"),
	))

	g, err := Build(t.Context(), root, lookup)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := names("error-battery-pack", "logging-battery-pack", "cli-battery-pack")
	if got := g.Order(); !slices.Equal(got, want) {
		t.Errorf("Order() = %v, want %v", got, want)
	}
	if g.Root() != "cli-battery-pack" || g.Len() != 3 {
		t.Errorf("Root()/Len() = %s/%d", g.Root(), g.Len())
	}
	if got := g.Parents("cli-battery-pack"); !slices.Equal(got, names("error-battery-pack", "logging-battery-pack")) {
		t.Errorf("Parents() = %v", got)
	}
	if _, ok := g.Manifest("error-battery-pack"); !ok {
		t.Error("Manifest(error-battery-pack) missing")
	}
	if lookup.calls["cli-battery-pack"] != 0 {
		t.Error("the root must never be looked up")
	}
	if got := g.Ancestors(); !slices.Equal(got, want[:2]) {
		t.Errorf("Ancestors() = %v", got)
	}
}

func TestBuild_DiamondResolvesEachPackOnce(t *testing.T) {
	t.Parallel()

	root := pack("app-battery-pack", "left-battery-pack", "right-battery-pack")
	lookup := newCountingLookup(NewMapLookup(
		pack("left-battery-pack", "base-battery-pack"),
		pack("right-battery-pack", "base-battery-pack"),
		pack("base-battery-pack"),
	))

	g, err := Build(t.Context(), root, lookup)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for name, n := range lookup.calls {
		if n != 1 {
			t.Errorf("lookup.Resolve(%s) called %d times, want 1", name, n)
		}
	}

	order := g.Order()
	pos := func(n string) int { return slices.Index(order, batterypack.PackName(n)) }
	if pos("base-battery-pack") > pos("left-battery-pack") || pos("base-battery-pack") > pos("right-battery-pack") {
		t.Errorf("base must precede its extenders: %v", order)
	}
	if order[len(order)-1] != "app-battery-pack" {
		t.Errorf("root must be last: %v", order)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	root := pack("app-battery-pack", "c-battery-pack", "a-battery-pack", "b-battery-pack")
	lookup := NewMapLookup(pack("a-battery-pack"), pack("b-battery-pack"), pack("c-battery-pack"))

	first, err := Build(t.Context(), root, lookup)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for range 10 {
		again, err := Build(t.Context(), root, lookup)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !slices.Equal(first.Order(), again.Order()) {
			t.Fatalf("order changed between runs: %v vs %v", first.Order(), again.Order())
		}
	}
	want := names("c-battery-pack", "a-battery-pack", "b-battery-pack", "app-battery-pack")
	if !slices.Equal(first.Order(), want) {
		t.Errorf("Order() = %v, want declaration order %v", first.Order(), want)
	}
}

func TestBuild_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		root   *batterypack.PackManifest
		others []*batterypack.PackManifest
		want   []batterypack.PackName
	}{
		{
			name: "self extension",
			root: pack("a-battery-pack", "a-battery-pack"),
			want: names("a-battery-pack", "a-battery-pack"),
		},
		{
			name:   "two packs",
			root:   pack("a-battery-pack", "b-battery-pack"),
			others: []*batterypack.PackManifest{pack("b-battery-pack", "a-battery-pack")},
			want:   names("a-battery-pack", "b-battery-pack", "a-battery-pack"),
		},
		{
			name: "three packs",
			root: pack("a-battery-pack", "b-battery-pack"),
			others: []*batterypack.PackManifest{
				pack("b-battery-pack", "c-battery-pack"),
				pack("c-battery-pack", "a-battery-pack"),
			},
			want: names("a-battery-pack", "b-battery-pack", "c-battery-pack", "a-battery-pack"),
		},
		{
			name: "cycle among ancestors",
			root: pack("a-battery-pack", "b-battery-pack"),
			others: []*batterypack.PackManifest{
				pack("b-battery-pack", "c-battery-pack"),
				pack("c-battery-pack", "b-battery-pack"),
			},
			want: names("b-battery-pack", "c-battery-pack", "b-battery-pack"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build(t.Context(), tt.root, NewMapLookup(tt.others...))
			if !errors.Is(err, ErrCyclicExtension) {
				t.Fatalf("Build() error = %v, want ErrCyclicExtension", err)
			}
			var cycleErr *CyclicExtensionError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CyclicExtensionError, got %T", err)
			}
			if !slices.Equal(cycleErr.Cycle, tt.want) {
				t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, tt.want)
			}
		})
	}
}

func TestBuild_UnresolvedExtension(t *testing.T) {
	t.Parallel()

	root := pack("cli-battery-pack", "error-battery-pack")
	lookup := NewMapLookup(pack("error-battery-pack", "ghost-battery-pack"))

	_, err := Build(t.Context(), root, lookup)
	var unresolved *UnresolvedExtensionError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected *UnresolvedExtensionError, got %T: %v", err, err)
	}
	if unresolved.Pack != "ghost-battery-pack" || unresolved.ReferencedBy != "error-battery-pack" {
		t.Errorf("got %+v", unresolved)
	}
	if !errors.Is(err, ErrUnresolvedExtension) || !errors.Is(err, ErrPackNotFound) {
		t.Errorf("error should wrap both sentinels: %v", err)
	}
}

func TestBuild_LookupErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("registry unavailable")
	root := pack("cli-battery-pack", "error-battery-pack")

	_, err := Build(t.Context(), root, LookupFunc(func(context.Context, batterypack.PackName) (*batterypack.PackManifest, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("Build() error = %v, want wrapped lookup error", err)
	}
	if errors.Is(err, ErrUnresolvedExtension) {
		t.Error("transport failures must not be reported as unresolved extensions")
	}

	_, err = Build(t.Context(), root, LookupFunc(func(context.Context, batterypack.PackName) (*batterypack.PackManifest, error) {
		return pack("other-battery-pack"), nil
	}))
	if !errors.Is(err, ErrLookupMismatch) {
		t.Errorf("Build() error = %v, want ErrLookupMismatch", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = Build(ctx, root, NewMapLookup(pack("error-battery-pack")))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuild_RootOnly(t *testing.T) {
	t.Parallel()

	g, err := Build(t.Context(), pack("solo-battery-pack"), NewMapLookup())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !slices.Equal(g.Order(), names("solo-battery-pack")) || len(g.Ancestors()) != 0 {
		t.Errorf("Order() = %v", g.Order())
	}
}

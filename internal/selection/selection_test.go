// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/battery-pack-rs/battery-pack/internal/templates"
	"github.com/battery-pack-rs/battery-pack/internal/testutil"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
)

const cliCargoToml = `[package]
name = "cli-battery-pack"
version = "0.3.1"
description = "Everything a command-line tool needs"

[package.metadata.battery.templates.simple]
path = "templates/simple"
description = "Minimal CLI"

[package.metadata.battery.templates.subcmds]
path = "templates/subcmds"

[dependencies]
error-battery-pack = "0.2"
clap = "4"
`

const errorCargoToml = `[package]
name = "error-battery-pack"
version = "0.2.0"

[package.metadata.battery]

[dependencies]
anyhow = "1"
`

type (
	// memDist publishes in-memory tar.gz archives keyed by name then version.
	memDist map[string]map[string][]byte

	staticCatalog []Item

	scriptedChooser struct {
		pick    int
		err     error
		titles  []string
		options [][]string
	}
)

func (d memDist) ListVersions(_ context.Context, name string) ([]string, error) {
	versions, ok := d[name]
	if !ok {
		return nil, templates.ErrNotPublished
	}
	out := make([]string, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	return out, nil
}

func (d memDist) Fetch(_ context.Context, name, version string) (*templates.Archive, error) {
	data, ok := d[name][version]
	if !ok {
		return nil, templates.ErrVersionNotFound
	}
	return &templates.Archive{Body: io.NopCloser(bytes.NewReader(data)), Source: "mem://" + name}, nil
}

func (c staticCatalog) Search(_ context.Context, query string) ([]Item, error) {
	var out []Item
	for _, item := range c {
		if strings.Contains(string(item.Name), query) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *scriptedChooser) Choose(_ context.Context, title string, options []string) (int, error) {
	c.titles = append(c.titles, title)
	c.options = append(c.options, options)
	return c.pick, c.err
}

func publishedPacks(t *testing.T) memDist {
	t.Helper()
	return memDist{
		"cli-battery-pack": {
			"0.3.1": testutil.CrateArchive(t, "cli-battery-pack-0.3.1", map[string]string{
				"Cargo.toml":                           cliCargoToml,
				"templates/simple/Cargo.toml":          "[package]\nname = \"{{project-name}}\"\n",
				"templates/simple/src/main.rs":         "// {{project-name}}: A CLI application\nuse {{crate_name}}::run;\n",
				"templates/simple/cargo-generate.toml": "[template]\n",
				"templates/subcmds/src/main.rs":        "fn main() {}\n",
			}),
		},
		"error-battery-pack": {
			"0.2.0": testutil.CrateArchive(t, "error-battery-pack-0.2.0", map[string]string{"Cargo.toml": errorCargoToml}),
		},
	}
}

func newCache(t *testing.T, dist templates.Distribution) *templates.Cache {
	t.Helper()
	cache, err := templates.New(dist, templates.WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("templates.New() error = %v", err)
	}
	return cache
}

func packManifest(name string, crates []batterypack.CrateReference, extends ...string) *batterypack.PackManifest {
	refs := make([]batterypack.ExtendsReference, len(extends))
	for i, e := range extends {
		refs[i] = batterypack.ExtendsReference{Pack: batterypack.PackName(e)}
	}
	return batterypack.NewPackManifest(batterypack.PackName(name), crates, refs)
}

func TestResolvePack(t *testing.T) {
	t.Parallel()

	lookup := composition.NewMapLookup(
		packManifest("cli-battery-pack", []batterypack.CrateReference{{Name: "clap", Version: "4"}}, "error-battery-pack"),
		packManifest("error-battery-pack", []batterypack.CrateReference{{Name: "anyhow", Version: "1"}}),
	)
	f := New(nil, nil, lookup)

	for _, name := range []string{"cli", "cli-battery-pack", "  cli  "} {
		res, err := f.ResolvePack(t.Context(), name)
		if err != nil {
			t.Fatalf("ResolvePack(%q) error = %v", name, err)
		}
		if got := res.Graph.Order(); !slices.Equal(got, []batterypack.PackName{"cli-battery-pack", "error-battery-pack"}) {
			t.Errorf("Order() = %v", got)
		}
		if got := res.Namespace.Names(); !slices.Equal(got, []string{"anyhow", "clap"}) {
			t.Errorf("Names() = %v", got)
		}
	}

	if _, err := f.ResolvePack(t.Context(), "ghost"); !errors.Is(err, composition.ErrPackNotFound) {
		t.Errorf("ResolvePack(ghost) error = %v, want ErrPackNotFound", err)
	}
}

func TestResolveManifest_PropagatesEngineErrors(t *testing.T) {
	t.Parallel()

	f := New(nil, nil, composition.NewMapLookup(
		packManifest("a-battery-pack", nil, "b-battery-pack"),
		packManifest("b-battery-pack", nil, "a-battery-pack"),
	))

	_, err := f.ResolveManifest(t.Context(), packManifest("a-battery-pack", nil, "b-battery-pack"))
	if !errors.Is(err, composition.ErrCyclicExtension) {
		t.Errorf("ResolveManifest() error = %v, want ErrCyclicExtension", err)
	}
}

func TestEnumerate(t *testing.T) {
	t.Parallel()

	catalog := staticCatalog{
		newItem("cli-battery-pack", "0.3.1", "CLI essentials"),
		newItem("clap", "4.5.0", "not a pack"),
		newItem("cli-battery-pack", "0.3.1", "duplicate hit"),
		newItem("cli-extras-battery-pack", "0.1.0", ""),
	}
	f := New(catalog, nil, composition.NewMapLookup())

	items, err := f.Enumerate(t.Context(), "cl")
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	var names []string
	for _, item := range items {
		names = append(names, string(item.Name))
	}
	if want := []string{"cli-battery-pack", "cli-extras-battery-pack"}; !slices.Equal(names, want) {
		t.Errorf("Enumerate() = %v, want %v", names, want)
	}
	if items[0].ShortName != "cli" || items[0].Title() != "cli 0.3.1 - CLI essentials" {
		t.Errorf("item = %+v, title %q", items[0], items[0].Title())
	}

	if _, err := New(nil, nil, nil).Enumerate(t.Context(), ""); !errors.Is(err, ErrNoCatalog) {
		t.Errorf("Enumerate() without catalog error = %v, want ErrNoCatalog", err)
	}
}

func TestPick(t *testing.T) {
	t.Parallel()

	catalog := staticCatalog{
		newItem("cli-battery-pack", "0.3.1", ""),
		newItem("error-battery-pack", "0.2.0", ""),
	}
	lookup := composition.NewMapLookup(
		packManifest("cli-battery-pack", []batterypack.CrateReference{{Name: "clap"}}),
		packManifest("error-battery-pack", []batterypack.CrateReference{{Name: "anyhow"}}),
	)
	chooser := &scriptedChooser{pick: 1}
	f := New(catalog, nil, lookup, WithChooser(chooser))

	item, res, err := f.Pick(t.Context(), "")
	if err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if item.Name != "error-battery-pack" || res.Namespace.Root() != "error-battery-pack" {
		t.Errorf("Pick() = %+v, root %s", item, res.Namespace.Root())
	}
	if want := []string{"cli 0.3.1", "error 0.2.0"}; !slices.Equal(chooser.options[0], want) {
		t.Errorf("chooser options = %v, want %v", chooser.options[0], want)
	}

	if _, _, err := f.Pick(t.Context(), "nothing-matches"); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Pick(no match) error = %v, want ErrNoCandidates", err)
	}
	if _, _, err := New(catalog, nil, lookup).Pick(t.Context(), ""); !errors.Is(err, ErrNoChooser) {
		t.Errorf("Pick() without chooser error = %v, want ErrNoChooser", err)
	}

	aborted := errors.New("user aborted")
	if _, _, err := New(catalog, nil, lookup, WithChooser(&scriptedChooser{err: aborted})).Pick(t.Context(), ""); !errors.Is(err, aborted) {
		t.Errorf("Pick() error = %v, want chooser error", err)
	}
}

func TestAcquireTemplate(t *testing.T) {
	t.Parallel()

	cache := newCache(t, publishedPacks(t))

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()

		f := New(nil, cache, nil, WithWorkDir(t.TempDir()))
		sel, err := f.AcquireTemplate(t.Context(), "cli", "", "simple")
		if err != nil {
			t.Fatalf("AcquireTemplate() error = %v", err)
		}
		defer func() { _ = sel.Close() }()

		want := batterypack.TemplateDescriptor{Name: "cli-battery-pack", Template: "simple", Version: "0.3.1", Source: "mem://cli-battery-pack"}
		if sel.Descriptor != want {
			t.Errorf("Descriptor = %+v, want %+v", sel.Descriptor, want)
		}
		if sel.Config.Description != "Minimal CLI" {
			t.Errorf("Config = %+v", sel.Config)
		}

		dest := filepath.Join(t.TempDir(), "my-tool")
		if err := sel.CopyTo(dest, "my-tool"); err != nil {
			t.Fatalf("CopyTo() error = %v", err)
		}
		main, err := os.ReadFile(filepath.Join(dest, "src", "main.rs"))
		if err != nil {
			t.Fatal(err)
		}
		if want := "// my-tool: A CLI application\nuse my_tool::run;\n"; string(main) != want {
			t.Errorf("main.rs = %q, want %q", main, want)
		}
		if _, err := os.Stat(filepath.Join(dest, "cargo-generate.toml")); !os.IsNotExist(err) {
			t.Error("generator config should not be copied")
		}
		if err := sel.CopyTo(dest, "my-tool"); !errors.Is(err, ErrDestinationNotEmpty) {
			t.Errorf("CopyTo() into a populated directory error = %v", err)
		}

		dir := sel.Dir
		if err := sel.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Error("Close() should remove the unpacked archive")
		}
	})

	t.Run("ambiguous without chooser", func(t *testing.T) {
		t.Parallel()

		f := New(nil, cache, nil, WithWorkDir(t.TempDir()))
		_, err := f.AcquireTemplate(t.Context(), "cli-battery-pack", "0.3.1", "")
		var choice *batterypack.TemplateChoiceError
		if !errors.As(err, &choice) || !errors.Is(err, batterypack.ErrTemplateAmbiguous) {
			t.Fatalf("AcquireTemplate() error = %v, want ErrTemplateAmbiguous", err)
		}
		if !slices.Equal(choice.Candidates, []string{"simple", "subcmds"}) {
			t.Errorf("Candidates = %v", choice.Candidates)
		}
	})

	t.Run("ambiguous with chooser", func(t *testing.T) {
		t.Parallel()

		chooser := &scriptedChooser{pick: 1}
		f := New(nil, cache, nil, WithChooser(chooser), WithWorkDir(t.TempDir()))
		sel, err := f.AcquireTemplate(t.Context(), "cli", "^0.3", "")
		if err != nil {
			t.Fatalf("AcquireTemplate() error = %v", err)
		}
		defer func() { _ = sel.Close() }()

		if sel.Descriptor.Template != "subcmds" {
			t.Errorf("Template = %q, want subcmds", sel.Descriptor.Template)
		}
		if want := []string{"simple - Minimal CLI", "subcmds"}; !slices.Equal(chooser.options[0], want) {
			t.Errorf("chooser options = %v, want %v", chooser.options[0], want)
		}
	})

	t.Run("unknown template", func(t *testing.T) {
		t.Parallel()

		f := New(nil, cache, nil, WithWorkDir(t.TempDir()))
		if _, err := f.AcquireTemplate(t.Context(), "cli", "", "web"); !errors.Is(err, batterypack.ErrTemplateNotFound) {
			t.Errorf("AcquireTemplate() error = %v, want ErrTemplateNotFound", err)
		}
	})

	t.Run("no templates", func(t *testing.T) {
		t.Parallel()

		f := New(nil, cache, nil, WithWorkDir(t.TempDir()))
		if _, err := f.AcquireTemplate(t.Context(), "error", "", ""); !errors.Is(err, batterypack.ErrNoTemplates) {
			t.Errorf("AcquireTemplate() error = %v, want ErrNoTemplates", err)
		}
	})

	if _, err := New(nil, nil, nil).AcquireTemplate(t.Context(), "cli", "", ""); !errors.Is(err, ErrNoCache) {
		t.Errorf("AcquireTemplate() without cache error = %v, want ErrNoCache", err)
	}
}

func TestTemplateFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Cargo.toml"), cliCargoToml)
	testutil.MustWriteFile(t, filepath.Join(dir, "templates", "subcmds", "src", "main.rs"), "fn main() {}\n")

	sel, err := New(nil, nil, nil).TemplateFromDir(t.Context(), dir, "subcmds")
	if err != nil {
		t.Fatalf("TemplateFromDir() error = %v", err)
	}
	if sel.Dir != filepath.Join(dir, "templates", "subcmds") || sel.Descriptor.Source != dir {
		t.Errorf("selection = %+v", sel)
	}
	if err := sel.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sel.Dir); err != nil {
		t.Error("Close() must not remove a local checkout")
	}

	if _, err := New(nil, nil, nil).TemplateFromDir(t.Context(), dir, "simple"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("TemplateFromDir(missing directory) error = %v, want os.ErrNotExist", err)
	}
}

func TestNewSelection_RejectsEscapingPath(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"../outside", "/etc", "templates/../../x"} {
		if _, err := newSelection(t.TempDir(), "evil", batterypack.TemplateConfig{Path: p}); !errors.Is(err, ErrTemplateOutsidePack) {
			t.Errorf("newSelection(%q) error = %v, want ErrTemplateOutsidePack", p, err)
		}
	}
}

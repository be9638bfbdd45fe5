// SPDX-License-Identifier: MPL-2.0

package selection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/battery-pack-rs/battery-pack/internal/templates"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
	"github.com/battery-pack-rs/battery-pack/pkg/namespace"
)

var (
	// ErrNoCatalog is returned by Enumerate when the Facade has no Catalog.
	ErrNoCatalog = errors.New("no pack catalog configured")

	// ErrNoCache is returned by AcquireTemplate when the Facade has no cache.
	ErrNoCache = errors.New("no template cache configured")

	// ErrNoChooser is returned by Pick when the Facade has no Chooser.
	ErrNoChooser = errors.New("no interactive chooser configured")

	// ErrNoCandidates is returned by Pick when enumeration finds nothing.
	ErrNoCandidates = errors.New("no packs match")

	// ErrTemplateOutsidePack is returned when a template path leaves the pack.
	ErrTemplateOutsidePack = errors.New("template path escapes the pack")
)

type (
	// Chooser asks the user to pick one of options and returns its index.
	Chooser interface {
		Choose(ctx context.Context, title string, options []string) (int, error)
	}

	// Facade wires a pack Lookup, a Catalog and a template cache together.
	Facade struct {
		catalog Catalog
		cache   *templates.Cache
		lookup  composition.Lookup
		chooser Chooser
		workDir string
	}

	// Option configures a Facade.
	Option func(*Facade)

	// Resolution is the result of resolving one pack: its extension graph and
	// the flattened namespace a facade generator consumes.
	Resolution struct {
		Graph     *composition.Graph
		Namespace *namespace.FlattenedNamespace
	}
)

// WithChooser enables Pick and interactive template choice.
func WithChooser(c Chooser) Option {
	return func(f *Facade) { f.chooser = c }
}

// WithWorkDir sets where template archives are unpacked. The default is the
// system temp directory.
func WithWorkDir(dir string) Option {
	return func(f *Facade) { f.workDir = dir }
}

// New creates a Facade. catalog and cache may be nil when the caller never
// enumerates or acquires templates.
func New(catalog Catalog, cache *templates.Cache, lookup composition.Lookup, opts ...Option) *Facade {
	f := &Facade{catalog: catalog, cache: cache, lookup: lookup}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ResolvePack resolves a pack by name. Short names ("cli") are expanded to
// the full pack name first.
func (f *Facade) ResolvePack(ctx context.Context, name string) (*Resolution, error) {
	packName := batterypack.ResolvePackName(name)
	manifest, err := f.lookup.Resolve(ctx, packName)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", packName, err)
	}
	return f.ResolveManifest(ctx, manifest)
}

// ResolveManifest resolves an already parsed root manifest. Its parents are
// looked up through the Facade's Lookup.
func (f *Facade) ResolveManifest(ctx context.Context, manifest *batterypack.PackManifest) (*Resolution, error) {
	graph, err := composition.Build(ctx, manifest, f.lookup)
	if err != nil {
		return nil, err
	}
	ns, err := namespace.Resolve(graph)
	if err != nil {
		return nil, err
	}
	return &Resolution{Graph: graph, Namespace: ns}, nil
}

// Enumerate lists the packs the catalog knows for query. Only names carrying
// the pack suffix are kept, each once, in catalog order.
func (f *Facade) Enumerate(ctx context.Context, query string) ([]Item, error) {
	if f.catalog == nil {
		return nil, ErrNoCatalog
	}
	found, err := f.catalog.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[batterypack.PackName]bool, len(found))
	items := make([]Item, 0, len(found))
	for _, item := range found {
		if !strings.HasSuffix(string(item.Name), batterypack.PackSuffix) || seen[item.Name] {
			continue
		}
		seen[item.Name] = true
		items = append(items, item)
	}
	return items, nil
}

// Select resolves the chosen item.
func (f *Facade) Select(ctx context.Context, item Item) (*Resolution, error) {
	return f.ResolvePack(ctx, string(item.Name))
}

// Pick enumerates packs for query, lets the Chooser pick one and resolves it.
func (f *Facade) Pick(ctx context.Context, query string) (Item, *Resolution, error) {
	if f.chooser == nil {
		return Item{}, nil, ErrNoChooser
	}
	items, err := f.Enumerate(ctx, query)
	if err != nil {
		return Item{}, nil, err
	}
	if len(items) == 0 {
		return Item{}, nil, fmt.Errorf("%w %q", ErrNoCandidates, query)
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title()
	}
	idx, err := f.chooser.Choose(ctx, "Pick a battery pack", titles)
	if err != nil {
		return Item{}, nil, err
	}
	if idx < 0 || idx >= len(items) {
		return Item{}, nil, fmt.Errorf("chooser returned index %d of %d", idx, len(items))
	}

	res, err := f.Select(ctx, items[idx])
	if err != nil {
		return items[idx], nil, err
	}
	return items[idx], res, nil
}

// AcquireTemplate fetches pack at version through the cache, unpacks it and
// picks one of its templates. An empty template follows the manifest's
// selection rule; when that is ambiguous and a Chooser is configured the
// user is asked. The caller must Close the returned selection.
func (f *Facade) AcquireTemplate(ctx context.Context, pack, version, template string) (*TemplateSelection, error) {
	if f.cache == nil {
		return nil, ErrNoCache
	}
	name := batterypack.ResolvePackName(pack)

	entry, err := f.cache.Resolve(ctx, string(name), version)
	if err != nil {
		return nil, err
	}
	manifest, err := manifestFromEntry(entry)
	if err != nil {
		return nil, err
	}
	chosen, cfg, err := f.selectTemplate(ctx, manifest, template)
	if err != nil {
		return nil, err
	}

	root, err := os.MkdirTemp(f.workDir, "bp-template-*")
	if err != nil {
		return nil, fmt.Errorf("creating unpack directory: %w", err)
	}
	if err := templates.Extract(entry, root); err != nil {
		_ = os.RemoveAll(root)
		return nil, err
	}

	sel, err := newSelection(root, chosen, cfg)
	if err != nil {
		_ = os.RemoveAll(root)
		return nil, err
	}
	sel.Descriptor = batterypack.TemplateDescriptor{
		Name:     string(name),
		Template: chosen,
		Version:  entry.Version,
		Source:   entry.Source,
	}
	sel.cleanup = root
	return sel, nil
}

// TemplateFromDir picks a template of the pack checked out at dir, without
// touching the cache.
func (f *Facade) TemplateFromDir(ctx context.Context, dir, template string) (*TemplateSelection, error) {
	manifest, err := loadManifestDir(dir)
	if err != nil {
		return nil, err
	}
	chosen, cfg, err := f.selectTemplate(ctx, manifest, template)
	if err != nil {
		return nil, err
	}
	sel, err := newSelection(dir, chosen, cfg)
	if err != nil {
		return nil, err
	}
	sel.Descriptor = batterypack.TemplateDescriptor{
		Name:     string(manifest.Name()),
		Template: chosen,
		Version:  manifest.Version(),
		Source:   dir,
	}
	return sel, nil
}

func (f *Facade) selectTemplate(ctx context.Context, manifest *batterypack.PackManifest, requested string) (string, batterypack.TemplateConfig, error) {
	chosen, cfg, err := manifest.SelectTemplate(requested)
	var choice *batterypack.TemplateChoiceError
	if err == nil || f.chooser == nil || !errors.As(err, &choice) || !errors.Is(err, batterypack.ErrTemplateAmbiguous) {
		return chosen, cfg, err
	}

	options := make([]string, len(choice.Candidates))
	all := manifest.Templates()
	for i, name := range choice.Candidates {
		options[i] = name
		if d := all[name].Description; d != "" {
			options[i] += " - " + d
		}
	}
	idx, chooseErr := f.chooser.Choose(ctx, "Pick a template of "+string(manifest.Name()), options)
	if chooseErr != nil {
		return "", batterypack.TemplateConfig{}, chooseErr
	}
	if idx < 0 || idx >= len(choice.Candidates) {
		return "", batterypack.TemplateConfig{}, err
	}
	return manifest.SelectTemplate(choice.Candidates[idx])
}

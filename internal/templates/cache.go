// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

const (
	// DefaultListingCacheSize bounds how many version listings are memoised.
	DefaultListingCacheSize = 128

	// MaxArchiveBytes bounds a single download (64 MB).
	MaxArchiveBytes = 64 << 20
)

type (
	// Cache is a verified on-disk archive cache in front of a Distribution.
	// It is safe for concurrent use; concurrent requests for the same
	// name@version share one fetch.
	Cache struct {
		dist     Distribution
		dir      string
		listings *lru.Cache[string, []string]
		flights  singleflight.Group
		now      func() time.Time
		resolver *batterypack.SemverResolver
		maxBytes int64
	}

	// Option configures a Cache.
	Option func(*cacheConfig)

	cacheConfig struct {
		dir         string
		listingSize int
		now         func() time.Time
		maxBytes    int64
	}
)

// WithDir sets the cache directory. Without it DefaultCacheDir is used.
func WithDir(dir string) Option {
	return func(c *cacheConfig) { c.dir = dir }
}

// WithListingCacheSize bounds the in-memory version listing cache.
func WithListingCacheSize(n int) Option {
	return func(c *cacheConfig) { c.listingSize = n }
}

// WithClock overrides the clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *cacheConfig) { c.now = now }
}

// WithMaxArchiveBytes overrides MaxArchiveBytes.
func WithMaxArchiveBytes(n int64) Option {
	return func(c *cacheConfig) { c.maxBytes = n }
}

// New creates a Cache over dist.
func New(dist Distribution, opts ...Option) (*Cache, error) {
	cfg := cacheConfig{
		listingSize: DefaultListingCacheSize,
		now:         time.Now,
		maxBytes:    MaxArchiveBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.dir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}
		cfg.dir = dir
	}
	if cfg.listingSize <= 0 {
		cfg.listingSize = DefaultListingCacheSize
	}

	listings, err := lru.New[string, []string](cfg.listingSize)
	if err != nil {
		return nil, fmt.Errorf("creating listing cache: %w", err)
	}

	return &Cache{
		dist:     dist,
		dir:      cfg.dir,
		listings: listings,
		now:      cfg.now,
		resolver: batterypack.NewSemverResolver(),
		maxBytes: cfg.maxBytes,
	}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Resolve returns a verified local copy of name at version.
//
// An empty version selects the highest published version. A full version
// ("1.2.3") is taken literally and served from disk without contacting the
// distribution when it is cached. Anything else is a requirement ("^1.2",
// "~0.3", ">=1.0, <2") resolved against the version listing.
func (c *Cache) Resolve(ctx context.Context, name, version string) (*CacheEntry, error) {
	if ok, errs := batterypack.CrateName(name).IsValid(); !ok {
		return nil, errs[0]
	}

	resolved, err := c.pickVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}

	key := name + "@" + resolved
	for {
		ch := c.flights.DoChan(key, func() (any, error) {
			return c.load(ctx, name, resolved)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The flight ran under another caller's context; if that one
				// was canceled while ours is still live, run our own.
				if isContextError(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			entry := *res.Val.(*CacheEntry)
			return &entry, nil
		}
	}
}

// Versions returns the published versions of name, highest first. Listings
// are memoised for the lifetime of the Cache.
func (c *Cache) Versions(ctx context.Context, name string) ([]string, error) {
	versions, err := c.listVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(versions)
	slices.SortStableFunc(out, func(a, b string) int {
		va, errA := batterypack.ParseVersion(a)
		vb, errB := batterypack.ParseVersion(b)
		if errA != nil || errB != nil {
			return cmp.Compare(b, a)
		}
		return vb.Compare(va)
	})
	return out, nil
}

func (c *Cache) pickVersion(ctx context.Context, name, version string) (string, error) {
	version = strings.TrimSpace(version)
	if v, err := batterypack.ParseVersion(version); err == nil && v.Parts == 3 && !strings.HasPrefix(version, "v") {
		return version, nil
	}

	versions, err := c.listVersions(ctx, name)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNoVersions)
	}

	var picked string
	if version == "" {
		picked, err = c.resolver.Highest(versions)
	} else {
		picked, err = c.resolver.Resolve(batterypack.VersionConstraint(version), versions)
	}
	switch {
	case errors.Is(err, batterypack.ErrNoMatchingVersion):
		return "", fmt.Errorf("%s %s: %w", name, cmp.Or(version, "(latest)"), ErrVersionNotFound)
	case err != nil:
		return "", err
	}
	return picked, nil
}

func (c *Cache) listVersions(ctx context.Context, name string) ([]string, error) {
	if versions, ok := c.listings.Get(name); ok {
		return versions, nil
	}

	versions, err := c.dist.ListVersions(ctx, name)
	if err != nil {
		if isContextError(err) {
			return nil, err
		}
		return nil, &FetchError{Name: name, Err: err}
	}
	c.listings.Add(name, versions)
	return versions, nil
}

// load serves name@version from disk or fetches it. It runs inside a flight.
func (c *Cache) load(ctx context.Context, name, version string) (*CacheEntry, error) {
	if entry, ok := c.lookup(name, version); ok {
		slog.Debug("template cache hit", "name", name, "version", version)
		return entry, nil
	}
	slog.Debug("template cache miss", "name", name, "version", version)
	return c.fetch(ctx, name, version)
}

// lookup returns a cached entry whose archive still hashes to the sidecar
// checksum. Entries that fail the check are removed.
func (c *Cache) lookup(name, version string) (*CacheEntry, bool) {
	entry, err := c.readSidecar(name, version)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("discarding unreadable cache entry", "name", name, "version", version, "error", err)
			c.remove(name, version)
		}
		return nil, false
	}

	got, err := hashFile(entry.Path)
	if err != nil || !strings.EqualFold(got, entry.Checksum) {
		slog.Warn("discarding corrupted cache entry", "name", name, "version", version, "expected", entry.Checksum, "got", got)
		c.remove(name, version)
		return nil, false
	}
	return entry, true
}

// fetch downloads name@version into a temp file next to its final location,
// verifies it and commits sidecar then archive. Nothing is left behind on
// failure.
func (c *Cache) fetch(ctx context.Context, name, version string) (_ *CacheEntry, err error) {
	archive, err := c.dist.Fetch(ctx, name, version)
	if err != nil {
		if isContextError(err) {
			return nil, err
		}
		return nil, &FetchError{Name: name, Version: version, Err: err}
	}
	defer func() { _ = archive.Body.Close() }() // read-only stream

	entryDir := filepath.Join(c.dir, name)
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(entryDir, ".fetch-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(archive.Body, c.maxBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{Name: name, Version: version, Err: err}
	}
	if n > c.maxBytes {
		return nil, &FetchError{Name: name, Version: version, Err: fmt.Errorf("%w: more than %d bytes", ErrArchiveTooLarge, c.maxBytes)}
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if archive.Checksum != "" && !strings.EqualFold(archive.Checksum, got) {
		return nil, &IntegrityError{Name: name, Version: version, Expected: strings.ToLower(archive.Checksum), Got: got}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := &CacheEntry{
		Name:      name,
		Version:   version,
		Path:      c.archivePath(name, version),
		Checksum:  got,
		Source:    archive.Source,
		Size:      n,
		FetchedAt: c.now().UTC().Truncate(time.Second),
	}
	if err := c.writeSidecar(entry); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), entry.Path); err != nil {
		_ = os.Remove(c.sidecarPath(name, version))
		return nil, fmt.Errorf("committing archive: %w", err)
	}
	committed = true

	slog.Debug("template cached", "name", name, "version", version, "bytes", n)
	return entry, nil
}

// Invalidate evicts name@version, or every version of name when version is
// empty. Evicting an absent entry is not an error.
func (c *Cache) Invalidate(name, version string) error {
	if ok, errs := batterypack.CrateName(name).IsValid(); !ok {
		return errs[0]
	}
	if version == "" {
		c.listings.Remove(name)
		if err := os.RemoveAll(filepath.Join(c.dir, name)); err != nil {
			return fmt.Errorf("invalidating %s: %w", name, err)
		}
		return nil
	}
	for _, p := range []string{c.archivePath(name, version), c.sidecarPath(name, version)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("invalidating %s@%s: %w", name, version, err)
		}
	}
	return nil
}

// Entries lists every cached entry ordered by name then version. Entries
// without a readable sidecar are skipped.
func (c *Cache) Entries() ([]CacheEntry, error) {
	names, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	var entries []CacheEntry
	for _, nameDir := range names {
		if !nameDir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(c.dir, nameDir.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			version, ok := strings.CutSuffix(f.Name(), sidecarExt)
			if !ok || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			entry, err := c.readSidecar(nameDir.Name(), version)
			if err != nil {
				continue
			}
			if _, err := os.Stat(entry.Path); err != nil {
				continue
			}
			entries = append(entries, *entry)
		}
	}

	slices.SortFunc(entries, func(a, b CacheEntry) int {
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		va, errA := batterypack.ParseVersion(a.Version)
		vb, errB := batterypack.ParseVersion(b.Version)
		if errA != nil || errB != nil {
			return cmp.Compare(a.Version, b.Version)
		}
		return va.Compare(vb)
	})
	return entries, nil
}

// Clean removes the whole cache directory and forgets memoised listings.
func (c *Cache) Clean() error {
	c.listings.Purge()
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return nil
}

func (c *Cache) remove(name, version string) {
	_ = os.Remove(c.archivePath(name, version))
	_ = os.Remove(c.sidecarPath(name, version))
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

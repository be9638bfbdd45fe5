// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"testing"

	"github.com/battery-pack-rs/battery-pack/internal/templates"
)

func cratesIOHandler(archive []byte, checksum string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/crates/cli-battery-pack", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, `{
  "crate": {"id": "cli-battery-pack", "name": "cli-battery-pack", "max_version": "0.3.1"},
  "versions": [
    {"num": "0.3.1", "checksum": %q, "yanked": false},
    {"num": "0.3.0", "checksum": "dd", "yanked": true},
    {"num": "0.2.0", "checksum": "", "yanked": false}
  ]
}`, checksum)
	})
	mux.HandleFunc("/cdn/cli-battery-pack/cli-battery-pack-0.3.1.crate", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	return mux
}

func TestCratesIO_ListVersionsSkipsYanked(t *testing.T) {
	t.Parallel()

	d := NewCratesIO(newTestClient(t, cratesIOHandler(nil, "cc")))
	got, err := d.ListVersions(t.Context(), "cli-battery-pack")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if want := []string{"0.3.1", "0.2.0"}; !slices.Equal(got, want) {
		t.Errorf("ListVersions() = %v, want %v", got, want)
	}

	if _, err := d.ListVersions(t.Context(), "ghost-battery-pack"); !errors.Is(err, templates.ErrNotPublished) {
		t.Errorf("ListVersions(ghost) error = %v, want ErrNotPublished", err)
	}
}

func TestCratesIO_FetchRejects(t *testing.T) {
	t.Parallel()

	d := NewCratesIO(newTestClient(t, cratesIOHandler(nil, "cc")))

	if _, err := d.Fetch(t.Context(), "cli-battery-pack", "0.3.0"); !errors.Is(err, templates.ErrVersionNotFound) {
		t.Errorf("Fetch(yanked) error = %v, want ErrVersionNotFound", err)
	}
	if _, err := d.Fetch(t.Context(), "cli-battery-pack", "9.0.0"); !errors.Is(err, templates.ErrVersionNotFound) {
		t.Errorf("Fetch(unknown) error = %v, want ErrVersionNotFound", err)
	}
	if _, err := d.Fetch(t.Context(), "cli-battery-pack", "0.2.0"); err == nil {
		t.Error("Fetch() without a published checksum should fail")
	}
}

func TestCratesIO_ThroughCache(t *testing.T) {
	t.Parallel()

	archive := []byte("pretend this is a gzipped tarball")
	sum := sha256.Sum256(archive)

	tests := []struct {
		name     string
		checksum string
		wantErr  error
	}{
		{"verified", hex.EncodeToString(sum[:]), nil},
		{"checksum mismatch", "0000000000000000000000000000000000000000000000000000000000000000", templates.ErrIntegrityFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NewCratesIO(newTestClient(t, cratesIOHandler(archive, tt.checksum)))
			cache, err := templates.New(d, templates.WithDir(t.TempDir()))
			if err != nil {
				t.Fatalf("templates.New() error = %v", err)
			}

			entry, err := cache.Resolve(t.Context(), "cli-battery-pack", "^0.3")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if entry.Version != "0.3.1" || entry.Checksum != tt.checksum || entry.Size != int64(len(archive)) {
				t.Errorf("entry = %+v", entry)
			}
		})
	}
}

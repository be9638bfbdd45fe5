// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/battery-pack-rs/battery-pack/internal/testutil"
)

func writeEntry(t *testing.T, data []byte) *CacheEntry {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pack.crate")
	testutil.MustWriteFile(t, p, string(data))
	return &CacheEntry{Name: "cli-battery-pack", Version: "0.3.1", Path: p}
}

func rawArchive(t *testing.T, headers ...*tar.Header) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, hdr := range headers {
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write(bytes.Repeat([]byte("a"), int(hdr.Size))); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	t.Parallel()

	entry := writeEntry(t, testutil.CrateArchive(t, "cli-battery-pack-0.3.1", map[string]string{
		"Cargo.toml":                    "[package]\nname = \"cli-battery-pack\"\n",
		"templates/default/Cargo.toml":  "[package]\nname = \"{{project-name}}\"\n",
		"templates/default/src/main.rs": "fn main() {}\n",
	}))
	dest := filepath.Join(t.TempDir(), "out")

	if err := Extract(entry, dest); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "templates", "default", "src", "main.rs"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(got) != "fn main() {}\n" {
		t.Errorf("main.rs = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "cli-battery-pack-0.3.1")); !os.IsNotExist(err) {
		t.Errorf("top-level directory should be stripped")
	}
}

func TestExtract_RejectsUnsafeEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header *tar.Header
	}{
		{"parent traversal", &tar.Header{Name: "pack-1.0.0/../../evil", Typeflag: tar.TypeReg, Mode: 0o644, Size: 1}},
		{"absolute path", &tar.Header{Name: "/etc/evil", Typeflag: tar.TypeReg, Mode: 0o644, Size: 1}},
		{"symlink", &tar.Header{Name: "pack-1.0.0/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry := writeEntry(t, rawArchive(t, tt.header))
			dest := t.TempDir()

			err := Extract(entry, dest)
			if !errors.Is(err, ErrUnsafeArchive) {
				t.Fatalf("Extract() error = %v, want ErrUnsafeArchive", err)
			}
			if _, statErr := os.Lstat(filepath.Join(filepath.Dir(dest), "evil")); statErr == nil {
				t.Error("file escaped the destination")
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	entry := writeEntry(t, testutil.CrateArchive(t, "cli-battery-pack-0.3.1", map[string]string{
		"Cargo.toml": "[package]\nname = \"cli-battery-pack\"\n",
		"README.md":  "# cli\n",
	}))

	got, err := ReadFile(entry, "Cargo.toml")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "[package]\nname = \"cli-battery-pack\"\n" {
		t.Errorf("ReadFile() = %q", got)
	}

	if _, err := ReadFile(entry, "missing.toml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestReadFile_NotAnArchive(t *testing.T) {
	t.Parallel()

	entry := writeEntry(t, []byte("definitely not gzip"))
	if _, err := ReadFile(entry, "Cargo.toml"); err == nil {
		t.Fatal("ReadFile() should fail on a corrupt archive")
	}
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"maps"
	"slices"
	"testing"
)

// CrateArchive builds a gzip-compressed tarball laid out like a published
// crate: every file lives under prefix/ (conventionally "<name>-<version>").
// Entries are written in sorted order so the bytes are reproducible.
func CrateArchive(t testing.TB, prefix string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		body := files[name]
		hdr := &tar.Header{
			Name:     prefix + "/" + name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header %s: %v", hdr.Name, err)
		}
		if _, err := io.WriteString(tw, body); err != nil {
			t.Fatalf("writing tar entry %s: %v", hdr.Name, err)
		}
	}
	MustClose(t, tw)
	MustClose(t, gz)
	return buf.Bytes()
}

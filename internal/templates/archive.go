// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// MaxExtractBytes bounds the total size of extracted files (256 MB).
	MaxExtractBytes = 256 << 20

	// maxManifestBytes bounds a single file read through ReadFile.
	maxManifestBytes = 4 << 20
)

// Extract unpacks the tar.gz archive of entry into dest. The single top-level
// directory every crate archive carries (name-version/) is stripped. Entries
// that would land outside dest, links and device files are rejected.
func Extract(entry *CacheEntry, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	var total int64
	return walkArchive(entry.Path, func(rel string, hdr *tar.Header, r io.Reader) error {
		target := filepath.Join(root, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: %s", ErrUnsafeArchive, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			total += hdr.Size
			if total > MaxExtractBytes {
				return fmt.Errorf("%w: extracted size exceeds %d bytes", ErrArchiveTooLarge, MaxExtractBytes)
			}
			return writeFile(target, r, hdr.Size, hdr.FileInfo().Mode().Perm())
		default:
			return fmt.Errorf("%w: %s has unsupported type %q", ErrUnsafeArchive, hdr.Name, hdr.Typeflag)
		}
	})
}

// ReadFile returns the content of one file of the archive, addressed relative
// to the stripped top-level directory (e.g. "Cargo.toml").
func ReadFile(entry *CacheEntry, name string) ([]byte, error) {
	var data []byte
	errFound := errors.New("found")

	err := walkArchive(entry.Path, func(rel string, hdr *tar.Header, r io.Reader) error {
		if rel != name || hdr.Typeflag != tar.TypeReg {
			return nil
		}
		if hdr.Size > maxManifestBytes {
			return fmt.Errorf("%w: %s is %d bytes", ErrArchiveTooLarge, name, hdr.Size)
		}
		var readErr error
		data, readErr = io.ReadAll(io.LimitReader(r, maxManifestBytes))
		if readErr != nil {
			return readErr
		}
		return errFound
	})
	switch {
	case errors.Is(err, errFound):
		return data, nil
	case err != nil:
		return nil, err
	default:
		return nil, fmt.Errorf("%s not found in %s@%s: %w", name, entry.Name, entry.Version, os.ErrNotExist)
	}
}

// walkArchive calls fn for every entry of a tar.gz file with its path
// relative to the top-level directory. Entries at the top level itself are
// skipped, as are path-traversal attempts, which fail the walk.
func walkArchive(archivePath string, fn func(rel string, hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }() // read-only

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		rel, err := stripTopLevel(hdr.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		if err := fn(rel, hdr, tr); err != nil {
			return err
		}
	}
}

// stripTopLevel cleans an archive path and removes its first component.
func stripTopLevel(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}
	_, rest, found := strings.Cut(clean, "/")
	if !found {
		return "", nil
	}
	return rest, nil
}

func writeFile(target string, r io.Reader, size int64, perm os.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, io.LimitReader(r, size)); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

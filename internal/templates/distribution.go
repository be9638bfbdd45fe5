// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"context"
	"io"
)

type (
	// Distribution is a remote source of versioned archives.
	Distribution interface {
		// ListVersions returns the versions that may be fetched for name.
		// Order is not significant.
		ListVersions(ctx context.Context, name string) ([]string, error)

		// Fetch streams one archive. The caller closes Archive.Body.
		Fetch(ctx context.Context, name, version string) (*Archive, error)
	}

	// Archive is one fetched archive stream.
	Archive struct {
		Body io.ReadCloser
		// Checksum is the expected lowercase hex SHA-256 of Body. Empty when
		// the distribution has no upstream digest; the cache then records
		// the digest it computes.
		Checksum string
		// Source describes where the bytes came from, e.g. a download URL.
		Source string
	}
)

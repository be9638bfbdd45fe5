// SPDX-License-Identifier: MPL-2.0

// Package templates acquires and caches versioned pack archives.
//
// A [Distribution] lists the published versions of an archive and streams a
// single version together with its expected SHA-256 checksum. The [Cache]
// keeps verified archives on disk under <dir>/<name>/<version>.crate with a
// TOML sidecar recording where the archive came from and what it hashed to.
//
// Only verified bytes are ever committed. A download whose digest does not
// match fails with an *IntegrityError and leaves the cache as it was, and an
// entry that no longer matches its sidecar is dropped and fetched again
// rather than served.
package templates

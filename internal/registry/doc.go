// SPDX-License-Identifier: MPL-2.0

// Package registry is a small crates.io client: crate metadata and version
// listings, keyword search for battery packs, owners, and archive downloads
// from the static CDN.
//
// Requests go through a DNS-caching transport and a per-host circuit breaker.
// The client never retries on its own; callers decide whether a failed call
// is worth repeating.
package registry

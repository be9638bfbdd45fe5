// SPDX-License-Identifier: MPL-2.0

// Package batterypack models a battery pack manifest: the curated crates a pack
// re-exports, the packs it extends, the crates it excludes from its parents and
// the starter templates it ships.
//
// # Manifests
//
// A manifest is read either from a CUE document validated against the embedded
// #BatteryPack schema ([Parse]) or from a Cargo.toml whose
// [package.metadata.battery] table marks the crate as a pack
// ([ParseCargoManifest]). Both produce an immutable [PackManifest].
//
// # Naming
//
// Every pack name ends with the reserved "-battery-pack" suffix. The bare
// identifier "battery-pack" denotes the root facade crate and can never be
// declared by a manifest. [ShortName] and [ResolvePackName] convert between the
// full and the short form used on the command line.
//
// # Versions
//
// [VersionConstraint] accepts Cargo-style requirements ("1", "^1.2", "~0.3.1",
// ">=1.0, <2.0", "*") and [SemverResolver] picks the highest version satisfying
// one of them.
package batterypack

// SPDX-License-Identifier: MPL-2.0

// Package selection is the thin adapter between the composition engine and
// its callers. It offers an exact-name path for non-interactive use, an
// enumeration path backed by a pack catalog for interactive choosers, and
// template acquisition on top of the template cache.
//
// Nothing here validates packs: manifests, graphs and namespaces are checked
// by pkg/batterypack, pkg/composition and pkg/namespace.
package selection

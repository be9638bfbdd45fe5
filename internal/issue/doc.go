// SPDX-License-Identifier: MPL-2.0

// Package issue turns engine failures into messages a bp user can act on.
//
// ActionableError records what was attempted and on which pack or file,
// together with suggestions. Catalogued failure kinds such as an extension
// cycle also have a Markdown page, rendered with glamour when bp runs with
// --verbose.
package issue

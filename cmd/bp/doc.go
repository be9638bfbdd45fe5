// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bp command-line interface.
//
// Every command receives an *App, the composition root that owns the loaded
// configuration and builds the registry client, template cache and
// selection facade on first use. Commands write through the App's writers
// so tests can capture output.
package cmd

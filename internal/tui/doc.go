// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive prompts bp shows when a choice cannot
// be made from flags alone: picking a battery pack from search results,
// picking a template, and confirming overwrites. Prompts are built on
// charmbracelet/huh and fall back to accessible mode when stdin is not a
// terminal.
package tui

// SPDX-License-Identifier: MPL-2.0

// Package config handles bp configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/battery-pack/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/battery-pack/config.cue on macOS,
// %APPDATA%\battery-pack\config.cue on Windows). It selects the registry and distribution
// point packs are fetched from, where the template cache lives, and UI preferences.
//
// Files are validated against the embedded CUE schema (config_schema.cue) before being
// merged over the defaults.
package config

// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when set.
// os.UserConfigDir ignores a temporary HOME on some platforms, so tests
// redirect the lookup here instead.
var configDirOverride string

// SetConfigDirOverride points ConfigDir at dir. Intended for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset clears overrides set with SetConfigDirOverride.
func Reset() {
	configDirOverride = ""
}

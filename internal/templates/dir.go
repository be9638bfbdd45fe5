// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// CachePathEnv overrides the default cache directory.
	CachePathEnv = "BATTERY_PACK_CACHE"

	// DefaultCacheSubdir is the cache directory under ~/.battery-pack.
	DefaultCacheSubdir = "cache"
)

// DefaultCacheDir returns the cache directory: BATTERY_PACK_CACHE when set,
// otherwise ~/.battery-pack/cache.
func DefaultCacheDir() (string, error) {
	return DefaultCacheDirWith(os.Getenv)
}

// DefaultCacheDirWith is DefaultCacheDir with an injectable getenv, so tests
// need not mutate the process environment.
func DefaultCacheDirWith(getenv func(string) string) (string, error) {
	if envPath := getenv(CachePathEnv); envPath != "" {
		return envPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".battery-pack", DefaultCacheSubdir), nil
}

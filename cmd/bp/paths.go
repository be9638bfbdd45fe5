// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
)

// isPath reports whether arg names something on disk rather than a pack.
// Pack names never contain separators or dots.
func isPath(arg string) bool {
	if strings.ContainsAny(arg, `/\.`) || filepath.IsAbs(arg) {
		return true
	}
	_, err := os.Stat(arg)
	return err == nil
}

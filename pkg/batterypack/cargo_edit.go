// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrDependencyExists is returned by AddDependency when the key is already
// declared in a form it does not rewrite, such as a [dependencies.<key>]
// table.
var ErrDependencyExists = errors.New("dependency already declared")

var (
	dependenciesHeader = regexp.MustCompile(`^\s*\[\s*dependencies\s*\]\s*(#.*)?$`)
	tableHeader        = regexp.MustCompile(`^\s*\[\[?[^\[\]]+\]\]?\s*(#.*)?$`)
)

// Dependency is one entry of a Cargo [dependencies] table, written as an
// inline table under Key.
type Dependency struct {
	Key      string   `toml:"-"`
	Package  string   `toml:"package,omitempty"`
	Version  string   `toml:"version,omitempty"`
	Features []string `toml:"features,omitempty"`
}

// PackDependency renames pack to its short name: cli-battery-pack is added
// as cli = { package = "cli-battery-pack", ... }.
func PackDependency(pack PackName, version string, features []string) Dependency {
	return Dependency{
		Key:      pack.Short(),
		Package:  string(pack),
		Version:  version,
		Features: slices.Clone(features),
	}
}

// AddDependency declares dep in the [dependencies] table of the Cargo.toml
// at manifestPath, leaving the rest of the file as written. A single-line
// entry with the same key is replaced in place; replaced reports that case.
// A missing [dependencies] table is appended.
func AddDependency(manifestPath string, dep Dependency) (replaced bool, err error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}

	out, replaced, err := addDependency(data, dep, manifestPath)
	if err != nil {
		return false, err
	}
	return replaced, atomicWriteFile(manifestPath, out)
}

func addDependency(data []byte, dep Dependency, source string) ([]byte, bool, error) {
	if ok, errs := CrateName(dep.Key).IsValid(); !ok {
		return nil, false, errs[0]
	}

	var doc struct {
		Dependencies map[string]any `toml:"dependencies"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, false, &MalformedManifestError{Source: source, Err: err}
	}
	_, exists := doc.Dependencies[dep.Key]

	entry, err := formatDependency(dep)
	if err != nil {
		return nil, false, err
	}

	lines := strings.Split(string(data), "\n")
	start, end, hasTable := findDependencies(lines)
	switch {
	case exists:
		i := findKeyLine(lines, start, end, dep.Key)
		if !hasTable || i < 0 {
			return nil, false, fmt.Errorf("%w: %s is not a single-line entry of [dependencies]", ErrDependencyExists, dep.Key)
		}
		lines[i] = entry
	case hasTable:
		at := end
		for at > start+1 && strings.TrimSpace(lines[at-1]) == "" {
			at--
		}
		lines = slices.Insert(lines, at, entry)
	default:
		for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
			lines = lines[:len(lines)-1]
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "[dependencies]", entry, "")
	}

	out := []byte(strings.Join(lines, "\n"))
	var check struct {
		Dependencies map[string]any `toml:"dependencies"`
	}
	if err := toml.Unmarshal(out, &check); err != nil {
		return nil, false, fmt.Errorf("%w: rewriting %s would break the manifest: %v", ErrDependencyExists, dep.Key, err)
	}
	if _, ok := check.Dependencies[dep.Key]; !ok {
		return nil, false, fmt.Errorf("internal error: %s missing after edit", dep.Key)
	}
	return out, exists, nil
}

// formatDependency renders dep as one line: key = { package = ..., ... }.
func formatDependency(dep Dependency) (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetTablesInline(true)
	if err := enc.Encode(map[string]Dependency{dep.Key: dep}); err != nil {
		return "", fmt.Errorf("encoding %s: %w", dep.Key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// findDependencies returns the header line of [dependencies] and the index
// of the line that ends its section.
func findDependencies(lines []string) (start, end int, found bool) {
	start = slices.IndexFunc(lines, dependenciesHeader.MatchString)
	if start < 0 {
		return 0, 0, false
	}
	end = len(lines)
	for i := start + 1; i < len(lines); i++ {
		if tableHeader.MatchString(lines[i]) {
			end = i
			break
		}
	}
	return start, end, true
}

func findKeyLine(lines []string, start, end int, key string) int {
	pattern := regexp.MustCompile(`^\s*("` + regexp.QuoteMeta(key) + `"|` + regexp.QuoteMeta(key) + `)\s*=`)
	for i := start + 1; i < end; i++ {
		if pattern.MatchString(lines[i]) {
			return i
		}
	}
	return -1
}

// atomicWriteFile writes data to a file atomically using temp file + rename.
func atomicWriteFile(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

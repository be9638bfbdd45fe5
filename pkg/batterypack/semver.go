// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// ErrInvalidVersionConstraint is the sentinel wrapped by InvalidVersionConstraintError.
	ErrInvalidVersionConstraint = errors.New("invalid version constraint")

	// ErrNoMatchingVersion is returned when no available version satisfies a constraint.
	ErrNoMatchingVersion = errors.New("no matching version")

	// versionPattern matches full and partial semantic versions, with an
	// optional "v" prefix as found on git tags.
	versionPattern = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z.-]+))?(?:\+[0-9A-Za-z.-]+)?$`)

	// comparatorPattern matches a single comparator of a requirement.
	comparatorPattern = regexp.MustCompile(`^(\^|~|>=|<=|>|<|=)?\s*(.+)$`)
)

type (
	// VersionConstraint is a Cargo-style version requirement. The zero value
	// means "any version".
	VersionConstraint string

	// InvalidVersionConstraintError reports a requirement that cannot be parsed.
	InvalidVersionConstraintError struct {
		Value  VersionConstraint
		Reason string
	}

	// Version is a parsed semantic version. Parts records how many of the
	// numeric components were written out, so "1.2" has Parts == 2.
	Version struct {
		Major      int
		Minor      int
		Patch      int
		Prerelease string
		Parts      int
		Original   string
	}

	// Requirement is a parsed VersionConstraint: a conjunction of comparators.
	Requirement struct {
		comparators []comparator
		original    string
	}

	comparator struct {
		op      string
		version Version
	}

	// SemverResolver picks versions satisfying a requirement.
	SemverResolver struct{}
)

// Error implements the error interface.
func (e *InvalidVersionConstraintError) Error() string {
	return fmt.Sprintf("invalid version constraint %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidVersionConstraint so callers can use errors.Is.
func (e *InvalidVersionConstraintError) Unwrap() error { return ErrInvalidVersionConstraint }

// String returns the string representation of the VersionConstraint.
func (c VersionConstraint) String() string { return string(c) }

// IsValid reports whether c parses as a requirement.
func (c VersionConstraint) IsValid() (bool, []error) {
	if _, err := ParseRequirement(string(c)); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// NewSemverResolver creates a new semver resolver.
func NewSemverResolver() *SemverResolver {
	return &SemverResolver{}
}

// ParseVersion parses a full or partial version string.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, fmt.Errorf("invalid version format: %q", s)
	}

	v := Version{Original: s, Prerelease: m[4], Parts: 1}
	nums := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range m[1:4] {
		if part == "" {
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version component %q: %w", part, err)
		}
		*nums[i] = n
		v.Parts = i + 1
	}
	if v.Prerelease != "" && v.Parts < 3 {
		return Version{}, fmt.Errorf("invalid version format: %q: prerelease needs major.minor.patch", s)
	}
	return v, nil
}

// String returns the version as originally written.
func (v Version) String() string {
	if v.Original != "" {
		return v.Original
	}
	return strings.TrimPrefix(v.canonical(), "v")
}

// Compare compares two versions, treating missing components as zero.
// Returns -1 if v < other, 0 if equal, 1 if v > other.
func (v Version) Compare(other Version) int {
	return semver.Compare(v.canonical(), other.canonical())
}

func (v Version) canonical() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// bump increments the component at index (0 major, 1 minor, 2 patch) and
// zeroes everything after it.
func (v Version) bump(index int) Version {
	next := Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Parts: 3}
	switch index {
	case 0:
		next.Major, next.Minor, next.Patch = v.Major+1, 0, 0
	case 1:
		next.Minor, next.Patch = v.Minor+1, 0
	default:
		next.Patch++
	}
	return next
}

// ParseRequirement parses a Cargo-style requirement. Comparators are
// separated by commas and must all hold. A bare version is a caret
// requirement, and "*", "1.*" and "1.2.*" are wildcards.
func ParseRequirement(s string) (*Requirement, error) {
	req := &Requirement{original: strings.TrimSpace(s)}
	if req.original == "" || req.original == "*" {
		return req, nil
	}

	for raw := range strings.SplitSeq(req.original, ",") {
		raw = strings.TrimSpace(raw)
		c, err := parseComparator(raw)
		if err != nil {
			return nil, &InvalidVersionConstraintError{Value: VersionConstraint(s), Reason: err.Error()}
		}
		req.comparators = append(req.comparators, c)
	}
	return req, nil
}

func parseComparator(raw string) (comparator, error) {
	if raw == "" {
		return comparator{}, errors.New("empty comparator")
	}
	if raw == "*" {
		return comparator{op: "*"}, nil
	}

	m := comparatorPattern.FindStringSubmatch(raw)
	op, body := m[1], strings.TrimSpace(m[2])

	if trimmed, ok := strings.CutSuffix(body, ".*"); ok {
		if op != "" && op != "=" {
			return comparator{}, fmt.Errorf("wildcard cannot be combined with %q", op)
		}
		v, err := ParseVersion(trimmed)
		if err != nil || v.Parts > 2 {
			return comparator{}, fmt.Errorf("invalid wildcard %q", raw)
		}
		return comparator{op: "=", version: v}, nil
	}

	v, err := ParseVersion(body)
	if err != nil {
		return comparator{}, err
	}
	if op == "" {
		op = "^"
	}
	return comparator{op: op, version: v}, nil
}

// String returns the requirement as written.
func (r *Requirement) String() string {
	if r.original == "" {
		return "*"
	}
	return r.original
}

// Matches reports whether v satisfies every comparator. Prerelease versions
// only match when some comparator names a prerelease of the same
// major.minor.patch.
func (r *Requirement) Matches(v Version) bool {
	if v.Prerelease != "" && !r.allowsPrerelease(v) {
		return false
	}
	for _, c := range r.comparators {
		if !c.matches(v) {
			return false
		}
	}
	return true
}

func (r *Requirement) allowsPrerelease(v Version) bool {
	for _, c := range r.comparators {
		cv := c.version
		if cv.Prerelease != "" && cv.Major == v.Major && cv.Minor == v.Minor && cv.Patch == v.Patch {
			return true
		}
	}
	return false
}

func (c comparator) matches(v Version) bool {
	floor := c.version
	last := floor.Parts - 1

	switch c.op {
	case "*":
		return true
	case "=":
		if floor.Parts == 3 {
			return v.Compare(floor) == 0
		}
		return v.Compare(floor) >= 0 && v.Compare(floor.bump(last)) < 0
	case "^":
		idx := last
		for i, n := range []int{floor.Major, floor.Minor, floor.Patch}[:floor.Parts] {
			if n != 0 {
				idx = i
				break
			}
		}
		return v.Compare(floor) >= 0 && v.Compare(floor.bump(idx)) < 0
	case "~":
		return v.Compare(floor) >= 0 && v.Compare(floor.bump(min(last, 1))) < 0
	case ">":
		if floor.Parts == 3 {
			return v.Compare(floor) > 0
		}
		return v.Compare(floor.bump(last)) >= 0
	case ">=":
		return v.Compare(floor) >= 0
	case "<":
		return v.Compare(floor) < 0
	case "<=":
		if floor.Parts == 3 {
			return v.Compare(floor) <= 0
		}
		return v.Compare(floor.bump(last)) < 0
	default:
		return false
	}
}

// Resolve returns the highest version in available satisfying constraint.
// Unparseable entries in available are skipped.
func (r *SemverResolver) Resolve(constraint VersionConstraint, available []string) (string, error) {
	req, err := ParseRequirement(string(constraint))
	if err != nil {
		return "", err
	}

	var matching []Version
	for _, s := range available {
		v, err := ParseVersion(s)
		if err != nil || v.Parts < 3 {
			continue
		}
		if req.Matches(v) {
			matching = append(matching, v)
		}
	}
	if len(matching) == 0 {
		return "", fmt.Errorf("%w: %s (available: %s)", ErrNoMatchingVersion, req, strings.Join(available, ", "))
	}

	return slices.MaxFunc(matching, Version.Compare).Original, nil
}

// Highest returns the highest stable version in available, falling back to
// the highest prerelease when no stable version exists.
func (r *SemverResolver) Highest(available []string) (string, error) {
	var stable, pre []Version
	for _, s := range available {
		v, err := ParseVersion(s)
		if err != nil || v.Parts < 3 {
			continue
		}
		if v.Prerelease == "" {
			stable = append(stable, v)
		} else {
			pre = append(pre, v)
		}
	}
	switch {
	case len(stable) > 0:
		return slices.MaxFunc(stable, Version.Compare).Original, nil
	case len(pre) > 0:
		return slices.MaxFunc(pre, Version.Compare).Original, nil
	default:
		return "", fmt.Errorf("%w: no valid versions available", ErrNoMatchingVersion)
	}
}

// IsExact reports whether the requirement pins exactly one version.
func (r *Requirement) IsExact() bool {
	return len(r.comparators) == 1 && r.comparators[0].op == "=" && r.comparators[0].version.Parts == 3
}

// SPDX-License-Identifier: MPL-2.0

package batterypack

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// PackSuffix is the reserved suffix every pack name carries.
	PackSuffix = "-battery-pack"

	// ReservedRootName is the identifier of the root facade crate itself.
	ReservedRootName PackName = "battery-pack"

	// MaxNameLength mirrors the crates.io limit on crate names.
	MaxNameLength = 64
)

var (
	// ErrInvalidName is the sentinel wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid pack name")

	// ErrInvalidCrateName is the sentinel wrapped by InvalidCrateNameError.
	ErrInvalidCrateName = errors.New("invalid crate name")

	// ErrInvalidCrateAlias is the sentinel wrapped by InvalidCrateAliasError.
	ErrInvalidCrateAlias = errors.New("invalid crate alias")

	// crateNamePattern follows the crates.io naming rules: ASCII letter first,
	// then letters, digits, '-' or '_'.
	crateNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

	// aliasPattern accepts a plain Rust identifier.
	aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type (
	// PackName is the registry name of a battery pack, e.g. "cli-battery-pack".
	PackName string

	// InvalidNameError reports a pack name that breaks the naming rules.
	InvalidNameError struct {
		Value  PackName
		Reason string
	}

	// CrateName is the registry name of a curated crate, e.g. "serde_json".
	CrateName string

	// InvalidCrateNameError reports a malformed crate name.
	InvalidCrateNameError struct {
		Value CrateName
	}

	// CrateAlias is the identifier a crate is re-exported under when it
	// differs from the registry name.
	CrateAlias string

	// InvalidCrateAliasError reports an alias that is not a valid identifier.
	InvalidCrateAliasError struct {
		Value CrateAlias
	}
)

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid pack name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidName so callers can use errors.Is.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Error implements the error interface.
func (e *InvalidCrateNameError) Error() string {
	return fmt.Sprintf("invalid crate name %q: must start with a letter and contain only letters, digits, '-' or '_' (max %d)", e.Value, MaxNameLength)
}

// Unwrap returns ErrInvalidCrateName so callers can use errors.Is.
func (e *InvalidCrateNameError) Unwrap() error { return ErrInvalidCrateName }

// Error implements the error interface.
func (e *InvalidCrateAliasError) Error() string {
	return fmt.Sprintf("invalid crate alias %q: must be an identifier", e.Value)
}

// Unwrap returns ErrInvalidCrateAlias so callers can use errors.Is.
func (e *InvalidCrateAliasError) Unwrap() error { return ErrInvalidCrateAlias }

// String returns the string representation of the PackName.
func (n PackName) String() string { return string(n) }

// IsValid reports whether n may be declared by a manifest. It must be
// non-empty, carry PackSuffix after a non-empty prefix, follow the crate
// naming rules and differ from ReservedRootName.
func (n PackName) IsValid() (bool, []error) {
	var reason string
	switch {
	case n == "":
		reason = "must not be empty"
	case n == ReservedRootName:
		reason = "is reserved for the root facade crate"
	case !strings.HasSuffix(string(n), PackSuffix):
		reason = fmt.Sprintf("must end with %q", PackSuffix)
	case len(n) == len(PackSuffix):
		reason = fmt.Sprintf("needs a prefix before %q", PackSuffix)
	case len(n) > MaxNameLength:
		reason = fmt.Sprintf("is longer than %d characters", MaxNameLength)
	case !crateNamePattern.MatchString(string(n)):
		reason = "must start with a letter and contain only letters, digits, '-' or '_'"
	default:
		return true, nil
	}
	return false, []error{&InvalidNameError{Value: n, Reason: reason}}
}

// IsReservedRoot reports whether n is the root facade identifier.
func (n PackName) IsReservedRoot() bool { return n == ReservedRootName }

// Short returns the name without PackSuffix.
func (n PackName) Short() string { return ShortName(string(n)) }

// String returns the string representation of the CrateName.
func (n CrateName) String() string { return string(n) }

// IsValid reports whether n follows the crates.io naming rules.
func (n CrateName) IsValid() (bool, []error) {
	if n == "" || len(n) > MaxNameLength || !crateNamePattern.MatchString(string(n)) {
		return false, []error{&InvalidCrateNameError{Value: n}}
	}
	return true, nil
}

// IsPack reports whether the crate is itself a battery pack.
func (n CrateName) IsPack() bool {
	return strings.HasSuffix(string(n), PackSuffix) || PackName(n) == ReservedRootName
}

// String returns the string representation of the CrateAlias.
func (a CrateAlias) String() string { return string(a) }

// IsValid reports whether a is an identifier. The zero value is valid and
// means "no alias".
func (a CrateAlias) IsValid() (bool, []error) {
	if a == "" {
		return true, nil
	}
	if !aliasPattern.MatchString(string(a)) {
		return false, []error{&InvalidCrateAliasError{Value: a}}
	}
	return true, nil
}

// ShortName strips PackSuffix for display: "cli-battery-pack" becomes "cli".
// Names without the suffix are returned unchanged.
func ShortName(name string) string {
	if short, ok := strings.CutSuffix(name, PackSuffix); ok && short != "" {
		return short
	}
	return name
}

// ResolvePackName expands a short name to the full pack name: "cli" becomes
// "cli-battery-pack". Names that already carry the suffix, and the reserved
// root name, are returned unchanged.
func ResolvePackName(name string) PackName {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasSuffix(name, PackSuffix) || PackName(name) == ReservedRootName {
		return PackName(name)
	}
	return PackName(name + PackSuffix)
}

// Ident converts a registry name into the identifier it is imported under:
// "serde-json" becomes "serde_json".
func Ident(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed is the sentinel wrapped by FetchError.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrIntegrityFailure is the sentinel wrapped by IntegrityError.
	ErrIntegrityFailure = errors.New("integrity check failed")

	// ErrVersionNotFound is returned when no published version satisfies the request.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNotPublished is wrapped by distributions that do not know a name at all.
	ErrNotPublished = errors.New("not published")

	// ErrNoVersions is returned when the distribution lists no versions at all.
	ErrNoVersions = errors.New("no versions published")

	// ErrArchiveTooLarge is returned when a download or extraction exceeds its bound.
	ErrArchiveTooLarge = errors.New("archive too large")

	// ErrUnsafeArchive is returned for archive entries escaping the destination.
	ErrUnsafeArchive = errors.New("unsafe archive entry")
)

type (
	// FetchError reports a failure to list or download an archive. Version is
	// empty when the listing itself failed.
	FetchError struct {
		Name    string
		Version string
		Err     error
	}

	// IntegrityError reports downloaded bytes that do not hash to the
	// checksum the distribution advertised.
	IntegrityError struct {
		Name     string
		Version  string
		Expected string
		Got      string
	}
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("fetching %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("fetching %s@%s: %v", e.Name, e.Version, e.Err)
}

// Unwrap exposes ErrFetchFailed and the underlying cause.
func (e *FetchError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s@%s: expected sha256 %s, got %s", e.Name, e.Version, e.Expected, e.Got)
}

// Unwrap returns ErrIntegrityFailure so callers can use errors.Is.
func (e *IntegrityError) Unwrap() error { return ErrIntegrityFailure }

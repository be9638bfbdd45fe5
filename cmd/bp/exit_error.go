// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// ExitCode is a process exit status.
type ExitCode int

const (
	// ExitFailure is the generic failure status.
	ExitFailure ExitCode = 1
	// ExitUsage reports invalid input: a malformed manifest, bad name, or
	// an unresolvable composition.
	ExitUsage ExitCode = 2
	// ExitUnavailable reports a registry or network failure worth retrying.
	ExitUnavailable ExitCode = 3
	// ExitIntegrity reports a checksum mismatch.
	ExitIntegrity ExitCode = 4
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

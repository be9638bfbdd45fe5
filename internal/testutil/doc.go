// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that fail the test on setup
// errors, reducing boilerplate.
//
// Common helpers include file setup (MustWriteFile, MustMkdirAll), crate
// archive fixtures (CrateArchive) and a manually advanced clock (FakeClock).
package testutil

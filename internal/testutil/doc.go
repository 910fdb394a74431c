// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv,
// MustUnsetenv), package tree fixtures (MustWriteFile, MustWriteClass,
// MustResolve) and a FakeClock for deterministic timestamps.
package testutil

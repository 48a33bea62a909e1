// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a time.After fallback) so that individual
// tests do not need direct time.After calls. [RequireQuiet] is the
// inverse: it asserts that nothing arrives on a channel for a short
// window, which is how gate tests show that an acquirer is still
// blocked.
//
// [WriteFile] builds synthetic /proc and /sys trees under t.TempDir()
// for probes that accept a root path.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the wassail binary.
// These functions hold the raw I/O that happens after the command
// framework has returned:
//
//   - Fatal error reporting to stderr when no logger exists yet.
//   - Process exit with the code a command asked for.
package process

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the wassail command tree.
//
//   - dump collects documents from data sources and writes them as a
//     JSON array or a CBOR sequence, optionally compressed.
//   - evaluate reads documents back, rebuilds their collectors, and
//     collects again.
//   - check runs a suite of checks and prints the result tree.
//   - sources lists the data sources this build knows.
//   - version prints build information.
//
// Commands read and write through [Streams] so that tests can drive
// the whole tree in process.
package commands

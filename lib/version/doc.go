// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the wassail
// binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// When GitCommit is not injected, the VCS stamp recorded by the Go
// toolchain in the binary's build info is used instead, so that plain
// "go build" and "go install" binaries still report their revision.
//
// Formatting functions produce human-readable version strings:
//
//   - [Info] -- "0.1.0-dev (abc1234, 2026-02-10T...)" for --version
//   - [Full] -- Info plus Go version, GOOS/GOARCH, and the document
//     interface revision the collectors emit
//   - [Short] -- just the version number
//   - [Commit] -- just the git SHA
package version

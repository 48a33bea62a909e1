// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package suite loads and runs check suites.
//
// A suite is a YAML file naming the collectors to evaluate and the
// checks to run against their documents. It is loaded from a single
// file given by:
//   - the WASSAIL_CONFIG environment variable ([Load]), or
//   - the --config flag of wassail check ([LoadFile])
//
// There is no discovery and no fallback path. ${VAR} and
// ${VAR:-default} in commands, hosts, users, and paths expand from the
// environment when the file is loaded.
//
// [Suite.Run] evaluates every source concurrently, runs each check
// against the document of the source it names, and returns one result
// tree with the suite as its root.
package suite

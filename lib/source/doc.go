// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package source collects facts about a machine into Documents.
//
// Every collector implements [DataSource]. A collector is constructed
// with its configuration, evaluated once (collection is cached until a
// forced re-evaluation), and converted to a [document.Document] with
// ToDocument. FromDocument restores a collector from a Document it or
// an identical collector produced elsewhere, so facts gathered on one
// machine can be checked on another.
//
// Collection runs under the process-wide execution gate
// ([gate.Default]): ordinary collectors hold it shared, and collectors
// that need an otherwise idle machine (benchmarks, process listings)
// hold it exclusively. Tests and embedders inject their own gate,
// clock, logger, or remote transport with the Option functions.
//
// [New] and [Load] construct collectors by name for callers that only
// know a name or hold a Document, such as suite files and the
// evaluate command.
package source

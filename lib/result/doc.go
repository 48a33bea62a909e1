// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package result holds the outcome of checks as a tree.
//
// A [Result] says whether an issue exists ([Issue]), how severe it is
// ([Priority]), and carries human-readable brief, detail, and action
// text. Results nest: a suite run is a root whose children are check
// results, and a check over several hosts or documents has one child
// per host or document. [Result.AddChild] is safe for concurrent
// producers; every other field is owned by the goroutine that built
// the node.
//
// Aggregation works on the subtree below a node, never the node
// itself: [Result.MaxIssue] and [Result.MaxPriority] report the worst
// descendant, and [Result.Propagate] copies that onto the node.
package result

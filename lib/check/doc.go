// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package check turns documents into results.
//
// Two building blocks do the deciding. A [RulesEngine] applies a list
// of [Rule] predicates: all true is no issue, any false is an issue,
// and a predicate that errors or panics makes the result inconclusive.
// [Compare] and its variants extract one value by JSON pointer and
// compare it against a reference with a comparator such as
// [LessEqual].
//
// The concrete checks (cpu/core_count, disk/amount_free,
// memory/physical_size, misc/shell_output, and the rest) are built on
// those blocks. Each keeps a table from document name to extractor, so
// a check accepts documents from every collector that can answer its
// question and rejects the rest with [ErrUnrecognized]. Checks carry
// only configuration and build their rules per call: one value may be
// used from several goroutines.
//
// Result text comes from [Templates], four fmt templates that use
// explicit argument indexes (%[1]v) so a template can reference any
// subset of the arguments in any order.
package check

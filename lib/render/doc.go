// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns result trees into output for people and for
// monitoring.
//
// [Checklist] prints a tree as an indented list, one node per line,
// with colored issue and priority labels. Colors follow the terminal:
// [DetectProfile] falls back to plain ASCII when NO_COLOR is set or
// the writer is not a terminal. [JSON] writes the tree in its wire
// form, and [WritePrometheus] exports every node as gauges in the
// node_exporter textfile format.
package render

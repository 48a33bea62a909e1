// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the wassail
// binary.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. Commands are assembled into a tree by the commands package
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and help output with examples.
//
// Flags are declared as tagged struct fields and bound with
// [FlagsFromParams]. A field tagged with choices rejects values outside
// its list when parsed.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3).
//
// Commands that finish with a meaningful non-zero status, such as a
// check run that found issues, return an [ExitError].
package cli

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell runs one shell command under a hard wall-clock
// deadline and captures what it produced.
//
// [Run] starts "/bin/sh -c command" in a new process group with stdout
// and stderr on two separate pipes and stdin on /dev/null. The parent
// polls both pipes, waking at least every 100ms so that context
// cancellation is noticed, and appends whatever is readable to the
// matching buffer. A hung-up pipe is drained to EOF before it is
// dropped from the poll set, so output written just before exit is
// never lost.
//
// When the deadline passes (or the context is cancelled, or reading a
// pipe fails) the whole process group receives SIGTERM. Processes that
// ignore it get SIGKILL after the grace period. A process group that
// still cannot be reaped is abandoned and reported in the result; a
// kill that fails is logged. Neither is returned as an error.
//
// Timeouts are data, not errors: the [Execution] carries the output
// captured before the deadline, TimedOut set, and ReturnCode left at
// [SentinelReturnCode]. Run returns an error only when the command
// could not be run at all (empty command, pipe or spawn failure).
package shell

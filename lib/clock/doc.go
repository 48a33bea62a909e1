// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Collectors stamp every document with the time of collection, and the
// suite runner records when a run started and how long it took. Both
// accept a [Clock] so that tests can pin those values: production code
// uses [Real], tests use [Fake], which only moves when Advance is
// called.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	source := source.NewSysconf(source.WithClock(c))
//
// The command runners measure elapsed time with the monotonic clock of
// the time package directly: their deadlines bound real processes and
// cannot be faked.
package clock

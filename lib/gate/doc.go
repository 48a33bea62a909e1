// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate provides the execution gate: a readers-writer lock over
// "the machine as a measurement surface".
//
// Ordinary collectors hold the gate in shared mode while they gather
// data, so any number of them may run at once. Collectors that need the
// machine undisturbed (a process table snapshot, a memory bandwidth
// benchmark) hold it in exclusive mode, which waits for every shared
// holder to release and keeps every later acquirer waiting until it
// releases.
//
// The gate is FIFO: once an exclusive acquirer is waiting, shared
// acquirers that arrive after it queue behind it. A steady stream of
// shared collections therefore cannot starve an exclusive one.
//
// Production code shares one process-wide gate, [Default]. Tests
// construct private gates with [New] so they can run collectors in
// isolation.
package gate

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote runs one shell command on many hosts over SSH.
//
// [RunAll] fans a command out to every [Target] concurrently and hands
// each host's [Record] to a callback as soon as that host finishes, so
// records arrive in completion order rather than input order. A host
// that cannot be reached, refuses authentication, or never reports an
// exit status produces a record with return code 255 and the reason on
// stderr; it never stops the other hosts.
//
// The [Transport] interface separates the fan-out from the wire.
// [SSHTransport] is the production implementation on
// golang.org/x/crypto/ssh. It authenticates with the SSH agent and the
// default identity files unless given explicit auth methods, and it
// verifies host keys against known_hosts unless told otherwise.
//
// A remote command that outlives its timeout is sent SIGTERM and the
// session is torn down. Servers older than OpenSSH 7.9 ignore signal
// requests, so the remote process may keep running after the record
// reports a timeout.
package remote

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package document defines the structured record that every collector
// produces and every check consumes.
//
// A [Document] is a nested map with string keys, scalar leaves, arrays
// and nested maps: exactly the shape of a decoded JSON object. A small
// set of top-level keys is reserved ([KeyName], [KeyVersion],
// [KeyTimestamp], [KeyHostname], [KeyUID], [KeyData],
// [KeyConfiguration]) so that consumers can identify a document before
// interpreting its payload.
//
// Numbers inside a Document are always [encoding/json.Number]. This
// keeps 64-bit counters (resource limits, block counts) exact through
// every round trip, including the CBOR form. Typed access goes through
// [Get] and [Convert], which re-decode the value into the requested Go
// type and report [ErrTypeMismatch] when it does not fit.
//
// Collectors build documents from typed wire structs with
// [FromValue] and restore themselves with [Document.Decode]; fields
// absent from the document keep whatever value the struct held before
// decoding, which is how collectors apply their documented defaults.
package document

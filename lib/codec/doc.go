// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the binary encodings used for collected
// documents.
//
// Documents are JSON at every human-facing boundary (CLI output, input
// files, suite reports). The binary form is CBOR with Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. Same logical data
// always produces identical bytes, which is what makes document
// digests stable.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For CBOR sequences (one document after another on a stream):
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// Dumps may additionally be wrapped in a zstd or LZ4 frame. Readers do
// not need to be told which: [NewDecompressReader] recognizes the frame
// magic and falls back to plain data.
package codec

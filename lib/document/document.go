// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"math"
	"time"
)

// Reserved top-level keys.
const (
	KeyName          = "name"
	KeyVersion       = "version"
	KeyTimestamp     = "timestamp"
	KeyHostname      = "hostname"
	KeyUID           = "uid"
	KeyData          = "data"
	KeyConfiguration = "configuration"
)

// UnknownUID is the uid recorded when a document does not carry one.
const UnknownUID = math.MaxUint32

var (
	// ErrNotFound is returned when a JSON pointer does not resolve.
	ErrNotFound = errors.New("document: value not found")

	// ErrTypeMismatch is returned when a value exists but cannot be
	// represented as the requested Go type.
	ErrTypeMismatch = errors.New("document: type mismatch")

	// ErrUnrecognized is returned by consumers handed a document whose
	// name they do not handle.
	ErrUnrecognized = errors.New("document: not recognized")

	// ErrVersionMismatch is returned when a document's interface
	// version differs from the consumer's.
	ErrVersionMismatch = errors.New("document: version mismatch")
)

// Document is a collected-fact record: the decoded form of one JSON
// object.
type Document map[string]any

// Header is the wire form of the reserved top-level keys. Collector
// wire structs embed it.
type Header struct {
	Name      string `json:"name"`
	Version   int    `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Hostname  string `json:"hostname"`
	UID       uint32 `json:"uid"`
}

// NewHeader returns a Header with the defaults applied to incomplete
// documents: empty hostname, epoch timestamp, unknown uid.
func NewHeader(name string, version int) Header {
	return Header{Name: name, Version: version, UID: UnknownUID}
}

// Name returns the source identifier, or "" when absent or not a
// string.
func (d Document) Name() string {
	name, _ := d[KeyName].(string)
	return name
}

// Version returns the interface version and whether it was present
// and numeric.
func (d Document) Version() (int, bool) {
	value, ok := d[KeyVersion]
	if !ok {
		return 0, false
	}
	version, err := Convert[int](value)
	if err != nil {
		return 0, false
	}
	return version, true
}

// Hostname returns the collecting host, or "" when absent.
func (d Document) Hostname() string {
	hostname, _ := d[KeyHostname].(string)
	return hostname
}

// Timestamp returns the collection time, or the Unix epoch when absent.
func (d Document) Timestamp() time.Time {
	seconds, err := Convert[int64](d[KeyTimestamp])
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(seconds, 0).UTC()
}

// UID returns the uid of the collecting process and whether it was
// present.
func (d Document) UID() (uint32, bool) {
	value, ok := d[KeyUID]
	if !ok {
		return UnknownUID, false
	}
	uid, err := Convert[uint32](value)
	if err != nil {
		return UnknownUID, false
	}
	return uid, true
}

// Collected reports whether the document carries a data payload.
func (d Document) Collected() bool {
	_, ok := d[KeyData]
	return ok
}

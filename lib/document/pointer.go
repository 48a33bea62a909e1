// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-openapi/jsonpointer"
)

// Lookup resolves an RFC 6901 JSON pointer against the document. The
// empty pointer refers to the whole document.
func (d Document) Lookup(pointer string) (any, error) {
	if pointer == "" {
		return d, nil
	}
	parsed, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, fmt.Errorf("invalid pointer %q: %w", pointer, err)
	}
	value, _, err := parsed.Get(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("%w at %q: %v", ErrNotFound, pointer, err)
	}
	return value, nil
}

// Contains reports whether pointer resolves.
func (d Document) Contains(pointer string) bool {
	_, err := d.Lookup(pointer)
	return err == nil
}

// Get resolves pointer and converts the value to T.
func Get[T any](d Document, pointer string) (T, error) {
	value, err := d.Lookup(pointer)
	if err != nil {
		var zero T
		return zero, err
	}
	converted, err := Convert[T](value)
	if err != nil {
		return converted, fmt.Errorf("%q: %w", pointer, err)
	}
	return converted, nil
}

// GetOr resolves pointer and converts the value to T, returning
// fallback when the pointer does not resolve or the value does not fit.
func GetOr[T any](d Document, pointer string, fallback T) T {
	value, err := Get[T](d, pointer)
	if err != nil {
		return fallback
	}
	return value
}

// Convert re-decodes a document value into T. Values that already have
// type T are returned unchanged.
func Convert[T any](value any) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}

	var converted T
	if value == nil {
		return converted, fmt.Errorf("%w: null is not %T", ErrTypeMismatch, converted)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return converted, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&converted); err != nil {
		return converted, fmt.Errorf("%w: %s is not %T", ErrTypeMismatch, data, converted)
	}
	return converted, nil
}

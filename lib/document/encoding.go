// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"

	"github.com/samcmill/wassail-sub000/lib/codec"
)

// FromValue encodes a wire struct (or any JSON-encodable value that
// produces an object) as a Document.
func FromValue(value any) (Document, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", value, err)
	}
	var document Document
	if err := decodeJSON(data, &document); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", value, err)
	}
	if document == nil {
		return nil, fmt.Errorf("encoding %T: not an object", value)
	}
	return document, nil
}

// Decode populates target (a pointer to a wire struct) from the
// document. Fields absent from the document are left untouched.
func (d Document) Decode(target any) error {
	data, err := json.Marshal(map[string]any(d))
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return nil
}

// Parse decodes one JSON object. Comments and trailing commas are
// accepted.
func Parse(data []byte) (Document, error) {
	var document Document
	if err := decodeJSON(jsonc.ToJSON(data), &document); err != nil {
		return nil, err
	}
	if document == nil {
		return nil, errors.New("document: input is not an object")
	}
	return document, nil
}

// ParseList decodes either a single JSON object or an array of
// objects. Comments and trailing commas are accepted.
func ParseList(data []byte) ([]Document, error) {
	clean := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(clean) > 0 && clean[0] == '[' {
		var documents []Document
		if err := decodeJSON(clean, &documents); err != nil {
			return nil, err
		}
		for i, document := range documents {
			if document == nil {
				return nil, fmt.Errorf("document: element %d is not an object", i)
			}
		}
		return documents, nil
	}
	document, err := Parse(clean)
	if err != nil {
		return nil, err
	}
	return []Document{document}, nil
}

// MarshalJSON encodes the document with sorted keys.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}

// MarshalCBOR encodes the document in deterministic CBOR. Numbers are
// written as CBOR integers when they are integral and as floats
// otherwise.
func (d Document) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(toCBOR(map[string]any(d)))
}

// UnmarshalCBOR decodes a CBOR map into the document, converting every
// number to json.Number.
func (d *Document) UnmarshalCBOR(data []byte) error {
	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding CBOR document: %w", err)
	}
	converted, err := fromCBOR(raw)
	if err != nil {
		return err
	}
	*d = Document(converted.(map[string]any))
	return nil
}

// Digest returns the hex BLAKE3-256 digest of the document's
// deterministic CBOR encoding. Equal documents have equal digests
// regardless of how they were built.
func Digest(d Document) (string, error) {
	data, err := d.MarshalCBOR()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as
// json.Number.
func decodeJSON(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	if err := decoder.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errors.New("decoding JSON: unexpected data after value")
	}
	return nil
}

func toCBOR(value any) any {
	switch typed := value.(type) {
	case Document:
		return toCBOR(map[string]any(typed))
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, element := range typed {
			converted[key] = toCBOR(element)
		}
		return converted
	case []any:
		converted := make([]any, len(typed))
		for i, element := range typed {
			converted[i] = toCBOR(element)
		}
		return converted
	case json.Number:
		if integer, err := strconv.ParseInt(string(typed), 10, 64); err == nil {
			return integer
		}
		if unsigned, err := strconv.ParseUint(string(typed), 10, 64); err == nil {
			return unsigned
		}
		if float, err := typed.Float64(); err == nil {
			return float
		}
		return string(typed)
	default:
		return value
	}
}

func fromCBOR(value any) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, element := range typed {
			child, err := fromCBOR(element)
			if err != nil {
				return nil, err
			}
			converted[key] = child
		}
		return converted, nil
	case []any:
		converted := make([]any, len(typed))
		for i, element := range typed {
			child, err := fromCBOR(element)
			if err != nil {
				return nil, err
			}
			converted[i] = child
		}
		return converted, nil
	case uint64:
		return json.Number(strconv.FormatUint(typed, 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(typed, 10)), nil
	case float32:
		return floatNumber(float64(typed))
	case float64:
		return floatNumber(typed)
	case string, bool, nil:
		return typed, nil
	default:
		return nil, fmt.Errorf("%w: CBOR value of type %T has no document form", ErrTypeMismatch, value)
	}
}

// floatNumber formats f exactly as encoding/json would, so a float
// that went through CBOR compares equal to one parsed from JSON.
func floatNumber(f float64) (any, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return json.Number(data), nil
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the frame format wrapped around a dump.
type Compression uint8

const (
	// CompressionNone writes the encoded documents unchanged.
	CompressionNone Compression = iota

	// CompressionZstd wraps output in a zstd frame. Best ratio for
	// the text-heavy payloads that command output produces.
	CompressionZstd

	// CompressionLZ4 wraps output in an LZ4 frame. Cheaper to produce
	// than zstd when dumps are collected on busy nodes.
	CompressionLZ4
)

// Frame magic numbers, as they appear on the wire.
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// String returns the flag spelling of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression name as accepted by --compress.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", name)
	}
}

// NewCompressWriter wraps w so that everything written is compressed
// with c. The caller must Close the returned writer to flush the final
// frame; closing does not close w.
func NewCompressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// NewDecompressReader inspects the first bytes of r and returns a
// reader producing the decompressed stream together with the detected
// compression. Input without a recognized frame magic is returned as
// is. The caller must Close the returned reader.
func NewDecompressReader(r io.Reader) (io.ReadCloser, Compression, error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, CompressionNone, fmt.Errorf("reading frame header: %w", err)
	}

	switch {
	case bytes.Equal(head, zstdMagic):
		decoder, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, CompressionZstd, fmt.Errorf("creating zstd reader: %w", err)
		}
		return decoder.IOReadCloser(), CompressionZstd, nil
	case bytes.Equal(head, lz4Magic):
		return io.NopCloser(lz4.NewReader(buffered)), CompressionLZ4, nil
	default:
		return io.NopCloser(buffered), CompressionNone, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

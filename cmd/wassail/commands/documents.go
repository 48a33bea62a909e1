// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/samcmill/wassail-sub000/lib/codec"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/source"
)

// stdio is the file name meaning stdin or stdout.
const stdio = "-"

// collection is the outcome of evaluating one collector.
type collection struct {
	name string
	doc  document.Document
	err  error
}

// collect evaluates every source concurrently. Results keep the order
// of sources.
func collect(ctx context.Context, sources []source.DataSource, force bool, logger *slog.Logger) []collection {
	results := make([]collection, len(sources))
	var group errgroup.Group
	for index, src := range sources {
		group.Go(func() error {
			doc, err := source.Run(ctx, src, force)
			results[index] = collection{name: src.Name(), doc: doc, err: err}
			if err != nil {
				logger.Debug("source failed", "source", src.Name(), "error", err)
			}
			return nil
		})
	}
	group.Wait()
	return results
}

// skippable reports whether err means the source does not apply here
// rather than that it broke.
func skippable(err error) bool {
	return errors.Is(err, source.ErrDisabled) || errors.Is(err, source.ErrMissingInput)
}

// readDocuments reads JSON, JSONC, or a CBOR sequence from r, any of
// them optionally wrapped in a zstd or lz4 frame.
func readDocuments(r io.Reader) ([]document.Document, error) {
	decompressed, compression, err := codec.NewDecompressReader(r)
	if err != nil {
		return nil, err
	}
	defer decompressed.Close()

	data, err := io.ReadAll(decompressed)
	if err != nil {
		return nil, fmt.Errorf("reading %s input: %w", compression, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.New("empty input: expected JSON or CBOR documents")
	}
	// JSON input opens with an object, an array, or a comment. The
	// first byte of a CBOR document is a map header (0xa0-0xbf).
	if trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == '/' {
		return document.ParseList(data)
	}

	var docs []document.Document
	decoder := codec.NewDecoder(bytes.NewReader(data))
	for {
		var doc document.Document
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, fmt.Errorf("decoding CBOR document %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
}

// openInput opens path for reading, or returns stdin for "-".
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == stdio {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

// openOutput creates path for writing, or returns stdout for "-".
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == stdio {
		return nopWriteCloser{stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/samcmill/wassail-sub000/cmd/wassail/cli"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/source"
)

type evaluateParams struct {
	cli.JSONOutput
	Input   string `flag:"input,i" desc:"document file (- for stdin)" default:"-"`
	Verbose bool   `flag:"verbose,v" desc:"debug logging"`
}

func evaluateCommand(streams Streams, opts []source.Option) *cli.Command {
	var params evaluateParams
	return &cli.Command{
		Name:    "evaluate",
		Summary: "Collect again from saved documents",
		Description: `Read documents, rebuild the collector each one names with the
configuration it carries, and collect again. The input may be JSON,
JSONC, or the CBOR sequence written by "wassail dump --format cbor",
compressed or not.

Each new document is written as one line of JSON, or with --json as a
single indented array.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("evaluate", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Re-run the shell commands recorded on another node",
				Command:     "wassail evaluate --input node01.json",
			},
			{
				Description: "Round-trip through a compressed snapshot",
				Command:     "wassail dump --format cbor --compress lz4 | wassail evaluate --json",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("evaluate takes no positional arguments, got %q", args[0])
			}
			return runEvaluate(ctx, streams, opts, &params)
		},
	}
}

func runEvaluate(ctx context.Context, streams Streams, opts []source.Option, params *evaluateParams) error {
	logger := newLogger(streams, params.Verbose, "evaluate")
	opts = append([]source.Option{source.WithLogger(logger)}, opts...)

	input, err := openInput(params.Input, streams.In)
	if err != nil {
		return cli.Internal("opening input: %w", err)
	}
	docs, err := readDocuments(input)
	input.Close()
	if err != nil {
		return cli.Validation("reading documents: %w", err)
	}

	sources := make([]source.DataSource, len(docs))
	for index, doc := range docs {
		src, err := source.Load(doc, opts...)
		if err != nil {
			return cli.Validation("document %d: %w", index+1, err)
		}
		sources[index] = src
	}

	var fresh []document.Document
	var failures []error
	for _, collected := range collect(ctx, sources, true, logger) {
		if collected.err != nil {
			logger.Warn("source failed", "source", collected.name, "error", collected.err)
			failures = append(failures, fmt.Errorf("%s: %w", collected.name, collected.err))
			continue
		}
		fresh = append(fresh, collected.doc)
	}

	if err := writeEvaluated(streams, params, fresh); err != nil {
		return cli.Internal("writing documents: %w", err)
	}
	if len(failures) > 0 {
		return cli.Internal("%d of %d sources failed: %w", len(failures), len(sources), errors.Join(failures...))
	}
	return nil
}

func writeEvaluated(streams Streams, params *evaluateParams, docs []document.Document) error {
	if done, err := params.EmitJSON(streams.Out, docs); done {
		return err
	}
	for _, doc := range docs {
		line, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", doc.Name(), err)
		}
		if _, err := fmt.Fprintf(streams.Out, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

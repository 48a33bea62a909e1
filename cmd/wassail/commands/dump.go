// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/pflag"

	"github.com/samcmill/wassail-sub000/cmd/wassail/cli"
	"github.com/samcmill/wassail-sub000/lib/codec"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/source"
)

type dumpParams struct {
	Sources  []string `flag:"source,s" desc:"collect only the named source (repeatable; default: every system source)"`
	Format   string   `flag:"format" desc:"output encoding" default:"json" choices:"json,cbor,diag"`
	Compress string   `flag:"compress" desc:"compression frame" default:"none" choices:"none,zstd,lz4"`
	Digest   bool     `flag:"digest" desc:"print a BLAKE3 digest line per document on stderr"`
	Output   string   `flag:"output,o" desc:"output file (- for stdout)" default:"-"`
	Force    bool     `flag:"force" desc:"collect even when a source already holds data"`
	Verbose  bool     `flag:"verbose,v" desc:"log every source that is skipped"`
}

func dumpCommand(streams Streams, opts []source.Option) *cli.Command {
	var params dumpParams
	return &cli.Command{
		Name:    "dump",
		Summary: "Collect documents from data sources",
		Description: `Evaluate data sources concurrently and write one document per source.

Without --source, every source that reads system state is collected;
sources that need configuration or do not work on this platform are
skipped, and benchmark sources (mpirun, osu_micro_benchmarks, stream)
are left out. Named sources must all succeed.

JSON output is an array of documents. CBOR output is a sequence of
deterministically encoded documents, one after another. diag prints
each CBOR document in diagnostic notation (RFC 8949), one per line.`,
		Usage: "wassail dump [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("dump", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Collect the kernel and resource limits",
				Command:     "wassail dump -s uname -s getrlimit",
			},
			{
				Description: "Show the CBOR encoding of the mount table",
				Command:     "wassail dump -s getmntent --format diag",
			},
			{
				Description: "Write a zstd-compressed CBOR snapshot with digests",
				Command:     "wassail dump --format cbor --compress zstd --digest -o snapshot.cbor.zst",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("dump takes no positional arguments, got %q", args[0])
			}
			return runDump(ctx, streams, opts, &params)
		},
	}
}

func runDump(ctx context.Context, streams Streams, opts []source.Option, params *dumpParams) error {
	logger := newLogger(streams, params.Verbose, "dump")
	opts = append([]source.Option{source.WithLogger(logger)}, opts...)

	explicit := len(params.Sources) > 0
	names := params.Sources
	if !explicit {
		for _, name := range source.Names() {
			if !slices.Contains(benchmarkSources, name) {
				names = append(names, name)
			}
		}
	}

	sources := make([]source.DataSource, 0, len(names))
	for _, name := range names {
		src, err := source.New(name, opts...)
		if err != nil {
			return cli.Validation("%w (run 'wassail sources' for the list)", err)
		}
		sources = append(sources, src)
	}

	var docs []document.Document
	var failures []error
	for _, collected := range collect(ctx, sources, params.Force, logger) {
		switch {
		case collected.err == nil:
			docs = append(docs, collected.doc)
		case !explicit && skippable(collected.err):
			logger.Info("skipping source", "source", collected.name, "reason", collected.err)
		default:
			logger.Warn("source failed", "source", collected.name, "error", collected.err)
			failures = append(failures, fmt.Errorf("%s: %w", collected.name, collected.err))
		}
	}

	if err := writeDump(streams, params, docs); err != nil {
		return err
	}
	if len(failures) > 0 {
		return cli.Internal("%d of %d sources failed: %w", len(failures), len(sources), errors.Join(failures...))
	}
	return nil
}

func writeDump(streams Streams, params *dumpParams, docs []document.Document) error {
	compression, err := codec.ParseCompression(params.Compress)
	if err != nil {
		return cli.Validation("%w", err)
	}

	output, err := openOutput(params.Output, streams.Out)
	if err != nil {
		return cli.Internal("opening output: %w", err)
	}
	compressed, err := codec.NewCompressWriter(output, compression)
	if err != nil {
		output.Close()
		return cli.Internal("%w", err)
	}

	encodeErr := encodeDocuments(compressed, params.Format, docs)
	closeErr := errors.Join(compressed.Close(), output.Close())
	if encodeErr != nil {
		return cli.Internal("writing documents: %w", encodeErr)
	}
	if closeErr != nil {
		return cli.Internal("finishing output: %w", closeErr)
	}

	if params.Digest {
		for _, doc := range docs {
			digest, err := document.Digest(doc)
			if err != nil {
				return cli.Internal("digesting %s: %w", doc.Name(), err)
			}
			fmt.Fprintf(streams.Err, "%s  %s\n", digest, doc.Name())
		}
	}
	return nil
}

func encodeDocuments(w io.Writer, format string, docs []document.Document) error {
	switch format {
	case "cbor":
		encoder := codec.NewEncoder(w)
		for _, doc := range docs {
			if err := encoder.Encode(doc); err != nil {
				return fmt.Errorf("%s: %w", doc.Name(), err)
			}
		}
		return nil
	case "diag":
		for _, doc := range docs {
			data, err := codec.Marshal(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name(), err)
			}
			notation, err := codec.Diagnose(data)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name(), err)
			}
			if _, err := fmt.Fprintln(w, notation); err != nil {
				return err
			}
		}
		return nil
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return cli.WriteJSON(w, docs)
}

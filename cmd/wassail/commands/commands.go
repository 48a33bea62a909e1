// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/samcmill/wassail-sub000/cmd/wassail/cli"
	"github.com/samcmill/wassail-sub000/lib/source"
	"github.com/samcmill/wassail-sub000/lib/version"
)

// Streams are the standard streams of a command run.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StandardStreams returns the process's stdin, stdout, and stderr.
func StandardStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Root builds the wassail command tree. The options are passed to
// every collector the commands construct.
func Root(streams Streams, opts ...source.Option) *cli.Command {
	return &cli.Command{
		Name: "wassail",
		Description: `wassail: node-level diagnostics for HPC systems.

Collect facts about a node (kernel, limits, file systems, processes,
command output), save them as documents, and check them against
expectations.`,
		HelpOutput: streams.Err,
		Subcommands: []*cli.Command{
			dumpCommand(streams, opts),
			evaluateCommand(streams, opts),
			checkCommand(streams, opts),
			sourcesCommand(streams, opts),
			versionCommand(streams),
		},
		Examples: []cli.Example{
			{
				Description: "Collect every system source as JSON",
				Command:     "wassail dump",
			},
			{
				Description: "Save a compressed CBOR snapshot of two sources",
				Command:     "wassail dump --source uname --source getrlimit --format cbor --compress zstd -o node01.cbor.zst",
			},
			{
				Description: "Collect the same sources again from a saved snapshot",
				Command:     "wassail evaluate --input node01.cbor.zst",
			},
			{
				Description: "Run a suite and export gauges for node_exporter",
				Command:     "wassail check --config suite.yaml --textfile /var/lib/node_exporter/wassail.prom",
			},
		},
	}
}

type versionParams struct {
	Full bool `flag:"full" desc:"include Go version, platform, and document interface revision"`
}

func versionCommand(streams Streams) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("version takes no arguments, got %q", args[0])
			}
			if params.Full {
				fmt.Fprintf(streams.Out, "wassail %s\n", version.Full(source.Version))
				return nil
			}
			fmt.Fprintf(streams.Out, "wassail %s\n", version.Info())
			return nil
		},
	}
}

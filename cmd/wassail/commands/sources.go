// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/samcmill/wassail-sub000/cmd/wassail/cli"
	"github.com/samcmill/wassail-sub000/lib/source"
)

// benchmarkSources run workloads rather than read state. dump skips
// them unless they are named.
var benchmarkSources = []string{"mpirun", "osu_micro_benchmarks", "stream"}

type sourcesParams struct {
	cli.JSONOutput
}

type sourceInfo struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Benchmark bool   `json:"benchmark"`
}

func sourcesCommand(streams Streams, opts []source.Option) *cli.Command {
	var params sourcesParams
	return &cli.Command{
		Name:    "sources",
		Summary: "List data sources",
		Description: `List every data source this build can collect, whether it works on
this platform, and whether it runs a benchmark workload.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("sources", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("sources takes no arguments, got %q", args[0])
			}
			var infos []sourceInfo
			for _, name := range source.Names() {
				src, err := source.New(name, opts...)
				if err != nil {
					return cli.Internal("constructing %s: %w", name, err)
				}
				infos = append(infos, sourceInfo{
					Name:      name,
					Enabled:   src.Enabled(),
					Benchmark: slices.Contains(benchmarkSources, name),
				})
			}

			if done, err := params.EmitJSON(streams.Out, infos); done {
				return err
			}
			writer := tabwriter.NewWriter(streams.Out, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "NAME\tENABLED\tBENCHMARK")
			for _, info := range infos {
				fmt.Fprintf(writer, "%s\t%t\t%t\n", info.Name, info.Enabled, info.Benchmark)
			}
			return writer.Flush()
		},
	}
}

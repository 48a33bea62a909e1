// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/samcmill/wassail-sub000/cmd/wassail/cli"
	"github.com/samcmill/wassail-sub000/lib/render"
	"github.com/samcmill/wassail-sub000/lib/result"
	"github.com/samcmill/wassail-sub000/lib/source"
	"github.com/samcmill/wassail-sub000/lib/suite"
)

// Exit codes of "wassail check" for a root issue other than No.
const (
	exitIssue   = 1
	exitUnknown = 2
)

type checkParams struct {
	cli.JSONOutput
	Config   string `flag:"config,c" desc:"suite file (default: $WASSAIL_CONFIG)"`
	Textfile string `flag:"textfile" desc:"also write Prometheus gauges to this file"`
	Verbose  bool   `flag:"verbose,v" desc:"show detail for passing checks and debug logging"`
}

func checkCommand(streams Streams, opts []source.Option) *cli.Command {
	var params checkParams
	return &cli.Command{
		Name:    "check",
		Summary: "Run a suite of checks",
		Description: `Collect the sources a suite declares, run its checks against them,
and print the result tree as a checklist.

The exit status reflects the whole suite: 0 when no check found an
issue, 1 when at least one did, and 2 when none did but at least one
could not decide.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("check", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Check a node against a suite file",
				Command:     "wassail check -c /etc/wassail/node.yaml",
			},
			{
				Description: "Feed node_exporter's textfile collector from cron",
				Command:     "WASSAIL_CONFIG=/etc/wassail/node.yaml wassail check --textfile /var/lib/node_exporter/wassail.prom",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("check takes no positional arguments, got %q", args[0])
			}
			return runCheck(ctx, streams, opts, &params)
		},
	}
}

func runCheck(ctx context.Context, streams Streams, opts []source.Option, params *checkParams) error {
	var loaded *suite.Suite
	var err error
	if params.Config != "" {
		loaded, err = suite.LoadFile(params.Config)
	} else {
		loaded, err = suite.Load()
	}
	if err != nil {
		return cli.Validation("%w", err)
	}

	logger := newLogger(streams, params.Verbose, "check").With("suite", loaded.Name)
	root, err := loaded.Run(ctx, logger, opts...)
	if err != nil {
		return cli.Internal("running suite %q: %w", loaded.Name, err)
	}

	if params.Textfile != "" {
		if err := render.WritePrometheus(params.Textfile, root); err != nil {
			return cli.Internal("%w", err)
		}
	}

	if done, err := params.EmitJSON(streams.Out, root); done {
		if err != nil {
			return err
		}
	} else {
		checklist := render.NewChecklist(streams.Out, render.DetectProfile(streams.Out))
		checklist.Verbose = params.Verbose
		if err := checklist.Write(root); err != nil {
			return err
		}
	}

	switch root.Issue {
	case result.No:
		return nil
	case result.Yes:
		return &cli.ExitError{Code: exitIssue}
	default:
		return &cli.ExitError{Code: exitUnknown}
	}
}

func newLogger(streams Streams, verbose bool, command string) *slog.Logger {
	return cli.NewCommandLogger(streams.Err, verbose).With("command", command)
}

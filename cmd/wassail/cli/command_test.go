// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "wassail",
		Subcommands: []*Command{
			{
				Name: "dump",
				Run: func(ctx context.Context, args []string) error {
					called = "dump"
					return nil
				},
			},
			{
				Name: "check",
				Run: func(ctx context.Context, args []string) error {
					called = "check"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"check"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "check" {
		t.Errorf("dispatched to %q, want %q", called, "check")
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var params struct {
		Config  string `flag:"config,c" desc:"suite file"`
		Verbose bool   `flag:"verbose" desc:"verbose"`
	}
	var receivedArgs []string

	command := &Command{
		Name: "check",
		Flags: func() *pflag.FlagSet {
			return FlagsFromParams("check", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			receivedArgs = args
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"-c", "suite.yaml", "--verbose", "extra"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if params.Config != "suite.yaml" || !params.Verbose {
		t.Errorf("params = %+v", params)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra" {
		t.Errorf("args = %v, want [extra]", receivedArgs)
	}
}

func TestCommand_Execute_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")

	var got any
	root := &Command{
		Name: "wassail",
		Subcommands: []*Command{{
			Name: "dump",
			Run: func(ctx context.Context, args []string) error {
				got = ctx.Value(key{})
				return nil
			},
		}},
	}
	if err := root.Execute(ctx, []string{"dump"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got != "value" {
		t.Errorf("context value = %v", got)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name:       "wassail",
		HelpOutput: &bytes.Buffer{},
		Subcommands: []*Command{
			{Name: "dump", Run: func(context.Context, []string) error { return nil }},
			{Name: "evaluate", Run: func(context.Context, []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"evalute"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "evaluate"`) {
		t.Errorf("error = %q, want suggestion", err)
	}

	err = root.Execute(context.Background(), []string{"frobnicate"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	var params struct {
		Textfile string `flag:"textfile" desc:"textfile path"`
	}
	command := &Command{
		Name: "check",
		Flags: func() *pflag.FlagSet {
			return FlagsFromParams("check", &params)
		},
		Run: func(context.Context, []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--textfil", "out.prom"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --textfile?") {
		t.Errorf("error = %q, want suggestion", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:        "wassail",
		HelpOutput:  &help,
		Subcommands: []*Command{{Name: "dump", Summary: "Collect documents"}},
	}

	err := root.Execute(context.Background(), nil)
	if !errors.Is(err, ErrSubcommandRequired) {
		t.Errorf("error = %v, want ErrSubcommandRequired", err)
	}
	if !strings.Contains(help.String(), "Collect documents") {
		t.Errorf("help output missing subcommand summary:\n%s", help.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	var params struct {
		Format string `flag:"format" desc:"output format" default:"json" choices:"json,cbor"`
	}
	root := &Command{Name: "wassail"}
	dump := &Command{
		Name:        "dump",
		Description: "Collect documents from data sources.",
		Examples: []Example{
			{Description: "Collect everything", Command: "wassail dump"},
		},
		Flags: func() *pflag.FlagSet {
			return FlagsFromParams("dump", &params)
		},
		parent: root,
	}

	var buffer bytes.Buffer
	dump.PrintHelp(&buffer)
	help := buffer.String()
	for _, fragment := range []string{
		"Collect documents from data sources.",
		"Usage:\n  wassail dump [flags]",
		"--format",
		"(json|cbor)",
		"# Collect everything",
	} {
		if !strings.Contains(help, fragment) {
			t.Errorf("help missing %q:\n%s", fragment, help)
		}
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	var help bytes.Buffer
	ran := false
	command := &Command{
		Name:       "sources",
		Summary:    "List data sources",
		HelpOutput: &help,
		Run: func(context.Context, []string) error {
			ran = true
			return nil
		},
	}
	if err := command.Execute(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if ran {
		t.Error("Run called for --help")
	}
	if !strings.Contains(help.String(), "List data sources") {
		t.Errorf("help = %q", help.String())
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	var coder interface{ ExitCode() int }
	if !errors.As(err, &coder) || coder.ExitCode() != 2 {
		t.Errorf("ExitError does not carry its code: %v", err)
	}
	if err.Error() != "exit code 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcmill/wassail-sub000/cmd/wassail/cli"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
	"github.com/samcmill/wassail-sub000/lib/source"
	"github.com/samcmill/wassail-sub000/lib/suite"
)

// invocation is the captured output of one command run.
type invocation struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	err    error
}

// execute runs the wassail command tree with args, feeding stdin.
func execute(t *testing.T, stdin string, args ...string) *invocation {
	t.Helper()
	run := &invocation{}
	streams := Streams{In: strings.NewReader(stdin), Out: &run.stdout, Err: &run.stderr}
	run.err = Root(streams).Execute(context.Background(), args)
	return run
}

func requireSuccess(t *testing.T, run *invocation) {
	t.Helper()
	if run.err != nil {
		t.Fatalf("command failed: %v\nstderr:\n%s", run.err, run.stderr.String())
	}
}

func requireCategory(t *testing.T, err error, category cli.ErrorCategory) {
	t.Helper()
	var toolError *cli.ToolError
	if !errors.As(err, &toolError) {
		t.Fatalf("error %v is not a ToolError", err)
	}
	if toolError.Category != category {
		t.Errorf("category = %q, want %q (%v)", toolError.Category, category, err)
	}
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	if code == 0 {
		if err != nil {
			t.Fatalf("error = %v, want success", err)
		}
		return
	}
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) {
		t.Fatalf("error = %v, want exit code %d", err, code)
	}
	if exitError.Code != code {
		t.Errorf("exit code = %d, want %d", exitError.Code, code)
	}
}

func TestVersion(t *testing.T) {
	run := execute(t, "", "version")
	requireSuccess(t, run)
	if !strings.HasPrefix(run.stdout.String(), "wassail ") {
		t.Errorf("version output = %q", run.stdout.String())
	}

	run = execute(t, "", "version", "--full")
	requireSuccess(t, run)
	if !strings.Contains(run.stdout.String(), "Document interface: 1.0") {
		t.Errorf("full version output = %q", run.stdout.String())
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	run := execute(t, "", "dupm")
	if run.err == nil || !strings.Contains(run.err.Error(), `did you mean "dump"`) {
		t.Errorf("error = %v", run.err)
	}
}

func TestSources(t *testing.T) {
	run := execute(t, "", "sources", "--json")
	requireSuccess(t, run)

	var infos []sourceInfo
	if err := json.Unmarshal(run.stdout.Bytes(), &infos); err != nil {
		t.Fatalf("decoding sources: %v\n%s", err, run.stdout.String())
	}
	if len(infos) != len(source.Names()) {
		t.Errorf("listed %d sources, want %d", len(infos), len(source.Names()))
	}
	byName := map[string]sourceInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	if !byName["uname"].Enabled || byName["uname"].Benchmark {
		t.Errorf("uname = %+v", byName["uname"])
	}
	for _, name := range []string{"mpirun", "osu_micro_benchmarks", "stream"} {
		if !byName[name].Benchmark {
			t.Errorf("%s = %+v, want benchmark", name, byName[name])
		}
	}

	run = execute(t, "", "sources")
	requireSuccess(t, run)
	if !strings.HasPrefix(run.stdout.String(), "NAME") || !strings.Contains(run.stdout.String(), "getrlimit") {
		t.Errorf("table output:\n%s", run.stdout.String())
	}
}

func TestDumpJSON(t *testing.T) {
	run := execute(t, "", "dump", "-s", "uname", "-s", "environment")
	requireSuccess(t, run)

	docs, err := document.ParseList(run.stdout.Bytes())
	if err != nil {
		t.Fatalf("parsing dump: %v\n%s", err, run.stdout.String())
	}
	if len(docs) != 2 || docs[0].Name() != "uname" || docs[1].Name() != "environment" {
		t.Fatalf("dumped %d documents: %v", len(docs), docs)
	}
	for _, doc := range docs {
		if !doc.Collected() {
			t.Errorf("%s document has no data", doc.Name())
		}
	}
}

func TestDumpCBORRoundTrip(t *testing.T) {
	for _, compression := range []string{"none", "zstd", "lz4"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "snapshot")
			run := execute(t, "", "dump", "-s", "uname", "--format", "cbor",
				"--compress", compression, "--digest", "-o", path)
			requireSuccess(t, run)
			if !strings.HasSuffix(run.stderr.String(), "  uname\n") {
				t.Errorf("digest line = %q", run.stderr.String())
			}

			evaluated := execute(t, "", "evaluate", "--input", path, "--json")
			requireSuccess(t, evaluated)
			docs, err := document.ParseList(evaluated.stdout.Bytes())
			if err != nil {
				t.Fatalf("parsing evaluate output: %v", err)
			}
			if len(docs) != 1 || docs[0].Name() != "uname" || !docs[0].Collected() {
				t.Errorf("evaluated = %v", docs)
			}
		})
	}
}

func TestDumpDiagnosticNotation(t *testing.T) {
	run := execute(t, "", "dump", "-s", "uname", "-s", "environment", "--format", "diag")
	requireSuccess(t, run)

	lines := strings.Split(strings.TrimSuffix(run.stdout.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("diag printed %d lines, want one per document:\n%s", len(lines), run.stdout.String())
	}
	for i, name := range []string{"uname", "environment"} {
		if !strings.HasPrefix(lines[i], "{") || !strings.Contains(lines[i], `"name": "`+name+`"`) {
			t.Errorf("line %d = %q, want the %s document in diagnostic notation", i, lines[i], name)
		}
	}
}

func TestDumpRejectsUnknownSource(t *testing.T) {
	run := execute(t, "", "dump", "-s", "cpuid")
	requireCategory(t, run.err, cli.CategoryValidation)
	if run.stdout.Len() != 0 {
		t.Errorf("wrote output for a bad source: %q", run.stdout.String())
	}
}

func TestDumpRejectsBadFormat(t *testing.T) {
	run := execute(t, "", "dump", "--format", "xml")
	if run.err == nil || !strings.Contains(run.err.Error(), "must be one of json, cbor, diag") {
		t.Errorf("error = %v", run.err)
	}
}

func TestDumpNamedSourceMustSucceed(t *testing.T) {
	run := execute(t, "", "dump", "-s", "shell_command")
	requireCategory(t, run.err, cli.CategoryInternal)
	if !errors.Is(run.err, source.ErrMissingInput) {
		t.Errorf("error = %v, want ErrMissingInput in the chain", run.err)
	}
	if strings.TrimSpace(run.stdout.String()) != "[]" {
		t.Errorf("stdout = %q, want an empty array", run.stdout.String())
	}
}

func TestEvaluateFromStdin(t *testing.T) {
	input := `// recorded on node01
[
  {
    "name": "shell_command",
    "version": 100,
    "configuration": {"command": "echo evaluated", "timeout": 10},
  },
]`
	run := execute(t, input, "evaluate")
	requireSuccess(t, run)

	lines := strings.Split(strings.TrimSpace(run.stdout.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines:\n%s", len(lines), run.stdout.String())
	}
	doc, err := document.Parse([]byte(lines[0]))
	if err != nil {
		t.Fatalf("parsing line: %v", err)
	}
	stdout, err := document.Get[string](doc, "/data/stdout")
	if err != nil || stdout != "evaluated\n" {
		t.Errorf("stdout = %q, %v", stdout, err)
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   \n"},
		{"unknown source", `{"name": "cpuid", "version": 100}`},
		{"wrong version", `{"name": "uname", "version": 200}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			run := execute(t, test.input, "evaluate")
			requireCategory(t, run.err, cli.CategoryValidation)
		})
	}
}

// writeSuite writes a suite with one shell_command source, probe,
// running command, and the given check entry.
func writeSuite(t *testing.T, command, check string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	content := `
name: commands-test
sources:
  - name: shell_command
    id: probe
    command: ` + command + `
checks:
  - source: probe
` + check
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const expectReady = `    check: misc/shell_output
    output: "ready\n"
`

func TestCheckExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		check    string
		code     int
		contains string
	}{
		{"pass", "echo ready", expectReady, 0, "All checks passed."},
		{"issue", "echo degraded", expectReady, exitIssue, "Some checks found issues."},
		{
			// core_count cannot read a shell_command document.
			"unknown", "echo ready", "    check: cpu/core_count\n    expected: 4\n",
			exitUnknown, "Some checks could not be evaluated.",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			run := execute(t, "", "check", "-c", writeSuite(t, test.command, test.check))
			requireExitCode(t, run.err, test.code)
			if !strings.Contains(run.stdout.String(), test.contains) {
				t.Errorf("output missing %q:\n%s", test.contains, run.stdout.String())
			}
			if !strings.Contains(run.stdout.String(), "commands-test") {
				t.Errorf("output missing suite name:\n%s", run.stdout.String())
			}
		})
	}
}

func TestCheckJSONAndTextfile(t *testing.T) {
	textfile := filepath.Join(t.TempDir(), "wassail.prom")
	t.Setenv(suite.EnvironmentVariable, writeSuite(t, "echo ready", expectReady))

	run := execute(t, "", "check", "--json", "--textfile", textfile)
	requireSuccess(t, run)

	root := result.New()
	if err := json.Unmarshal(run.stdout.Bytes(), root); err != nil {
		t.Fatalf("decoding result: %v\n%s", err, run.stdout.String())
	}
	if root.Brief != "commands-test" || root.Issue != result.No || len(root.Children()) != 1 {
		t.Errorf("root = %q %v with %d children", root.Brief, root.Issue, len(root.Children()))
	}

	gauges, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(gauges), `wassail_result_issue{brief="commands-test"`) {
		t.Errorf("textfile:\n%s", gauges)
	}
}

func TestCheckWithoutConfig(t *testing.T) {
	t.Setenv(suite.EnvironmentVariable, "")
	run := execute(t, "", "check")
	requireCategory(t, run.err, cli.CategoryValidation)
}

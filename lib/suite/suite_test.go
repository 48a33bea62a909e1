// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package suite

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcmill/wassail-sub000/lib/result"
	"github.com/samcmill/wassail-sub000/lib/source"
)

const exampleSuite = `
name: node-health
timeout: 30s
sources:
  - name: sysconf
  - name: shell_command
    id: kernel
    command: uname -r
    timeout: 10
  - name: remote_shell_command
    id: fleet
    command: hostname
    hosts: [node1, "node2:2222"]
    port: 2200
    user: ${WASSAIL_TEST_USER}
  - name: stat
    path: ${WASSAIL_TEST_ROOT:-/etc}/shadow
  - name: mpirun
    program: osu_hello
    num_procs: 4
    mpi_impl: mpich
    allow_run_as_root: false
checks:
  - check: cpu/core_count
    source: sysconf
    expected: 64
  - check: misc/shell_output
    source: kernel
    output: "^6\\."
    regex: true
  - check: file/permissions
    source: stat
    mode: "0640"
  - check: compare
    source: sysconf
    pointer: /data/page_size
    operator: eq
    reference: 4096
`

func TestParse(t *testing.T) {
	t.Setenv("WASSAIL_TEST_USER", "operator")
	t.Setenv("WASSAIL_TEST_ROOT", "")

	s, err := Parse([]byte(exampleSuite))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "node-health" || s.Timeout != "30s" {
		t.Errorf("name/timeout = %q/%q", s.Name, s.Timeout)
	}
	if len(s.Sources) != 5 || len(s.Checks) != 4 {
		t.Fatalf("sources/checks = %d/%d", len(s.Sources), len(s.Checks))
	}

	kernel := s.Sources[1]
	if kernel.Key() != "kernel" || kernel.Command != "uname -r" || kernel.Timeout != 10 {
		t.Errorf("kernel source = %+v", kernel)
	}
	if s.Sources[0].Key() != "sysconf" {
		t.Errorf("default key = %q", s.Sources[0].Key())
	}
	fleet := s.Sources[2]
	if fleet.User != "operator" || fleet.Port != 2200 || len(fleet.Hosts) != 2 || fleet.Hosts[1] != "node2:2222" {
		t.Errorf("fleet source = %+v", fleet)
	}
	if path := s.Sources[3].Path; path != "/etc/shadow" {
		t.Errorf("stat path = %q, want the default expansion", path)
	}
	mpirun := s.Sources[4]
	if mpirun.MPIImplementation != "mpich" || mpirun.AllowRunAsRoot == nil || *mpirun.AllowRunAsRoot {
		t.Errorf("mpirun source = %+v", mpirun)
	}

	shell := s.Checks[1]
	if shell.Check != "misc/shell_output" || shell.Source != "kernel" || shell.Output != `^6\.` || !shell.Regex {
		t.Errorf("shell check = %+v", shell)
	}
	if s.Checks[2].Mode != "0640" {
		t.Errorf("mode = %q", s.Checks[2].Mode)
	}
	if reference, ok := s.Checks[3].Reference.(int); !ok || reference != 4096 {
		t.Errorf("reference = %#v", s.Checks[3].Reference)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("WASSAIL_TEST_SET", "value")
	t.Setenv("WASSAIL_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"${WASSAIL_TEST_SET}", "value"},
		{"a-${WASSAIL_TEST_SET}-b", "a-value-b"},
		{"${WASSAIL_TEST_EMPTY:-fallback}", "fallback"},
		{"${WASSAIL_TEST_UNSET_VARIABLE}", ""},
		{"${WASSAIL_TEST_SET:-fallback}", "value"},
		{"$HOME stays", "$HOME stays"},
	}
	for _, test := range tests {
		if got := expandVars(test.input); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`
timeout: soon
sources:
  - name: sysconf
  - name: sysconf
  - name: shell_command
  - name: remote_shell_command
    command: hostname
  - name: gpu_temperature
  - name: osu_micro_benchmarks
    benchmark: osu_barrier
    mpi_impl: lam
checks:
  - check: cpu/core_count
    source: missing
    expected: 4
  - check: disk/amount_free
    source: sysconf
`))
	if err == nil {
		t.Fatal("Parse accepted an invalid suite")
	}
	for _, want := range []string{
		"name is required",
		`timeout "soon"`,
		`duplicate source id "sysconf"`,
		"command is required",
		"hosts are required",
		`unknown collector "gpu_temperature"`,
		`no source with id "missing"`,
		"filesystem is required",
		`unknown benchmark "osu_barrier"`,
		`unknown mpi_impl "lam"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q:\n%v", want, err)
		}
	}
}

func TestBuildOSUSource(t *testing.T) {
	src, err := buildSource(SourceConfig{
		Name:      "osu_micro_benchmarks",
		Benchmark: "osu_bw",
		Hostfile:  "hosts",
		PerNode:   1,
	}, nil)
	if err != nil {
		t.Fatalf("buildSource: %v", err)
	}
	osu, ok := src.(*source.OSUMicroBenchmarks)
	if !ok {
		t.Fatalf("built %T", src)
	}
	config := osu.Config
	if config.Benchmark != source.OSUBandwidth || config.NumProcs != 2 || config.Hostfile != "hosts" {
		t.Errorf("config = %+v", config)
	}
	if want := source.DefaultOSUDirectory + "/mpi/pt2pt/osu_bw"; config.Program != want {
		t.Errorf("program = %q, want %q", config.Program, want)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded without WASSAIL_CONFIG")
	}
	if !strings.HasPrefix(err.Error(), "WASSAIL_CONFIG environment variable not set") {
		t.Errorf("error = %q", err)
	}
}

func TestLoadFromEnvironmentVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	content := "name: minimal\nsources:\n  - name: uname\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing suite: %v", err)
	}
	t.Setenv(EnvironmentVariable, path)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "minimal" || len(s.Sources) != 1 {
		t.Errorf("suite = %+v", s)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Errorf("LoadFile(absent) = %v, want not-exist", err)
	}
}

func TestRun(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	s, err := Parse([]byte(`
name: smoke
timeout: 1m
sources:
  - name: shell_command
    id: greeting
    command: echo hello
  - name: shell_command
    id: farewell
    command: echo goodbye
  - name: stat
    path: ` + missing + `
checks:
  - check: misc/shell_output
    source: greeting
    output: "hello\n"
  - check: misc/shell_output
    source: farewell
    output: "hello\n"
  - check: cpu/core_count
    source: greeting
    expected: 4
  - check: file/permissions
    source: stat
    mode: "0600"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root, err := s.Run(context.Background(), logger)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if root.Brief != "smoke" {
		t.Errorf("root brief = %q", root.Brief)
	}
	children := root.Children()
	if len(children) != 4 {
		t.Fatalf("children = %d, want 4", len(children))
	}

	want := []struct {
		issue    result.Issue
		priority result.Priority
	}{
		{result.No, result.Info},
		{result.Yes, result.Warning},
		{result.Maybe, result.Error},
		{result.Maybe, result.Error},
	}
	for i, child := range children {
		if child.Issue != want[i].issue || child.Priority != want[i].priority {
			t.Errorf("child %d (%s) = %v/%v, want %v/%v: %s",
				i, child.Brief, child.Issue, child.Priority, want[i].issue, want[i].priority, child.Detail)
		}
	}
	if !strings.Contains(children[3].Detail, "absent") {
		t.Errorf("source failure detail = %q", children[3].Detail)
	}
	if root.Issue != result.Yes || root.Priority != result.Error {
		t.Errorf("root = %v/%v, want yes/error", root.Issue, root.Priority)
	}
}

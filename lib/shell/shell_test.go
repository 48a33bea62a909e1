// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samcmill/wassail-sub000/lib/clock"
	"github.com/samcmill/wassail-sub000/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, command string, timeout time.Duration) Execution {
	t.Helper()
	execution, err := Run(context.Background(), Request{Command: command, Timeout: timeout}, discardLogger())
	if err != nil {
		t.Fatalf("Run(%q): %v", command, err)
	}
	return execution
}

func TestRunCapturesStdout(t *testing.T) {
	t.Parallel()
	execution := run(t, "echo ok", 5*time.Second)
	if execution.Stdout != "ok\n" {
		t.Errorf("Stdout = %q, want %q", execution.Stdout, "ok\n")
	}
	if execution.Stderr != "" {
		t.Errorf("Stderr = %q, want empty", execution.Stderr)
	}
	if execution.ReturnCode != 0 {
		t.Errorf("ReturnCode = %d, want 0", execution.ReturnCode)
	}
	if execution.TimedOut {
		t.Error("TimedOut set for a command that finished")
	}
	if execution.Command != "echo ok" {
		t.Errorf("Command = %q", execution.Command)
	}
	if execution.Elapsed <= 0 || execution.Elapsed > 5 {
		t.Errorf("Elapsed = %v, want within (0, 5]", execution.Elapsed)
	}
}

func TestRunCapturesStderrSeparately(t *testing.T) {
	t.Parallel()
	execution := run(t, "echo out; echo err >&2", 5*time.Second)
	if execution.Stdout != "out\n" {
		t.Errorf("Stdout = %q", execution.Stdout)
	}
	if execution.Stderr != "err\n" {
		t.Errorf("Stderr = %q", execution.Stderr)
	}
}

func TestRunReturnCode(t *testing.T) {
	t.Parallel()
	execution := run(t, "exit 3", 5*time.Second)
	if execution.ReturnCode != 3 {
		t.Errorf("ReturnCode = %d, want 3", execution.ReturnCode)
	}
}

func TestRunMissingProgram(t *testing.T) {
	t.Parallel()
	execution := run(t, "/bogus/path/to/nothing", 5*time.Second)
	if execution.ReturnCode != 127 {
		t.Errorf("ReturnCode = %d, want 127", execution.ReturnCode)
	}
	if execution.Stderr == "" {
		t.Error("expected the shell to report the missing program on stderr")
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()
	execution := run(t, "echo foo && sleep 5 && echo bar", time.Second)
	if execution.Stdout != "foo\n" {
		t.Errorf("Stdout = %q, want %q", execution.Stdout, "foo\n")
	}
	if execution.ReturnCode != SentinelReturnCode {
		t.Errorf("ReturnCode = %d, want %d", execution.ReturnCode, SentinelReturnCode)
	}
	if !execution.TimedOut {
		t.Error("TimedOut not set")
	}
	if execution.Abandoned {
		t.Error("Abandoned set for a process that honours SIGTERM")
	}
	if execution.Elapsed < 1 || execution.Elapsed > 3 {
		t.Errorf("Elapsed = %v, want about 1s", execution.Elapsed)
	}
}

func TestRunEscalatesToKill(t *testing.T) {
	t.Parallel()
	request := Request{
		Command:     "trap '' TERM; echo armed; sleep 10",
		Timeout:     500 * time.Millisecond,
		GracePeriod: 200 * time.Millisecond,
	}
	started := time.Now()
	execution, err := Run(context.Background(), request, discardLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !execution.TimedOut {
		t.Error("TimedOut not set")
	}
	if execution.Abandoned {
		t.Error("Abandoned set although SIGKILL cannot be ignored")
	}
	if execution.ReturnCode != SentinelReturnCode {
		t.Errorf("ReturnCode = %d, want %d", execution.ReturnCode, SentinelReturnCode)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Errorf("Run took %v, escalation did not happen", elapsed)
	}
}

func TestRunGracePeriodFollowsClock(t *testing.T) {
	t.Parallel()
	armed := filepath.Join(t.TempDir(), "armed")
	fake := clock.Fake(time.Unix(1700000000, 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	request := Request{
		Command:     "trap '' TERM; touch " + armed + "; sleep 30",
		Timeout:     time.Hour,
		GracePeriod: time.Hour,
		Clock:       fake,
	}
	done := make(chan Execution, 1)
	go func() {
		execution, err := Run(ctx, request, discardLogger())
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		done <- execution
	}()

	for deadline := time.Now().Add(5 * time.Second); ; time.Sleep(10 * time.Millisecond) {
		if _, err := os.Stat(armed); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("command never installed its SIGTERM trap")
		}
	}
	cancel()

	// SIGTERM is ignored, so Run sits in the first grace period until
	// the clock moves.
	fake.WaitForTimers(1)
	testutil.RequireQuiet(t, done, 200*time.Millisecond, "Run returned before the grace period elapsed")
	fake.Advance(time.Hour)

	execution := testutil.RequireReceive(t, done, 5*time.Second, "Run after SIGKILL")
	if !execution.TimedOut || execution.Abandoned {
		t.Errorf("TimedOut/Abandoned = %v/%v, want true/false", execution.TimedOut, execution.Abandoned)
	}
	if execution.ReturnCode != SentinelReturnCode {
		t.Errorf("ReturnCode = %d, want %d", execution.ReturnCode, SentinelReturnCode)
	}
	if execution.Elapsed != 0 {
		t.Errorf("Elapsed = %v, want the fake clock's zero", execution.Elapsed)
	}
}

func TestRunLargeOutput(t *testing.T) {
	t.Parallel()
	// 16400 bytes spans several reads and overflows a default pipe
	// buffer on some platforms.
	execution := run(t, "head -c 16400 /dev/zero | tr '\\0' x", 10*time.Second)
	if len(execution.Stdout) != 16400 {
		t.Errorf("len(Stdout) = %d, want 16400", len(execution.Stdout))
	}
	if strings.Trim(execution.Stdout, "x") != "" {
		t.Error("Stdout contains unexpected bytes")
	}
	if execution.ReturnCode != 0 {
		t.Errorf("ReturnCode = %d, want 0", execution.ReturnCode)
	}
}

func TestRunOutputBeforeExitIsKept(t *testing.T) {
	t.Parallel()
	execution := run(t, "printf partial; exit 1", 5*time.Second)
	if execution.Stdout != "partial" {
		t.Errorf("Stdout = %q, want %q", execution.Stdout, "partial")
	}
	if execution.ReturnCode != 1 {
		t.Errorf("ReturnCode = %d, want 1", execution.ReturnCode)
	}
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	t.Parallel()
	for _, command := range []string{"", "   "} {
		execution, err := Run(context.Background(), Request{Command: command, Timeout: time.Second}, nil)
		if !errors.Is(err, ErrMissingCommand) {
			t.Errorf("Run(%q) error = %v, want ErrMissingCommand", command, err)
		}
		if execution.ReturnCode != SentinelReturnCode {
			t.Errorf("Run(%q) ReturnCode = %d, want sentinel", command, execution.ReturnCode)
		}
	}
}

func TestRunRejectsInvalidTimeout(t *testing.T) {
	t.Parallel()
	_, err := Run(context.Background(), Request{Command: "true"}, nil)
	if !errors.Is(err, ErrInvalidTimeout) {
		t.Errorf("error = %v, want ErrInvalidTimeout", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	started := time.Now()
	execution, err := Run(ctx, Request{Command: "sleep 10", Timeout: 30 * time.Second}, discardLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !execution.TimedOut {
		t.Error("TimedOut not set after cancellation")
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Errorf("Run took %v after cancellation", elapsed)
	}
}

func TestRunKillsWholeProcessGroup(t *testing.T) {
	t.Parallel()
	// The background sleep inherits stdout. If it survived the
	// timeout, Run would not have returned until it exited.
	started := time.Now()
	execution := run(t, "sleep 20 & sleep 20", 500*time.Millisecond)
	if !execution.TimedOut {
		t.Error("TimedOut not set")
	}
	if elapsed := time.Since(started); elapsed > 10*time.Second {
		t.Errorf("Run took %v", elapsed)
	}
}

func TestExecutionJSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Execution{Command: "true", Elapsed: 0.5, ReturnCode: 0, Stdout: "a", Stderr: "b"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"command", "elapsed", "returncode", "stdout", "stderr", "timed_out"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, data)
		}
	}
	if _, ok := fields["abandoned"]; ok {
		t.Errorf("abandoned should be omitted when false: %s", data)
	}
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/samcmill/wassail-sub000/lib/clock"
)

// SentinelReturnCode is the return code of a command that did not exit
// normally: it timed out, was killed by a signal, or was never reaped.
const SentinelReturnCode = 255

// DefaultGracePeriod is how long a process group gets to exit after
// SIGTERM, and again after SIGKILL, before escalating or giving up.
const DefaultGracePeriod = 2 * time.Second

const (
	// pollInterval bounds a single poll so cancellation is noticed.
	pollInterval = 100 * time.Millisecond

	// readSize is the most read from one pipe per wakeup.
	readSize = 4096
)

var (
	// ErrMissingCommand is returned before anything is spawned when
	// the command is empty.
	ErrMissingCommand = errors.New("shell: missing command")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("shell: timeout must be positive")
)

// Request describes one command execution.
type Request struct {
	// Command is passed to "/bin/sh -c".
	Command string

	// Timeout is the hard wall-clock limit, measured from spawn.
	Timeout time.Duration

	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration

	// Clock measures the deadline, the grace periods and elapsed
	// time. Defaults to the wall clock.
	Clock clock.Clock
}

// Execution is the outcome of a command. Its JSON form is the "data"
// payload of command-based documents.
type Execution struct {
	Command    string  `json:"command"`
	Elapsed    float64 `json:"elapsed"`
	ReturnCode int     `json:"returncode"`
	Stdout     string  `json:"stdout"`
	Stderr     string  `json:"stderr"`

	// TimedOut is set when the deadline, a cancelled context, or a
	// pipe failure ended the run and the process group was signalled.
	TimedOut bool `json:"timed_out"`

	// Abandoned is set when the process group survived SIGKILL for a
	// full grace period and was left behind.
	Abandoned bool `json:"abandoned,omitempty"`
}

// NewExecution returns the Execution of a command that has not run.
func NewExecution(command string) Execution {
	return Execution{Command: command, ReturnCode: SentinelReturnCode}
}

// Run executes request and returns what the command produced. See the
// package documentation for the termination policy.
func Run(ctx context.Context, request Request, logger *slog.Logger) (Execution, error) {
	if logger == nil {
		logger = slog.Default()
	}
	execution := NewExecution(request.Command)

	if strings.TrimSpace(request.Command) == "" {
		return execution, ErrMissingCommand
	}
	if request.Timeout <= 0 {
		return execution, ErrInvalidTimeout
	}
	grace := request.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	clk := request.Clock
	if clk == nil {
		clk = clock.Real()
	}

	stdout, err := newPipe("stdout")
	if err != nil {
		return execution, err
	}
	defer stdout.closeRead()
	stderr, err := newPipe("stderr")
	if err != nil {
		stdout.closeWrite()
		return execution, err
	}
	defer stderr.closeRead()

	cmd := exec.Command("/bin/sh", "-c", request.Command)
	cmd.Stdout = stdout.writer
	cmd.Stderr = stderr.writer
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := clk.Now()
	startErr := cmd.Start()

	// The child holds its own copies of the write ends. Closing ours
	// is what lets the read ends reach EOF when the child exits.
	stdout.closeWrite()
	stderr.closeWrite()

	if startErr != nil {
		return execution, fmt.Errorf("starting %q: %w", request.Command, startErr)
	}

	logger = logger.With("command", request.Command, "pid", cmd.Process.Pid)
	logger.Debug("command started", "timeout", request.Timeout)

	outcome := collect(ctx, clk, start, request.Timeout, []*pipe{stdout, stderr}, logger)
	execution.Stdout = stdout.buffer.String()
	execution.Stderr = stderr.buffer.String()

	reaped := make(chan error, 1)
	go func() { reaped <- cmd.Wait() }()

	// Both pipes closing does not mean the shell exited: it may have
	// closed its descriptors and kept running. The deadline still holds.
	if outcome == outcomeFinished {
		outcome = awaitExit(ctx, clk, start, request.Timeout, reaped, &execution)
	}
	execution.Elapsed = clk.Since(start).Seconds()

	if outcome != outcomeFinished {
		execution.TimedOut = true
		logger.Warn("terminating command", "reason", outcome.String(), "elapsed", execution.Elapsed)
		if !terminate(clk, cmd.Process.Pid, reaped, grace, logger) {
			execution.Abandoned = true
		}
		return execution, nil
	}

	logger.Debug("command finished", "returncode", execution.ReturnCode, "elapsed", execution.Elapsed)
	return execution, nil
}

// awaitExit waits for the reaped child within the remaining deadline
// and records its return code.
func awaitExit(ctx context.Context, clk clock.Clock, start time.Time, timeout time.Duration, reaped <-chan error, execution *Execution) outcome {
	deadline := clk.After(max(timeout-clk.Since(start), 0))
	select {
	case err := <-reaped:
		if code, ok := exitCode(err); ok {
			execution.ReturnCode = code
		}
		return outcomeFinished
	case <-deadline:
		return outcomeDeadline
	case <-ctx.Done():
		return outcomeCancelled
	}
}

// exitCode maps the result of Wait to a return code. ok is false when
// the process did not exit normally.
func exitCode(waitErr error) (int, bool) {
	if waitErr == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if status, isWait := exitErr.Sys().(syscall.WaitStatus); isWait && status.Exited() {
			return status.ExitStatus(), true
		}
	}
	return SentinelReturnCode, false
}

type outcome int

const (
	outcomeFinished outcome = iota
	outcomeDeadline
	outcomeCancelled
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeFinished:
		return "finished"
	case outcomeDeadline:
		return "deadline exceeded"
	case outcomeCancelled:
		return "context cancelled"
	case outcomeFailed:
		return "pipe failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// pipe is one output stream of the child: the parent's raw read end,
// the write end handed to the child, and the accumulated bytes.
type pipe struct {
	name   string
	fd     int
	open   bool
	writer *os.File
	buffer bytes.Buffer
}

func newPipe(name string) (*pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("creating %s pipe: %w", name, err)
	}
	return &pipe{
		name:   name,
		fd:     fds[0],
		open:   true,
		writer: os.NewFile(uintptr(fds[1]), name),
	}, nil
}

func (p *pipe) closeWrite() {
	if p.writer != nil {
		p.writer.Close()
		p.writer = nil
	}
}

func (p *pipe) closeRead() {
	if p.fd >= 0 {
		unix.Close(p.fd)
		p.fd = -1
	}
}

// read performs one read. It returns false once the pipe reached EOF.
func (p *pipe) read(chunk []byte) (bool, error) {
	for {
		n, err := unix.Read(p.fd, chunk)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("reading %s: %w", p.name, err)
		}
		if n == 0 {
			return false, nil
		}
		p.buffer.Write(chunk[:n])
		return true, nil
	}
}

// drain reads until EOF. Only called after the peer hung up, so reads
// never block for long.
func (p *pipe) drain(chunk []byte) error {
	for {
		more, err := p.read(chunk)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// collect runs the poll loop until both pipes reach EOF, the deadline
// passes, ctx is cancelled, or a pipe fails.
func collect(ctx context.Context, clk clock.Clock, start time.Time, timeout time.Duration, pipes []*pipe, logger *slog.Logger) outcome {
	chunk := make([]byte, readSize)
	descriptors := make([]unix.PollFd, 0, len(pipes))
	polled := make([]*pipe, 0, len(pipes))

	for {
		descriptors = descriptors[:0]
		polled = polled[:0]
		for _, p := range pipes {
			if p.open {
				descriptors = append(descriptors, unix.PollFd{Fd: int32(p.fd), Events: unix.POLLIN})
				polled = append(polled, p)
			}
		}
		if len(descriptors) == 0 {
			return outcomeFinished
		}

		remaining := max(timeout-clk.Since(start), 0)
		if remaining == 0 {
			return outcomeDeadline
		}
		if ctx.Err() != nil {
			return outcomeCancelled
		}

		wait := min(remaining, pollInterval)
		milliseconds := int((wait + time.Millisecond - 1) / time.Millisecond)
		ready, err := unix.Poll(descriptors, milliseconds)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			logger.Error("polling command output failed", "error", err)
			return outcomeFailed
		}
		if ready == 0 {
			continue
		}

		for i, descriptor := range descriptors {
			p := polled[i]
			switch {
			case descriptor.Revents&unix.POLLHUP != 0:
				if err := p.drain(chunk); err != nil {
					logger.Error("draining command output failed", "stream", p.name, "error", err)
					return outcomeFailed
				}
				p.open = false
			case descriptor.Revents&unix.POLLIN != 0:
				more, err := p.read(chunk)
				if err != nil {
					logger.Error("reading command output failed", "stream", p.name, "error", err)
					return outcomeFailed
				}
				p.open = more
			case descriptor.Revents&(unix.POLLERR|unix.POLLNVAL) != 0:
				logger.Error("command output pipe failed", "stream", p.name, "revents", descriptor.Revents)
				return outcomeFailed
			}
		}
	}
}

// terminate signals process group: SIGTERM, then SIGKILL if it is
// still running after grace. It reports whether the child was reaped.
func terminate(clk clock.Clock, group int, reaped <-chan error, grace time.Duration, logger *slog.Logger) bool {
	if err := unix.Kill(-group, unix.SIGTERM); err != nil && err != unix.ESRCH {
		logger.Warn("sending SIGTERM to process group failed", "pgid", group, "error", err)
	}
	select {
	case <-reaped:
		return true
	case <-clk.After(grace):
	}

	logger.Warn("process group ignored SIGTERM, sending SIGKILL", "pgid", group, "grace", grace)
	if err := unix.Kill(-group, unix.SIGKILL); err != nil && err != unix.ESRCH {
		logger.Error("sending SIGKILL to process group failed, processes may be left behind",
			"pgid", group, "error", err)
	}
	select {
	case <-reaped:
		return true
	case <-clk.After(grace):
		logger.Error("process group did not exit after SIGKILL, abandoning it", "pgid", group)
		return false
	}
}

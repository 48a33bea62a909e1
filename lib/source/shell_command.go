// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/shell"
)

// DefaultCommandTimeout applies to shell collectors that do not set
// one.
const DefaultCommandTimeout = 60 * time.Second

// commandConfiguration is the "configuration" payload of
// shell_command.
type commandConfiguration struct {
	Command   string `json:"command"`
	Exclusive bool   `json:"exclusive"`
	Timeout   int64  `json:"timeout"`
}

// ShellCommand runs an arbitrary command through the local shell.
type ShellCommand struct {
	common

	// Command is passed to /bin/sh -c.
	Command string

	// Timeout is the wall-clock limit. It is written to documents in
	// whole seconds, rounded up.
	Timeout time.Duration

	// Exclusive holds the execution gate exclusively while the command
	// runs.
	Exclusive bool

	execution shell.Execution
}

// NewShellCommand returns a shell_command collector.
func NewShellCommand(command string, timeout time.Duration, opts ...Option) *ShellCommand {
	s := &ShellCommand{Command: command, Timeout: timeout, execution: shell.NewExecution(command)}
	s.init("shell_command", true, opts)
	return s
}

// Execution returns the collected result.
func (s *ShellCommand) Execution() shell.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.execution
}

func (s *ShellCommand) Evaluate(ctx context.Context, force bool) error {
	return s.evaluate(ctx, force, s.Exclusive, func(ctx context.Context) error {
		execution, err := runCommand(ctx, &s.common, s.Command, s.Timeout)
		if err != nil {
			return err
		}
		s.execution = execution
		return nil
	})
}

func (s *ShellCommand) ToDocument() (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configuration := commandConfiguration{
		Command:   s.Command,
		Exclusive: s.Exclusive,
		Timeout:   toSeconds(s.Timeout),
	}
	return encode(&s.common, &configuration, &s.execution)
}

func (s *ShellCommand) FromDocument(doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	configuration := commandConfiguration{Timeout: toSeconds(DefaultCommandTimeout)}
	execution := shell.NewExecution("")
	if err := decode(&s.common, doc, &configuration, &execution); err != nil {
		return err
	}
	s.Command = configuration.Command
	s.Exclusive = configuration.Exclusive
	s.Timeout = time.Duration(configuration.Timeout) * time.Second
	s.execution = execution
	return nil
}

// runCommand validates and runs one local command for a shell-based
// collector.
func runCommand(ctx context.Context, c *common, command string, timeout time.Duration) (shell.Execution, error) {
	if strings.TrimSpace(command) == "" {
		return shell.NewExecution(command), fmt.Errorf("%w: command", ErrMissingInput)
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return shell.Run(ctx, shell.Request{Command: command, Timeout: timeout, Clock: c.clock}, c.logger)
}

// toSeconds converts a timeout to whole seconds, rounding up.
func toSeconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/shell"
)

// builtinCommand is the shared part of collectors that run a command
// chosen by the collector rather than the user.
type builtinCommand struct {
	common
	command   string
	timeout   time.Duration
	exclusive bool
	execution shell.Execution
}

func (b *builtinCommand) init(name, command string, timeout time.Duration, exclusive bool, opts []Option) {
	b.common.init(name, true, opts)
	b.command = command
	b.timeout = timeout
	b.exclusive = exclusive
	b.execution = shell.NewExecution(command)
}

// Command returns the command line the collector runs.
func (b *builtinCommand) Command() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.command
}

// Execution returns the collected result.
func (b *builtinCommand) Execution() shell.Execution {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.execution
}

func (b *builtinCommand) Evaluate(ctx context.Context, force bool) error {
	return b.evaluate(ctx, force, b.exclusive, func(ctx context.Context) error {
		execution, err := runCommand(ctx, &b.common, b.command, b.timeout)
		if err != nil {
			return err
		}
		b.execution = execution
		return nil
	})
}

// PSCommand is the process listing run by the ps collector.
const PSCommand = "ps -eo user,pid,pcpu,pmem,vsz,rss,tt,state,start,time,command"

// Process is one row of the process listing.
type Process struct {
	User    string  `json:"user"`
	PID     int     `json:"pid"`
	PCPU    float64 `json:"pcpu"`
	PMEM    float64 `json:"pmem"`
	VSZ     int64   `json:"vsz"`
	RSS     int64   `json:"rss"`
	TT      string  `json:"tt"`
	State   string  `json:"state"`
	Start   string  `json:"start"`
	Time    string  `json:"time"`
	Command string  `json:"command"`
}

var processPattern = regexp.MustCompile(
	`(\S+)\s+(\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.*?)\s+(\d+:\d+[:.]\d+)\s+(.*?)\n`)

// parseProcesses extracts process rows from ps output. The header row
// and anything else that does not look like a process is skipped.
func parseProcesses(output string) []Process {
	processes := []Process{}
	for _, match := range processPattern.FindAllStringSubmatch(output, -1) {
		pid, _ := strconv.Atoi(match[2])
		pcpu, _ := strconv.ParseFloat(match[3], 64)
		pmem, _ := strconv.ParseFloat(match[4], 64)
		vsz, _ := strconv.ParseInt(match[5], 10, 64)
		rss, _ := strconv.ParseInt(match[6], 10, 64)
		processes = append(processes, Process{
			User:    match[1],
			PID:     pid,
			PCPU:    pcpu,
			PMEM:    pmem,
			VSZ:     vsz,
			RSS:     rss,
			TT:      match[7],
			State:   match[8],
			Start:   match[9],
			Time:    match[10],
			Command: match[11],
		})
	}
	return processes
}

type psData struct {
	shell.Execution
	Processes []Process `json:"processes"`
}

// PS lists running processes. It runs exclusively so that it does not
// observe other collectors' commands.
type PS struct {
	builtinCommand
}

// NewPS returns a ps collector.
func NewPS(opts ...Option) *PS {
	p := &PS{}
	p.init("ps", PSCommand, time.Second, true, opts)
	return p
}

func (p *PS) ToDocument() (document.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data := psData{Execution: p.execution, Processes: parseProcesses(p.execution.Stdout)}
	return encode[struct{}](&p.common, nil, &data)
}

func (p *PS) FromDocument(doc document.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data := psData{Execution: shell.NewExecution(p.command)}
	if err := decode[struct{}](&p.common, doc, nil, &data); err != nil {
		return err
	}
	p.execution = data.Execution
	return nil
}

// DefaultStreamProgram is the STREAM memory bandwidth benchmark
// installed alongside wassail.
const DefaultStreamProgram = "/usr/libexec/wassail/stream"

var streamPattern = regexp.MustCompile(
	`Copy:\s+(\d+\.\d+).*?\nScale:\s+(\d+\.\d+).*?\nAdd:\s+(\d+\.\d+).*?\nTriad:\s+(\d+\.\d+).*?\n`)

// Bandwidth is the best rate of each STREAM kernel, in MB/s.
type Bandwidth struct {
	Copy  float64 `json:"copy,omitempty"`
	Scale float64 `json:"scale,omitempty"`
	Add   float64 `json:"add,omitempty"`
	Triad float64 `json:"triad,omitempty"`
}

// parseBandwidth reads the last result table in STREAM output.
func parseBandwidth(output string) Bandwidth {
	matches := streamPattern.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return Bandwidth{}
	}
	last := matches[len(matches)-1]
	rate := func(text string) float64 {
		value, _ := strconv.ParseFloat(text, 64)
		return value
	}
	return Bandwidth{Copy: rate(last[1]), Scale: rate(last[2]), Add: rate(last[3]), Triad: rate(last[4])}
}

type streamData struct {
	shell.Execution
	Bandwidth
}

// Stream runs the STREAM benchmark. It runs exclusively so that other
// collectors do not disturb the measurement.
type Stream struct {
	builtinCommand
}

// NewStream returns a stream collector running program, or
// DefaultStreamProgram when program is empty.
func NewStream(program string, opts ...Option) *Stream {
	if program == "" {
		program = DefaultStreamProgram
	}
	s := &Stream{}
	s.init("stream", program, 5*time.Second, true, opts)
	return s
}

// Bandwidth returns the measured rates.
func (s *Stream) Bandwidth() Bandwidth {
	return parseBandwidth(s.Execution().Stdout)
}

func (s *Stream) ToDocument() (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := streamData{Execution: s.execution, Bandwidth: parseBandwidth(s.execution.Stdout)}
	return encode[struct{}](&s.common, nil, &data)
}

func (s *Stream) FromDocument(doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := streamData{Execution: shell.NewExecution(s.command)}
	if err := decode[struct{}](&s.common, doc, nil, &data); err != nil {
		return err
	}
	if data.Command != "" {
		s.command = data.Command
	}
	s.execution = data.Execution
	return nil
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samcmill/wassail-sub000/lib/shell"
)

// DefaultPort is the SSH port used when a target does not name one.
const DefaultPort = 22

var (
	// ErrNoHosts is returned when RunAll is given no targets.
	ErrNoHosts = errors.New("remote: empty host list")

	// ErrMissingCommand is returned when RunAll is given an empty
	// command.
	ErrMissingCommand = errors.New("remote: missing command")
)

// Target is one remote host.
type Target struct {
	Host string
	Port int
}

// ParseTarget parses "host" or "host:port". IPv6 literals with a port
// use the bracketed form "[::1]:2222".
func ParseTarget(spec string, defaultPort int) (Target, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Target{}, errors.New("remote: empty host")
	}
	host, portText, err := net.SplitHostPort(spec)
	if err != nil {
		// No port, or a bare IPv6 literal.
		return Target{Host: strings.Trim(spec, "[]"), Port: defaultPort}, nil
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return Target{}, fmt.Errorf("remote: invalid port in %q", spec)
	}
	if host == "" {
		return Target{}, fmt.Errorf("remote: missing host in %q", spec)
	}
	return Target{Host: host, Port: port}, nil
}

// ParseTargets parses each host with ParseTarget.
func ParseTargets(hosts []string, defaultPort int) ([]Target, error) {
	targets := make([]Target, 0, len(hosts))
	var errs []error
	for _, host := range hosts {
		target, err := ParseTarget(host, defaultPort)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		targets = append(targets, target)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return targets, nil
}

// Address returns the dialable "host:port" form.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	if t.Port == DefaultPort {
		return t.Host
	}
	return t.Address()
}

// Record is the outcome of the command on one host.
type Record struct {
	Hostname  string          `json:"hostname"`
	Timestamp int64           `json:"timestamp"`
	UID       uint32          `json:"uid"`
	Data      shell.Execution `json:"data"`
}

// Transport runs commands on remote hosts.
//
// Open and Close bracket a batch of Run calls. Implementations count
// references so nested batches are allowed. Run is safe for concurrent
// use between Open and Close, and reports every failure inside the
// returned Execution.
type Transport interface {
	Open(ctx context.Context) error
	Close() error
	Run(ctx context.Context, target Target, command string, timeout time.Duration) shell.Execution
}

// RunAll runs command on every target concurrently and calls emit once
// per target, in completion order. emit is never called concurrently.
// The returned error covers only configuration and transport setup;
// per-host failures are records.
func RunAll(ctx context.Context, transport Transport, targets []Target, command string, timeout time.Duration, emit func(Record), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(targets) == 0 {
		return ErrNoHosts
	}
	if strings.TrimSpace(command) == "" {
		return ErrMissingCommand
	}
	if timeout <= 0 {
		return shell.ErrInvalidTimeout
	}

	if err := transport.Open(ctx); err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logger.Warn("closing remote transport failed", "error", err)
		}
	}()

	uid := uint32(os.Getuid())
	var emitMu sync.Mutex
	var group errgroup.Group
	for _, target := range targets {
		group.Go(func() error {
			started := time.Now()
			execution := transport.Run(ctx, target, command, timeout)
			if execution.ReturnCode == shell.SentinelReturnCode {
				logger.Warn("remote command did not complete",
					"host", target.String(),
					"timed_out", execution.TimedOut,
					"stderr", execution.Stderr)
			} else {
				logger.Debug("remote command finished",
					"host", target.String(),
					"returncode", execution.ReturnCode,
					"elapsed", execution.Elapsed)
			}

			emitMu.Lock()
			defer emitMu.Unlock()
			emit(Record{
				Hostname:  target.Host,
				Timestamp: started.Unix(),
				// The remote uid is assumed to match the local one.
				UID:  uid,
				Data: execution,
			})
			return nil
		})
	}
	return group.Wait()
}

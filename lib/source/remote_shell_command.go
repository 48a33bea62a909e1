// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/remote"
)

type remoteConfiguration struct {
	Command string   `json:"command"`
	Hosts   []string `json:"hosts"`
	Port    int      `json:"port"`
	Timeout int64    `json:"timeout"`
	User    string   `json:"user,omitempty"`
}

// RemoteShellCommand runs one command on many hosts over SSH. Its data
// is one record per host in the order the hosts finished.
type RemoteShellCommand struct {
	common

	Command string

	// Hosts are "host" or "host:port". Port applies to hosts without
	// one.
	Hosts []string
	Port  int

	Timeout time.Duration

	// User to log in as. Defaults to the current user.
	User string

	records []remote.Record
}

// NewRemoteShellCommand returns a remote_shell_command collector.
func NewRemoteShellCommand(hosts []string, command string, timeout time.Duration, opts ...Option) *RemoteShellCommand {
	r := &RemoteShellCommand{
		Command: command,
		Hosts:   hosts,
		Port:    remote.DefaultPort,
		Timeout: timeout,
		records: []remote.Record{},
	}
	r.init("remote_shell_command", true, opts)
	return r
}

// Records returns the collected per-host records.
func (r *RemoteShellCommand) Records() []remote.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]remote.Record, len(r.records))
	copy(records, r.records)
	return records
}

func (r *RemoteShellCommand) Evaluate(ctx context.Context, force bool) error {
	return r.evaluate(ctx, force, false, func(ctx context.Context) error {
		if strings.TrimSpace(r.Command) == "" {
			return fmt.Errorf("%w: command", ErrMissingInput)
		}
		if len(r.Hosts) == 0 {
			return fmt.Errorf("%w: %v", ErrMissingInput, remote.ErrNoHosts)
		}
		port := r.Port
		if port == 0 {
			port = remote.DefaultPort
		}
		targets, err := remote.ParseTargets(r.Hosts, port)
		if err != nil {
			return err
		}
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = DefaultCommandTimeout
		}
		transport := r.transport
		if transport == nil {
			transport = &remote.SSHTransport{User: r.User, Logger: r.logger, Clock: r.clock}
		}

		records := make([]remote.Record, 0, len(targets))
		err = remote.RunAll(ctx, transport, targets, r.Command, timeout, func(record remote.Record) {
			records = append(records, record)
		}, r.logger)
		if err != nil {
			return err
		}
		r.records = records
		return nil
	})
}

func (r *RemoteShellCommand) ToDocument() (document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	configuration := remoteConfiguration{
		Command: r.Command,
		Hosts:   r.Hosts,
		Port:    r.Port,
		Timeout: toSeconds(r.Timeout),
		User:    r.User,
	}
	if configuration.Hosts == nil {
		configuration.Hosts = []string{}
	}
	return encode(&r.common, &configuration, &r.records)
}

func (r *RemoteShellCommand) FromDocument(doc document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	configuration := remoteConfiguration{
		Hosts:   []string{},
		Port:    remote.DefaultPort,
		Timeout: toSeconds(DefaultCommandTimeout),
	}
	records := []remote.Record{}
	if err := decode(&r.common, doc, &configuration, &records); err != nil {
		return err
	}
	r.Command = configuration.Command
	r.Hosts = configuration.Hosts
	r.Port = configuration.Port
	r.Timeout = time.Duration(configuration.Timeout) * time.Second
	r.User = configuration.User
	r.records = records
	return nil
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"fmt"
	"maps"
	"slices"

	"github.com/samcmill/wassail-sub000/lib/document"
)

// registry maps a document name to a constructor of an unconfigured
// collector.
var registry = map[string]func(opts ...Option) DataSource{
	"environment":          func(opts ...Option) DataSource { return NewEnvironment(opts...) },
	"getcpuid":             func(opts ...Option) DataSource { return NewGetcpuid(opts...) },
	"getloadavg":           func(opts ...Option) DataSource { return NewGetloadavg(opts...) },
	"getmntent":            func(opts ...Option) DataSource { return NewGetmntent(opts...) },
	"getrlimit":            func(opts ...Option) DataSource { return NewGetrlimit(opts...) },
	"hwinfo":               func(opts ...Option) DataSource { return NewHWInfo(opts...) },
	"mpirun":               func(opts ...Option) DataSource { return NewMPIRun(DefaultMPIRunConfig(), opts...) },
	"osu_micro_benchmarks": func(opts ...Option) DataSource { return NewOSUMicroBenchmarks(DefaultOSUConfig(), opts...) },
	"ps":                   func(opts ...Option) DataSource { return NewPS(opts...) },
	"remote_shell_command": func(opts ...Option) DataSource { return NewRemoteShellCommand(nil, "", DefaultCommandTimeout, opts...) },
	"shell_command":        func(opts ...Option) DataSource { return NewShellCommand("", DefaultCommandTimeout, opts...) },
	"stat":                 func(opts ...Option) DataSource { return NewStat("", opts...) },
	"stream":               func(opts ...Option) DataSource { return NewStream("", opts...) },
	"sysconf":              func(opts ...Option) DataSource { return NewSysconf(opts...) },
	"sysinfo":              func(opts ...Option) DataSource { return NewSysinfo(opts...) },
	"uname":                func(opts ...Option) DataSource { return NewUname(opts...) },
}

// Names returns every collector name in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// New returns an unconfigured collector by name.
func New(name string, opts ...Option) (DataSource, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: no collector named %q", document.ErrUnrecognized, name)
	}
	return constructor(opts...), nil
}

// Load returns the collector named by doc, populated from doc.
func Load(doc document.Document, opts ...Option) (DataSource, error) {
	src, err := New(doc.Name(), opts...)
	if err != nil {
		return nil, err
	}
	if err := src.FromDocument(doc); err != nil {
		return nil, err
	}
	return src, nil
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package suite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samcmill/wassail-sub000/lib/check"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
	"github.com/samcmill/wassail-sub000/lib/source"
)

// sourceBuilders construct the collectors that take configuration.
// Every other collector comes from source.New.
var sourceBuilders = map[string]func(c SourceConfig, opts []source.Option) source.DataSource{
	"shell_command": func(c SourceConfig, opts []source.Option) source.DataSource {
		s := source.NewShellCommand(c.Command, seconds(c.Timeout), opts...)
		s.Exclusive = c.Exclusive
		return s
	},
	"remote_shell_command": func(c SourceConfig, opts []source.Option) source.DataSource {
		r := source.NewRemoteShellCommand(c.Hosts, c.Command, seconds(c.Timeout), opts...)
		if c.Port != 0 {
			r.Port = c.Port
		}
		r.User = c.User
		return r
	},
	"stat": func(c SourceConfig, opts []source.Option) source.DataSource {
		return source.NewStat(c.Path, opts...)
	},
	"stream": func(c SourceConfig, opts []source.Option) source.DataSource {
		return source.NewStream(c.Program, opts...)
	},
	"mpirun": func(c SourceConfig, opts []source.Option) source.DataSource {
		return source.NewMPIRun(c.mpirunConfig(source.DefaultMPIRunConfig()), opts...)
	},
	"osu_micro_benchmarks": func(c SourceConfig, opts []source.Option) source.DataSource {
		config := source.DefaultOSUConfig()
		config.MPIRunConfig = c.mpirunConfig(config.MPIRunConfig)
		if c.Benchmark != "" {
			config.Benchmark = source.OSUBenchmark(c.Benchmark)
		}
		return source.NewOSUMicroBenchmarks(config, opts...)
	},
}

// mpirunConfig overlays the configured launch parameters on defaults.
func (c SourceConfig) mpirunConfig(config source.MPIRunConfig) source.MPIRunConfig {
	if c.MPIImplementation != "" {
		config.Implementation = source.MPIImplementation(c.MPIImplementation)
	}
	if c.NumProcs > 0 {
		config.NumProcs = c.NumProcs
	}
	config.PerNode = c.PerNode
	config.Hostfile = c.Hostfile
	config.Hostlist = c.Hostlist
	config.MPIRunArgs = c.MPIRunArgs
	config.Program = c.Program
	config.ProgramArgs = c.ProgramArgs
	if c.Timeout > 0 {
		config.Timeout = c.Timeout
	}
	if c.AllowRunAsRoot != nil {
		config.AllowRunAsRoot = *c.AllowRunAsRoot
	}
	return config
}

// seconds converts a configured timeout. Zero selects the collector's
// default.
func seconds(timeout int64) time.Duration {
	if timeout <= 0 {
		return source.DefaultCommandTimeout
	}
	return time.Duration(timeout) * time.Second
}

func buildSource(c SourceConfig, opts []source.Option) (source.DataSource, error) {
	if build, ok := sourceBuilders[c.Name]; ok {
		return build(c, opts), nil
	}
	return source.New(c.Name, opts...)
}

// evaluation is the outcome of evaluating one source.
type evaluation struct {
	doc document.Document
	err error
}

// Run evaluates every source concurrently, then runs every check in
// suite order against its source's document. The returned root has
// one child per check and carries the worst issue and priority of the
// tree.
//
// A source that fails to evaluate, and a check that cannot read the
// document it was given, become inconclusive children at error
// priority; the run continues. Run returns an error only when the
// suite itself is invalid.
func (s *Suite) Run(ctx context.Context, logger *slog.Logger, opts ...source.Option) (*result.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	timeout, _ := s.deadline()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts = append([]source.Option{source.WithLogger(logger)}, opts...)
	sources := make(map[string]source.DataSource, len(s.Sources))
	for _, config := range s.Sources {
		src, err := buildSource(config, opts)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", config.Key(), err)
		}
		sources[config.Key()] = src
	}

	checks := make([]check.Check, len(s.Checks))
	for i, config := range s.Checks {
		options := config.Options
		options.Logger = logger
		c, err := check.New(config.Check, options)
		if err != nil {
			return nil, fmt.Errorf("checks[%d]: %w", i, err)
		}
		checks[i] = c
	}

	evaluations := s.evaluate(ctx, sources, logger)

	root := result.New()
	root.Brief = s.Name
	root.Timestamp = time.Now().UTC()
	if hostname, err := os.Hostname(); err == nil {
		root.SystemID = []string{hostname}
	}

	for i, c := range checks {
		key := s.Checks[i].Source
		outcome := evaluations[key]
		if outcome.err != nil {
			root.AddChild(failure(c, key, outcome.err))
			continue
		}
		r, err := c.Check(outcome.doc)
		if err != nil {
			logger.Warn("check could not read its source",
				"check", c.Name(),
				"source", key,
				"error", err)
			root.AddChild(failure(c, key, err))
			continue
		}
		root.AddChild(r)
	}

	root.Propagate()
	return root, nil
}

// evaluate runs every source concurrently through the gate. Failures
// are recorded per source rather than cancelling the others.
func (s *Suite) evaluate(ctx context.Context, sources map[string]source.DataSource, logger *slog.Logger) map[string]evaluation {
	var mu sync.Mutex
	evaluations := make(map[string]evaluation, len(sources))

	var group errgroup.Group
	for key, src := range sources {
		group.Go(func() error {
			started := time.Now()
			doc, err := source.Run(ctx, src, false)
			if err != nil {
				logger.Warn("source evaluation failed",
					"source", key,
					"collector", src.Name(),
					"error", err)
			} else {
				logger.Debug("source evaluated",
					"source", key,
					"collector", src.Name(),
					"elapsed", time.Since(started))
			}
			mu.Lock()
			evaluations[key] = evaluation{doc: doc, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return evaluations
}

// failure is the inconclusive result recorded for a check that could
// not run.
func failure(c check.Check, key string, err error) *result.Result {
	r := result.New()
	r.Priority = result.Error
	r.FormatBrief("Running %[1]s against source '%[2]s'", c.Name(), key)
	r.Detail = err.Error()
	return r
}

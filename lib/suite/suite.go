// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package suite

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samcmill/wassail-sub000/lib/check"
	"github.com/samcmill/wassail-sub000/lib/source"
)

// EnvironmentVariable names the suite file for [Load].
const EnvironmentVariable = "WASSAIL_CONFIG"

// Suite is a set of collectors and the checks to run against them.
type Suite struct {
	// Name becomes the brief of the root result.
	Name string `yaml:"name"`

	// Timeout bounds the whole run, as a Go duration ("30s").
	// Empty means no deadline beyond the per-command timeouts.
	Timeout string `yaml:"timeout"`

	Sources []SourceConfig `yaml:"sources"`
	Checks  []CheckConfig  `yaml:"checks"`
}

// SourceConfig configures one collector. Name selects the collector;
// the remaining fields apply to the collectors that take them.
type SourceConfig struct {
	Name string `yaml:"name"`

	// ID is how checks refer to this source. Defaults to Name.
	ID string `yaml:"id"`

	// shell_command, remote_shell_command
	Command string `yaml:"command"`
	// Seconds. For mpirun this is the launcher's own timeout.
	Timeout   int64 `yaml:"timeout"`
	Exclusive bool  `yaml:"exclusive"`

	// remote_shell_command
	Hosts []string `yaml:"hosts"`
	Port  int      `yaml:"port"`
	User  string   `yaml:"user"`

	// stat
	Path string `yaml:"path"`

	// stream, mpirun, osu_micro_benchmarks
	Program string `yaml:"program"`

	// osu_micro_benchmarks
	Benchmark string `yaml:"benchmark"`

	// mpirun, osu_micro_benchmarks
	MPIImplementation string   `yaml:"mpi_impl"`
	NumProcs          int      `yaml:"num_procs"`
	PerNode           int      `yaml:"per_node"`
	Hostfile          string   `yaml:"hostfile"`
	Hostlist          []string `yaml:"hostlist"`
	MPIRunArgs        string   `yaml:"mpirun_args"`
	ProgramArgs       string   `yaml:"program_args"`
	AllowRunAsRoot    *bool    `yaml:"allow_run_as_root"`
}

// Key is the identifier checks use to refer to the source.
func (c SourceConfig) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// CheckConfig configures one check. Check selects the check by name
// (see [check.Names]) and Source names the source whose document it
// reads.
type CheckConfig struct {
	Check         string `yaml:"check"`
	Source        string `yaml:"source"`
	check.Options `yaml:",inline"`
}

// Load loads the suite named by the WASSAIL_CONFIG environment
// variable. There is no default location: if the variable is unset,
// Load fails.
func Load() (*Suite, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a suite file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads and validates a suite file.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes, expands, and validates a suite.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}
	s.expandVariables()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in the fields
// that name commands, machines, and files.
func (s *Suite) expandVariables() {
	for i := range s.Sources {
		src := &s.Sources[i]
		src.Command = expandVars(src.Command)
		src.User = expandVars(src.User)
		src.Path = expandVars(src.Path)
		src.Program = expandVars(src.Program)
		src.Hostfile = expandVars(src.Hostfile)
		src.ProgramArgs = expandVars(src.ProgramArgs)
		for j := range src.Hosts {
			src.Hosts[j] = expandVars(src.Hosts[j])
		}
		for j := range src.Hostlist {
			src.Hostlist[j] = expandVars(src.Hostlist[j])
		}
	}
	for i := range s.Checks {
		s.Checks[i].Filesystem = expandVars(s.Checks[i].Filesystem)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} with the environment value of VAR, and
// ${VAR:-default} with default when VAR is unset or empty.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// deadline parses Timeout.
func (s *Suite) deadline() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, err
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return timeout, nil
}

// Validate reports every problem with the suite at once.
func (s *Suite) Validate() error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if _, err := s.deadline(); err != nil {
		errs = append(errs, fmt.Errorf("timeout %q: %w", s.Timeout, err))
	}
	if len(s.Sources) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}

	known := source.Names()
	keys := make(map[string]bool)
	for i, config := range s.Sources {
		where := fmt.Sprintf("sources[%d]", i)
		if !slices.Contains(known, config.Name) {
			errs = append(errs, fmt.Errorf("%s: unknown collector %q", where, config.Name))
			continue
		}
		if keys[config.Key()] {
			errs = append(errs, fmt.Errorf("%s: duplicate source id %q", where, config.Key()))
		}
		keys[config.Key()] = true
		if validate, ok := sourceValidators[config.Name]; ok {
			if err := validate(config); err != nil {
				errs = append(errs, fmt.Errorf("%s (%s): %w", where, config.Key(), err))
			}
		}
		if config.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s (%s): negative timeout", where, config.Key()))
		}
	}

	for i, config := range s.Checks {
		where := fmt.Sprintf("checks[%d]", i)
		if config.Source == "" {
			errs = append(errs, fmt.Errorf("%s: source is required", where))
		} else if !keys[config.Source] {
			errs = append(errs, fmt.Errorf("%s: no source with id %q", where, config.Source))
		}
		if _, err := check.New(config.Check, config.Options); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// sourceValidators check the fields a collector cannot run without.
var sourceValidators = map[string]func(SourceConfig) error{
	"shell_command": func(c SourceConfig) error {
		if c.Command == "" {
			return errors.New("command is required")
		}
		return nil
	},
	"remote_shell_command": func(c SourceConfig) error {
		var errs []error
		if c.Command == "" {
			errs = append(errs, errors.New("command is required"))
		}
		if len(c.Hosts) == 0 {
			errs = append(errs, errors.New("hosts are required"))
		}
		if c.Port < 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
		}
		return errors.Join(errs...)
	},
	"stat": func(c SourceConfig) error {
		if c.Path == "" {
			return errors.New("path is required")
		}
		return nil
	},
	"mpirun": func(c SourceConfig) error {
		var errs []error
		if c.Program == "" {
			errs = append(errs, errors.New("program is required"))
		}
		errs = append(errs, validateImplementation(c.MPIImplementation))
		return errors.Join(errs...)
	},
	"osu_micro_benchmarks": func(c SourceConfig) error {
		var errs []error
		if c.Benchmark != "" {
			if _, err := source.OSUBenchmark(c.Benchmark).Program(source.DefaultOSUDirectory); err != nil {
				errs = append(errs, fmt.Errorf("unknown benchmark %q", c.Benchmark))
			}
		}
		errs = append(errs, validateImplementation(c.MPIImplementation))
		return errors.Join(errs...)
	},
}

func validateImplementation(implementation string) error {
	switch source.MPIImplementation(implementation) {
	case "", source.MPICH, source.OpenMPI:
		return nil
	}
	return fmt.Errorf("unknown mpi_impl %q", implementation)
}

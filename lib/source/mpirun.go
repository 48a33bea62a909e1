// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/shell"
)

// MPIImplementation selects the mpirun command-line dialect.
type MPIImplementation string

const (
	MPICH   MPIImplementation = "mpich"
	OpenMPI MPIImplementation = "openmpi"
)

// mpirunLaunchSlack is added to the MPI job timeout to get the shell
// timeout, leaving the launcher time to tear the job down itself.
const mpirunLaunchSlack = 10 * time.Second

// MPIRunConfig describes one MPI launch.
type MPIRunConfig struct {
	Implementation MPIImplementation `json:"mpi_impl"`
	NumProcs       int               `json:"num_procs"`
	PerNode        int               `json:"per_node"`

	// Hostfile takes precedence over Hostlist.
	Hostfile string   `json:"hostfile,omitempty"`
	Hostlist []string `json:"hostlist,omitempty"`

	MPIRunArgs  string `json:"mpirun_args"`
	Program     string `json:"program"`
	ProgramArgs string `json:"program_args"`

	// Timeout is passed to the launcher as MPIEXEC_TIMEOUT, in
	// seconds. Zero disables the launcher timeout.
	Timeout int64 `json:"timeout"`

	// AllowRunAsRoot adds --allow-run-as-root to Open MPI launches
	// made by uid 0.
	AllowRunAsRoot bool `json:"allow_run_as_root"`
}

// DefaultMPIRunConfig is the configuration of an empty mpirun
// collector.
func DefaultMPIRunConfig() MPIRunConfig {
	return MPIRunConfig{
		Implementation: OpenMPI,
		Timeout:        60,
		AllowRunAsRoot: true,
	}
}

// CommandLine builds the launcher command and the shell timeout for
// the given effective uid.
func (c MPIRunConfig) CommandLine(uid int) (string, time.Duration, error) {
	var command strings.Builder
	timeout := DefaultCommandTimeout
	hosts := c.hostArgument()

	switch c.Implementation {
	case MPICH:
		if c.Timeout > 0 {
			fmt.Fprintf(&command, "MPIEXEC_TIMEOUT=%d ", c.Timeout)
			timeout = time.Duration(c.Timeout)*time.Second + mpirunLaunchSlack
		}
		command.WriteString("mpirun")
		if c.NumProcs > 0 {
			fmt.Fprintf(&command, " -n %d", c.NumProcs)
		}
		if c.PerNode > 0 {
			fmt.Fprintf(&command, " -ppn %d", c.PerNode)
		}
		if c.Hostfile != "" {
			fmt.Fprintf(&command, " -f %s", c.Hostfile)
		} else if hosts != "" {
			fmt.Fprintf(&command, " -hosts %s", hosts)
		}
	case OpenMPI:
		command.WriteString("mpirun")
		if c.NumProcs > 0 {
			fmt.Fprintf(&command, " -n %d", c.NumProcs)
		}
		if c.PerNode > 0 {
			fmt.Fprintf(&command, " --npernode %d", c.PerNode)
		}
		if c.Hostfile != "" {
			fmt.Fprintf(&command, " -f %s", c.Hostfile)
		} else if hosts != "" {
			fmt.Fprintf(&command, " -H %s", hosts)
		}
		if uid == 0 && c.AllowRunAsRoot {
			command.WriteString(" --allow-run-as-root")
		}
		if c.Timeout > 0 {
			fmt.Fprintf(&command, " -x MPIEXEC_TIMEOUT=%d", c.Timeout)
			timeout = time.Duration(c.Timeout)*time.Second + mpirunLaunchSlack
		}
	default:
		return "", 0, fmt.Errorf("unknown MPI implementation %q", c.Implementation)
	}

	if c.MPIRunArgs != "" {
		fmt.Fprintf(&command, " %s", c.MPIRunArgs)
	}
	if c.Program != "" {
		command.WriteString(" " + c.Program)
		if c.ProgramArgs != "" {
			command.WriteString(" " + c.ProgramArgs)
		}
	}
	return command.String(), timeout, nil
}

func (c MPIRunConfig) hostArgument() string {
	return strings.Join(c.Hostlist, ",")
}

type mpirunData struct {
	shell.Execution
	MPIRunConfig
}

// MPIRun launches an MPI program.
type MPIRun struct {
	common
	Config    MPIRunConfig
	execution shell.Execution
}

// NewMPIRun returns an mpirun collector.
func NewMPIRun(config MPIRunConfig, opts ...Option) *MPIRun {
	m := &MPIRun{Config: config, execution: shell.NewExecution("")}
	m.init("mpirun", true, opts)
	return m
}

// Execution returns the collected result.
func (m *MPIRun) Execution() shell.Execution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.execution
}

func (m *MPIRun) Evaluate(ctx context.Context, force bool) error {
	if m.Config.Program == "" {
		return fmt.Errorf("%s: %w: program", m.name, ErrMissingInput)
	}
	command, timeout, err := m.Config.CommandLine(unix.Geteuid())
	if err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	return m.evaluate(ctx, force, false, func(ctx context.Context) error {
		execution, err := runCommand(ctx, &m.common, command, timeout)
		if err != nil {
			return err
		}
		m.execution = execution
		return nil
	})
}

func (m *MPIRun) ToDocument() (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configuration := m.Config
	data := mpirunData{Execution: m.execution, MPIRunConfig: m.Config}
	return encode(&m.common, &configuration, &data)
}

func (m *MPIRun) FromDocument(doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	configuration := DefaultMPIRunConfig()
	data := mpirunData{Execution: shell.NewExecution(""), MPIRunConfig: DefaultMPIRunConfig()}
	if err := decode(&m.common, doc, &configuration, &data); err != nil {
		return err
	}
	if _, ok := doc[document.KeyConfiguration]; !ok && m.collected {
		// Without a configuration the launch parameters come from data.
		configuration = data.MPIRunConfig
	}
	m.Config = configuration
	m.execution = data.Execution
	return nil
}

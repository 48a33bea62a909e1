// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/shell"
)

// DefaultOSUDirectory is where the OSU Micro-Benchmarks are installed
// alongside wassail.
const DefaultOSUDirectory = "/usr/libexec/wassail/osu-micro-benchmarks"

// OSUBenchmark names one of the supported OSU Micro-Benchmarks.
type OSUBenchmark string

const (
	OSUAllreduce OSUBenchmark = "osu_allreduce"
	OSUAlltoall  OSUBenchmark = "osu_alltoall"
	OSUBandwidth OSUBenchmark = "osu_bw"
	OSUHello     OSUBenchmark = "osu_hello"
	OSUInit      OSUBenchmark = "osu_init"
	OSULatency   OSUBenchmark = "osu_latency"
	OSUReduce    OSUBenchmark = "osu_reduce"
)

// osuPrograms maps a benchmark to its path below the install
// directory.
var osuPrograms = map[OSUBenchmark]string{
	OSUAllreduce: "mpi/collective/osu_allreduce",
	OSUAlltoall:  "mpi/collective/osu_alltoall",
	OSUBandwidth: "mpi/pt2pt/osu_bw",
	OSUHello:     "mpi/startup/osu_hello",
	OSUInit:      "mpi/startup/osu_init",
	OSULatency:   "mpi/pt2pt/osu_latency",
	OSUReduce:    "mpi/collective/osu_reduce",
}

// Program returns the benchmark binary below directory.
func (b OSUBenchmark) Program(directory string) (string, error) {
	relative, ok := osuPrograms[b]
	if !ok {
		return "", fmt.Errorf("%w: unknown OSU benchmark %q", document.ErrUnrecognized, b)
	}
	return path.Join(directory, relative), nil
}

// OSUConfig is an MPI launch of one OSU benchmark. An empty Program is
// resolved from Benchmark under DefaultOSUDirectory.
type OSUConfig struct {
	MPIRunConfig
	Benchmark OSUBenchmark `json:"benchmark"`
}

// DefaultOSUConfig runs osu_init on two ranks.
func DefaultOSUConfig() OSUConfig {
	config := OSUConfig{MPIRunConfig: DefaultMPIRunConfig(), Benchmark: OSUInit}
	config.NumProcs = 2
	return config
}

// LatencySample is one row of a latency table, in microseconds.
type LatencySample struct {
	Size    int64   `json:"size"`
	Latency float64 `json:"latency"`
}

// BandwidthSample is one row of a bandwidth table, in MB/s.
type BandwidthSample struct {
	Size      int64   `json:"size"`
	Bandwidth float64 `json:"bandwidth"`
}

// OSUResults is what a benchmark run reports. Which fields are set
// depends on the benchmark.
type OSUResults struct {
	Benchmark OSUBenchmark      `json:"benchmark"`
	Latency   []LatencySample   `json:"latency,omitempty"`
	Bandwidth []BandwidthSample `json:"bandwidth,omitempty"`

	// osu_hello and osu_init
	NumProcs int `json:"nprocs,omitempty"`

	// osu_init startup times, in milliseconds.
	Min int64 `json:"min,omitempty"`
	Max int64 `json:"max,omitempty"`
	Avg int64 `json:"avg,omitempty"`
}

var (
	osuTablePattern = regexp.MustCompile(`(?m)^\s*(\d+)\s+(\d+\.\d+)\s*$`)
	osuHelloPattern = regexp.MustCompile(`This is a test with (\d+) processes`)
	osuInitPattern  = regexp.MustCompile(`nprocs: (\d+), min: (\d+) ms, max: (\d+) ms, avg: (\d+) ms`)
)

// parseOSU extracts the results of benchmark from its output.
func parseOSU(benchmark OSUBenchmark, output string) OSUResults {
	results := OSUResults{Benchmark: benchmark}
	integer := func(text string) int64 {
		value, _ := strconv.ParseInt(text, 10, 64)
		return value
	}
	decimal := func(text string) float64 {
		value, _ := strconv.ParseFloat(text, 64)
		return value
	}

	switch benchmark {
	case OSUAllreduce, OSUAlltoall, OSULatency, OSUReduce:
		results.Latency = []LatencySample{}
		for _, match := range osuTablePattern.FindAllStringSubmatch(output, -1) {
			results.Latency = append(results.Latency, LatencySample{Size: integer(match[1]), Latency: decimal(match[2])})
		}
	case OSUBandwidth:
		results.Bandwidth = []BandwidthSample{}
		for _, match := range osuTablePattern.FindAllStringSubmatch(output, -1) {
			results.Bandwidth = append(results.Bandwidth, BandwidthSample{Size: integer(match[1]), Bandwidth: decimal(match[2])})
		}
	case OSUHello:
		if match := osuHelloPattern.FindStringSubmatch(output); match != nil {
			results.NumProcs = int(integer(match[1]))
		}
	case OSUInit:
		if match := osuInitPattern.FindStringSubmatch(output); match != nil {
			results.NumProcs = int(integer(match[1]))
			results.Min = integer(match[2])
			results.Max = integer(match[3])
			results.Avg = integer(match[4])
		}
	}
	return results
}

type osuData struct {
	shell.Execution
	OSUResults
}

// OSUMicroBenchmarks launches an OSU benchmark with mpirun and parses
// its result table.
type OSUMicroBenchmarks struct {
	common
	Config    OSUConfig
	execution shell.Execution
}

// NewOSUMicroBenchmarks returns an osu_micro_benchmarks collector.
func NewOSUMicroBenchmarks(config OSUConfig, opts ...Option) *OSUMicroBenchmarks {
	if config.Program == "" {
		config.Program, _ = config.Benchmark.Program(DefaultOSUDirectory)
	}
	o := &OSUMicroBenchmarks{Config: config, execution: shell.NewExecution("")}
	o.init("osu_micro_benchmarks", true, opts)
	return o
}

// Execution returns the collected result.
func (o *OSUMicroBenchmarks) Execution() shell.Execution {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.execution
}

// Results returns the parsed benchmark output.
func (o *OSUMicroBenchmarks) Results() OSUResults {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return parseOSU(o.Config.Benchmark, o.execution.Stdout)
}

func (o *OSUMicroBenchmarks) Evaluate(ctx context.Context, force bool) error {
	return o.evaluate(ctx, force, false, func(ctx context.Context) error {
		if _, ok := osuPrograms[o.Config.Benchmark]; !ok {
			return fmt.Errorf("%w: unknown OSU benchmark %q", document.ErrUnrecognized, o.Config.Benchmark)
		}
		if o.Config.Program == "" {
			return fmt.Errorf("%w: program", ErrMissingInput)
		}
		command, timeout, err := o.Config.CommandLine(unix.Geteuid())
		if err != nil {
			return err
		}
		execution, err := runCommand(ctx, &o.common, command, timeout)
		if err != nil {
			return err
		}
		o.execution = execution
		return nil
	})
}

func (o *OSUMicroBenchmarks) ToDocument() (document.Document, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	configuration := o.Config
	data := osuData{Execution: o.execution, OSUResults: parseOSU(o.Config.Benchmark, o.execution.Stdout)}
	return encode(&o.common, &configuration, &data)
}

func (o *OSUMicroBenchmarks) FromDocument(doc document.Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	configuration := DefaultOSUConfig()
	data := osuData{Execution: shell.NewExecution("")}
	if err := decode(&o.common, doc, &configuration, &data); err != nil {
		return err
	}
	if _, ok := doc[document.KeyConfiguration]; !ok && data.Benchmark != "" {
		configuration.Benchmark = data.Benchmark
	}
	if _, ok := osuPrograms[configuration.Benchmark]; !ok {
		return fmt.Errorf("%w: unknown OSU benchmark %q", document.ErrUnrecognized, configuration.Benchmark)
	}
	if configuration.Program == "" {
		configuration.Program, _ = configuration.Benchmark.Program(DefaultOSUDirectory)
	}
	o.Config = configuration
	o.execution = data.Execution
	return nil
}

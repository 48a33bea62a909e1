// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// Environment checks the value of an environment variable. A variable
// that is not set is an issue. Results are always at warning priority.
type Environment struct {
	Variable string
	Value    string

	// Regex makes Value a regular expression that must match
	// somewhere in the variable's value.
	Regex bool

	Templates Templates
}

// NewEnvironment returns an environment variable check.
func NewEnvironment(variable, value string, regex bool) *Environment {
	return &Environment{
		Variable: variable,
		Value:    value,
		Regex:    regex,
		Templates: Templates{
			Brief:       "Checking environment variable '%[1]s'",
			DetailYes:   "Value '%[1]s' does not match '%[2]s'",
			DetailMaybe: "Unable to check value '%[1]s'",
			DetailNo:    "Value '%[1]s' matches '%[2]s'",
		},
	}
}

var environmentReaders = map[string]func(doc document.Document, variable string) (value string, set bool, err error){
	"environment": func(doc document.Document, variable string) (string, bool, error) {
		variables, err := document.Get[map[string]string](doc, "/data")
		if err != nil {
			return "", false, err
		}
		value, set := variables[variable]
		return value, set, nil
	},
}

func (e *Environment) Name() string { return "misc/environment" }

func (e *Environment) Check(doc document.Document) (*result.Result, error) {
	read, ok := environmentReaders[doc.Name()]
	if !ok {
		return nil, unrecognized(e.Name(), doc, environmentReaders)
	}
	value, set, err := read(doc, e.Variable)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to perform check: %w", e.Name(), err)
	}

	matches := set && value == e.Value
	if set && e.Regex {
		pattern, err := regexp.Compile(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		matches = pattern.MatchString(value)
	}

	r := result.FromDocument(doc)
	r.FormatBrief(e.Templates.Brief, e.Variable)
	r.Priority = result.Warning
	if matches {
		r.Issue = result.No
		r.FormatDetail(e.Templates.DetailNo, value, e.Value)
	} else {
		r.Issue = result.Yes
		r.FormatDetail(e.Templates.DetailYes, value, e.Value)
	}
	return r, nil
}

// loadAverageReaders compare the N minute load average of each
// document kind that reports one. getloadavg stores the average as a
// float; sysinfo stores it in fixed point with loads_scale as one.
var loadAverageReaders = map[string]func(c Comparison, doc document.Document, minutes int, threshold float64) *result.Result{
	"getloadavg": func(c Comparison, doc document.Document, minutes int, threshold float64) *result.Result {
		return Compare(c, doc, fmt.Sprintf("/data/load%d", minutes), LessEqual[float64], threshold)
	},
	"sysinfo": func(c Comparison, doc document.Document, minutes int, threshold float64) *result.Result {
		return CompareTransform(c, doc, fmt.Sprintf("/data/load%d", minutes), LessEqual[float64], threshold,
			func(load float64) (float64, error) {
				scale, err := document.Get[float64](doc, "/data/loads_scale")
				if err != nil {
					return 0, err
				}
				if scale == 0 {
					return 0, errors.New("loads_scale is zero")
				}
				return load / scale, nil
			})
	},
}

// LoadAverageMinutes are the averaging windows the kernel reports.
var LoadAverageMinutes = []int{1, 5, 15}

// LoadAverage checks that the 1, 5, or 15 minute load average is at
// most Threshold.
type LoadAverage struct {
	Minutes   int
	Threshold float64
	Comparison
}

// NewLoadAverage returns a load average check over the given window.
func NewLoadAverage(minutes int, threshold float64) *LoadAverage {
	return &LoadAverage{
		Minutes:   minutes,
		Threshold: threshold,
		Comparison: Comparison{Templates: Templates{
			Brief:       "Checking %[1]d minute load average",
			DetailYes:   "Observed load average %.2[1]f greater than reference threshold %.2[2]f",
			DetailMaybe: "Unable to check load average: '%[1]v'",
			DetailNo:    "Observed load average %.2[1]f less than or equal to reference threshold %.2[2]f",
		}},
	}
}

func (l *LoadAverage) Name() string { return "misc/load_average" }

func (l *LoadAverage) Check(doc document.Document) (*result.Result, error) {
	compare, ok := loadAverageReaders[doc.Name()]
	if !ok {
		return nil, unrecognized(l.Name(), doc, loadAverageReaders)
	}
	if !slices.Contains(LoadAverageMinutes, l.Minutes) {
		return nil, fmt.Errorf("%s: no %d minute load average (want one of %v)", l.Name(), l.Minutes, LoadAverageMinutes)
	}
	r := compare(l.Comparison, doc, l.Minutes, l.Threshold)
	r.FormatBrief(l.Templates.Brief, l.Minutes)
	return r, nil
}

// ShellOutput checks the standard output of a command. For a remote
// command each host gets its own child result and the parent takes
// the worst of them.
type ShellOutput struct {
	Output string

	// Regex makes Output a regular expression that must match
	// somewhere in stdout.
	Regex bool

	Templates Templates
	Logger    *slog.Logger
}

// NewShellOutput returns a shell output check.
func NewShellOutput(output string, regex bool) *ShellOutput {
	return &ShellOutput{
		Output: output,
		Regex:  regex,
		Templates: Templates{
			Brief:       "Checking shell output",
			DetailYes:   "Observed output '%[1]s' does not match expected output '%[2]s'",
			DetailMaybe: "Unable to check output: '%[1]v'",
			DetailNo:    "Observed output '%[1]s' matches expected output '%[2]s'",
		},
	}
}

var shellOutputReaders = map[string]func(s *ShellOutput, doc document.Document) (*result.Result, error){
	"shell_command": func(s *ShellOutput, doc document.Document) (*result.Result, error) {
		return s.checkExecution(doc)
	},
	"remote_shell_command": func(s *ShellOutput, doc document.Document) (*result.Result, error) {
		r := result.FromDocument(doc)
		r.Brief = s.Templates.Brief
		if doc.Collected() {
			records, err := document.Get[[]document.Document](doc, "/data")
			if err != nil {
				return nil, fmt.Errorf("%s: unable to perform check: %w", s.Name(), err)
			}
			for _, record := range records {
				child, err := s.checkExecution(record)
				if err != nil {
					return nil, err
				}
				r.AddChild(child)
			}
		}
		r.Propagate()
		return r, nil
	},
}

func (s *ShellOutput) Name() string { return "misc/shell_output" }

func (s *ShellOutput) Check(doc document.Document) (*result.Result, error) {
	check, ok := shellOutputReaders[doc.Name()]
	if !ok {
		return nil, unrecognized(s.Name(), doc, shellOutputReaders)
	}
	return check(s, doc)
}

// checkExecution checks one execution record: a shell_command document
// or one host's entry of a remote_shell_command document. Both keep
// the output at /data/stdout.
func (s *ShellOutput) checkExecution(doc document.Document) (*result.Result, error) {
	stdout, err := document.Get[string](doc, "/data/stdout")

	engine := NewRulesEngine(s.Templates)
	engine.Logger = s.Logger
	engine.AddRule(func(document.Document) (bool, error) {
		if errors.Is(err, document.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if s.Regex {
		engine.AddRule(func(document.Document) (bool, error) {
			pattern, err := regexp.Compile(s.Output)
			if err != nil {
				return false, err
			}
			return pattern.MatchString(stdout), nil
		})
	} else {
		engine.AddRule(func(document.Document) (bool, error) {
			return stdout == s.Output, nil
		})
	}
	return engine.CheckWith(doc, stdout, s.Output)
}

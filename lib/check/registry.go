// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
)

// Options configures a check built by name with [New]. Each check
// reads the fields it needs and ignores the rest.
type Options struct {
	// cpu/core_count
	Expected int `yaml:"expected"`

	// disk/amount_free and disk/percent_free
	Filesystem string  `yaml:"filesystem"`
	Amount     uint64  `yaml:"amount"`
	Percent    float64 `yaml:"percent"`

	// file/permissions, as an octal string such as "0600"
	Mode string `yaml:"mode"`

	// memory/physical_size, in bytes
	Size      uint64 `yaml:"size"`
	Tolerance uint64 `yaml:"tolerance"`

	// misc/environment
	Variable string `yaml:"variable"`
	Value    string `yaml:"value"`

	// misc/shell_output
	Output string `yaml:"output"`

	// misc/environment and misc/shell_output
	Regex bool `yaml:"regex"`

	// misc/load_average
	Minutes   int     `yaml:"minutes"`
	Threshold float64 `yaml:"threshold"`

	// compare
	Pointer   string   `yaml:"pointer"`
	Operator  string   `yaml:"operator"`
	Reference any      `yaml:"reference"`
	Accept    []string `yaml:"accept"`

	// Logger receives inconclusive evaluations. Nil means
	// slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

var registry = map[string]func(Options) (Check, error){
	"cpu/core_count": func(o Options) (Check, error) {
		if o.Expected <= 0 {
			return nil, errors.New("expected must be a positive number of cores")
		}
		c := NewCoreCount(o.Expected)
		c.Logger = o.Logger
		return c, nil
	},
	"disk/amount_free": func(o Options) (Check, error) {
		if o.Filesystem == "" {
			return nil, errors.New("filesystem is required")
		}
		return NewAmountFree(o.Filesystem, o.Amount), nil
	},
	"disk/percent_free": func(o Options) (Check, error) {
		var errs []error
		if o.Filesystem == "" {
			errs = append(errs, errors.New("filesystem is required"))
		}
		if o.Percent < 0 || o.Percent > 100 {
			errs = append(errs, fmt.Errorf("percent %v is outside 0-100", o.Percent))
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return NewPercentFree(o.Filesystem, o.Percent), nil
	},
	"file/permissions": func(o Options) (Check, error) {
		mode, err := strconv.ParseUint(o.Mode, 8, 32)
		if err != nil || mode > permissionBits {
			return nil, fmt.Errorf("mode %q is not an octal permission mode", o.Mode)
		}
		p := NewPermissions(uint32(mode))
		p.Logger = o.Logger
		return p, nil
	},
	"memory/physical_size": func(o Options) (Check, error) {
		if o.Size == 0 {
			return nil, errors.New("size is required")
		}
		p := NewPhysicalSize(o.Size, o.Tolerance)
		p.Logger = o.Logger
		return p, nil
	},
	"misc/environment": func(o Options) (Check, error) {
		var errs []error
		if o.Variable == "" {
			errs = append(errs, errors.New("variable is required"))
		}
		if err := validPattern(o.Regex, o.Value); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return NewEnvironment(o.Variable, o.Value, o.Regex), nil
	},
	"misc/load_average": func(o Options) (Check, error) {
		minutes := o.Minutes
		if minutes == 0 {
			minutes = 1
		}
		if !slices.Contains(LoadAverageMinutes, minutes) {
			return nil, fmt.Errorf("minutes must be one of %v, not %d", LoadAverageMinutes, minutes)
		}
		l := NewLoadAverage(minutes, o.Threshold)
		l.Logger = o.Logger
		return l, nil
	},
	"misc/shell_output": func(o Options) (Check, error) {
		if err := validPattern(o.Regex, o.Output); err != nil {
			return nil, err
		}
		s := NewShellOutput(o.Output, o.Regex)
		s.Logger = o.Logger
		return s, nil
	},
	"compare": func(o Options) (Check, error) {
		f, err := NewFieldCompare(o.Pointer, o.Operator, o.Reference, o.Accept...)
		if err != nil {
			return nil, err
		}
		f.Comparison.Logger = o.Logger
		return f, nil
	},
}

func validPattern(regex bool, pattern string) error {
	if !regex {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	return nil
}

// Names lists the checks [New] can build.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// New builds the named check from options.
func New(name string, options Options) (Check, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown check %q", ErrUnrecognized, name)
	}
	c, err := build(options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

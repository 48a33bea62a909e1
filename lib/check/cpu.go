// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"errors"
	"log/slog"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// coreCounters read the number of online logical CPUs from each
// document kind that reports it.
var coreCounters = map[string]func(document.Document) (int, error){
	"sysconf": func(doc document.Document) (int, error) {
		return document.Get[int](doc, "/data/nprocessors_onln")
	},
	"hwinfo": func(doc document.Document) (int, error) {
		sockets, err := document.Get[int](doc, "/data/cpu/sockets")
		if err != nil {
			return 0, err
		}
		cores, err := document.Get[int](doc, "/data/cpu/cores_per_socket")
		if err != nil {
			return 0, err
		}
		threads, err := document.Get[int](doc, "/data/cpu/threads_per_core")
		if err != nil {
			return 0, err
		}
		return sockets * cores * threads, nil
	},
}

// CoreCount checks that a machine has the expected number of logical
// CPUs.
type CoreCount struct {
	Expected  int
	Templates Templates
	Logger    *slog.Logger
}

// NewCoreCount returns a core count check with the default templates.
func NewCoreCount(expected int) *CoreCount {
	return &CoreCount{
		Expected: expected,
		Templates: Templates{
			Brief:       "Checking number of CPU cores",
			DetailYes:   "Observed number of cores %[1]v not equal to expected value %[2]v",
			DetailMaybe: "Unable to check number of cores: '%[1]v'",
			DetailNo:    "Observed number of cores %[1]v equal to expected value %[2]v",
		},
	}
}

func (c *CoreCount) Name() string { return "cpu/core_count" }

func (c *CoreCount) Check(doc document.Document) (*result.Result, error) {
	count, ok := coreCounters[doc.Name()]
	if !ok {
		return nil, unrecognized(c.Name(), doc, coreCounters)
	}
	observed, err := count(doc)

	engine := NewRulesEngine(c.Templates)
	engine.Logger = c.Logger
	engine.AddRule(func(document.Document) (bool, error) {
		if errors.Is(err, document.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	engine.AddRule(func(document.Document) (bool, error) {
		return observed == c.Expected, nil
	})
	return engine.CheckWith(doc, observed, c.Expected)
}

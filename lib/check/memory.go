// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"log/slog"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// product multiplies the values at two pointers.
func product(doc document.Document, a, b string) (uint64, error) {
	x, err := document.Get[uint64](doc, a)
	if err != nil {
		return 0, err
	}
	y, err := document.Get[uint64](doc, b)
	if err != nil {
		return 0, err
	}
	return x * y, nil
}

// memorySizers read total physical memory in bytes.
var memorySizers = map[string]func(document.Document) (uint64, error){
	"sysconf": func(doc document.Document) (uint64, error) {
		return product(doc, "/data/phys_pages", "/data/page_size")
	},
	"sysinfo": func(doc document.Document) (uint64, error) {
		return product(doc, "/data/totalram", "/data/mem_unit")
	},
	"hwinfo": func(doc document.Document) (uint64, error) {
		return document.Get[uint64](doc, "/data/memory_total_bytes")
	},
}

// PhysicalSize checks that physical memory is within Tolerance bytes
// of Size. Firmware and the kernel reserve some memory, so a tolerance
// of zero rarely matches real hardware.
type PhysicalSize struct {
	Size      uint64
	Tolerance uint64
	Templates Templates
	Logger    *slog.Logger
}

// NewPhysicalSize returns a memory size check.
func NewPhysicalSize(size, tolerance uint64) *PhysicalSize {
	return &PhysicalSize{
		Size:      size,
		Tolerance: tolerance,
		Templates: Templates{
			Brief:       "Checking physical memory size",
			DetailYes:   "Observed memory size of %[1]d %[4]s not within %[2]d +/- %[3]d %[4]s",
			DetailMaybe: "Unable to check memory size: '%[1]v'",
			DetailNo:    "Observed memory size of %[1]d %[4]s within %[2]d +/- %[3]d %[4]s",
		},
	}
}

func (p *PhysicalSize) Name() string { return "memory/physical_size" }

func (p *PhysicalSize) Check(doc document.Document) (*result.Result, error) {
	size, ok := memorySizers[doc.Name()]
	if !ok {
		return nil, unrecognized(p.Name(), doc, memorySizers)
	}
	physical, err := size(doc)

	engine := NewRulesEngine(p.Templates)
	engine.Logger = p.Logger
	engine.AddRule(func(document.Document) (bool, error) {
		if err != nil {
			return false, err
		}
		return max(physical, p.Size)-min(physical, p.Size) <= p.Tolerance, nil
	})
	return engine.CheckWith(doc, physical, p.Size, p.Tolerance, "bytes")
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// cpuidSupported reports whether the architecture has a CPUID
// instruction to query.
const cpuidSupported = runtime.GOARCH == "amd64" || runtime.GOARCH == "386"

// CPUIDData identifies the processor as reported by CPUID.
type CPUIDData struct {
	Vendor string `json:"vendor"`
	Name   string `json:"name"`
	Family int    `json:"family"`
	Model  int    `json:"model"`

	PhysicalCores  int `json:"physical_cores"`
	ThreadsPerCore int `json:"threads_per_core"`
	LogicalCores   int `json:"logical_cores"`
	CacheLine      int `json:"cache_line"`

	// Features are the supported instruction set extensions, lower
	// case.
	Features []string `json:"features"`
}

// Getcpuid records the processor vendor, brand and feature flags.
type Getcpuid struct {
	snapshot[CPUIDData]
}

// NewGetcpuid returns a getcpuid collector. It is disabled where the
// architecture has no CPUID instruction.
func NewGetcpuid(opts ...Option) *Getcpuid {
	g := &Getcpuid{}
	g.setup("getcpuid", cpuidSupported, collectCPUID, opts)
	return g
}

func collectCPUID(context.Context) (CPUIDData, error) {
	info := cpuid.CPU
	features := info.FeatureSet()
	for i, feature := range features {
		features[i] = strings.ToLower(feature)
	}
	return CPUIDData{
		Vendor:         info.VendorString,
		Name:           strings.TrimSpace(info.BrandName),
		Family:         info.Family,
		Model:          info.Model,
		PhysicalCores:  info.PhysicalCores,
		ThreadsPerCore: info.ThreadsPerCore,
		LogicalCores:   info.LogicalCores,
		CacheLine:      info.CacheLine,
		Features:       features,
	}, nil
}

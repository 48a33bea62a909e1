// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo probes static hardware inventory from /proc and /sys.
//
// [Probe] reads CPU topology, memory and swap totals, NUMA nodes, board
// identity, the kernel release, and the PCI device list. It never
// fails: a missing or unreadable file leaves the corresponding field
// at its zero value, so a headless VM with no DMI and no NUMA still
// reports its CPU and memory.
//
// The sysfs helpers [ReadSysfsString], [ReadDriverName] and
// [PCIVendorName] are exported for callers that need a single attribute
// without a full probe.
package hwinfo

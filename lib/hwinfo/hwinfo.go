// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Inventory is the static hardware description of one machine.
type Inventory struct {
	BoardVendor      string      `json:"board_vendor"`
	BoardName        string      `json:"board_name"`
	KernelVersion    string      `json:"kernel_version"`
	CPU              CPU         `json:"cpu"`
	MemoryTotalBytes uint64      `json:"memory_total_bytes"`
	SwapTotalBytes   uint64      `json:"swap_total_bytes"`
	NUMANodes        int         `json:"numa_nodes"`
	PCIDevices       []PCIDevice `json:"pci_devices"`
}

// CPU describes processor topology.
type CPU struct {
	Model          string `json:"model"`
	Sockets        int    `json:"sockets"`
	CoresPerSocket int    `json:"cores_per_socket"`
	ThreadsPerCore int    `json:"threads_per_core"`
	L3CacheKB      int    `json:"l3_cache_kb"`
}

// LogicalCPUs returns sockets * cores per socket * threads per core, or
// 0 when the topology is unknown.
func (c CPU) LogicalCPUs() int {
	return c.Sockets * c.CoresPerSocket * c.ThreadsPerCore
}

// Probe reads the inventory of the running machine.
func Probe() Inventory {
	return probeFrom("/proc", "/sys")
}

// probeFrom reads the inventory from alternative roots so tests can
// use synthetic trees.
func probeFrom(procRoot, sysRoot string) Inventory {
	inventory := Inventory{
		BoardVendor:   ReadSysfsString(filepath.Join(sysRoot, "class/dmi/id/sys_vendor")),
		BoardName:     ReadSysfsString(filepath.Join(sysRoot, "class/dmi/id/board_name")),
		KernelVersion: ReadSysfsString(filepath.Join(procRoot, "sys/kernel/osrelease")),
		CPU:           probeCPU(procRoot, sysRoot),
		NUMANodes:     countNUMANodes(sysRoot),
		PCIDevices:    probePCI(sysRoot),
	}
	inventory.MemoryTotalBytes, inventory.SwapTotalBytes = probeMemory(procRoot)
	return inventory
}

func probeCPU(procRoot, sysRoot string) CPU {
	info := CPU{Model: readCPUModel(filepath.Join(procRoot, "cpuinfo"))}
	cpuBase := filepath.Join(sysRoot, "devices/system/cpu")
	cpus := cpuDirectories(cpuBase)

	info.Sockets = countUnique(cpus, func(dir string) string {
		return ReadSysfsString(filepath.Join(dir, "topology/physical_package_id"))
	})
	// Core ids repeat across sockets, so count (package, core) pairs.
	cores := countUnique(cpus, func(dir string) string {
		packageID := ReadSysfsString(filepath.Join(dir, "topology/physical_package_id"))
		coreID := ReadSysfsString(filepath.Join(dir, "topology/core_id"))
		if packageID == "" || coreID == "" {
			return ""
		}
		return packageID + "/" + coreID
	})
	if cores > 0 && info.Sockets > 0 {
		info.CoresPerSocket = cores / info.Sockets
	}
	info.ThreadsPerCore = countCPUList(ReadSysfsString(filepath.Join(cpuBase, "cpu0/topology/thread_siblings_list")))
	info.L3CacheKB = readCacheSize(filepath.Join(cpuBase, "cpu0/cache/index3/size"))
	return info
}

// cpuDirectories returns the cpuN directories under cpuBase, skipping
// cpufreq, cpuidle and friends.
func cpuDirectories(cpuBase string) []string {
	entries, err := os.ReadDir(cpuBase)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, entry := range entries {
		suffix, ok := strings.CutPrefix(entry.Name(), "cpu")
		if !ok || suffix == "" || suffix[0] < '0' || suffix[0] > '9' {
			continue
		}
		dirs = append(dirs, filepath.Join(cpuBase, entry.Name()))
	}
	return dirs
}

func countUnique(dirs []string, key func(string) string) int {
	unique := make(map[string]struct{})
	for _, dir := range dirs {
		if value := key(dir); value != "" {
			unique[value] = struct{}{}
		}
	}
	return len(unique)
}

// countCPUList counts the CPUs in a kernel cpu list such as "0,96" or
// "0-1". An empty or malformed list counts as one.
func countCPUList(list string) int {
	if list == "" {
		return 1
	}
	count := 0
	for _, part := range strings.Split(list, ",") {
		low, high, isRange := strings.Cut(part, "-")
		if !isRange {
			count++
			continue
		}
		first, errLow := strconv.Atoi(low)
		last, errHigh := strconv.Atoi(high)
		if errLow != nil || errHigh != nil || last < first {
			return 1
		}
		count += last - first + 1
	}
	return max(count, 1)
}

func readCPUModel(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "model name" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// readCacheSize parses a sysfs cache size such as "32768K".
func readCacheSize(path string) int {
	value := strings.TrimSuffix(ReadSysfsString(path), "K")
	kilobytes, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return kilobytes
}

// probeMemory returns MemTotal and SwapTotal from /proc/meminfo in
// bytes.
func probeMemory(procRoot string) (memory, swap uint64) {
	file, err := os.Open(filepath.Join(procRoot, "meminfo"))
	if err != nil {
		return 0, 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		if len(fields) > 2 && fields[2] == "kB" {
			value *= 1024
		}
		switch fields[0] {
		case "MemTotal:":
			memory = value
		case "SwapTotal:":
			swap = value
		}
	}
	return memory, swap
}

func countNUMANodes(sysRoot string) int {
	entries, err := os.ReadDir(filepath.Join(sysRoot, "devices/system/node"))
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		suffix, ok := strings.CutPrefix(entry.Name(), "node")
		if entry.IsDir() && ok && suffix != "" && suffix[0] >= '0' && suffix[0] <= '9' {
			count++
		}
	}
	return count
}

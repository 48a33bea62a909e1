// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/samcmill/wassail-sub000/lib/testutil"
)

func TestProbeFromSyntheticFS(t *testing.T) {
	root := t.TempDir()
	procRoot := filepath.Join(root, "proc")
	sysRoot := filepath.Join(root, "sys")

	testutil.WriteFile(t, root, "proc/cpuinfo",
		"processor\t: 0\nmodel name\t: AMD EPYC 7763 64-Core Processor\n\n"+
			"processor\t: 1\nmodel name\t: AMD EPYC 7763 64-Core Processor\n\n")
	testutil.WriteFile(t, root, "proc/meminfo",
		"MemTotal:       65536000 kB\nMemFree:        1024 kB\nSwapTotal:       2048 kB\n")
	testutil.WriteFile(t, root, "proc/sys/kernel/osrelease", "6.8.0-45-generic\n")

	// Two sockets, two cores each, two threads per core.
	for i, topology := range []struct{ packageID, coreID, siblings string }{
		{"0", "0", "0,4"},
		{"0", "1", "1,5"},
		{"1", "0", "2,6"},
		{"1", "1", "3,7"},
		{"0", "0", "0,4"},
		{"0", "1", "1,5"},
		{"1", "0", "2,6"},
		{"1", "1", "3,7"},
	} {
		dir := filepath.Join("sys/devices/system/cpu", "cpu"+strconv.Itoa(i), "topology")
		testutil.WriteFile(t, root, filepath.Join(dir, "physical_package_id"), topology.packageID)
		testutil.WriteFile(t, root, filepath.Join(dir, "core_id"), topology.coreID)
		testutil.WriteFile(t, root, filepath.Join(dir, "thread_siblings_list"), topology.siblings)
	}
	// Not CPUs.
	testutil.WriteFile(t, root, "sys/devices/system/cpu/cpufreq/boost", "1")
	testutil.WriteFile(t, root, "sys/devices/system/cpu/cpu0/cache/index3/size", "32768K")

	for _, node := range []string{"node0", "node1", "nodeless"} {
		if err := os.MkdirAll(filepath.Join(sysRoot, "devices/system/node", node), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	testutil.WriteFile(t, root, "sys/class/dmi/id/sys_vendor", "ASUS\n")
	testutil.WriteFile(t, root, "sys/class/dmi/id/board_name", "Pro WS WRX90E-SAGE SE\n")

	gpu := "sys/bus/pci/devices/0000:c3:00.0"
	testutil.WriteFile(t, root, gpu+"/vendor", "0x10DE\n")
	testutil.WriteFile(t, root, gpu+"/device", "0x2330\n")
	testutil.WriteFile(t, root, gpu+"/class", "0x030200\n")
	driverDir := filepath.Join(sysRoot, "bus/pci/drivers/nvidia")
	if err := os.MkdirAll(driverDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(driverDir, filepath.Join(root, gpu, "driver")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	nic := "sys/bus/pci/devices/0000:01:00.0"
	testutil.WriteFile(t, root, nic+"/vendor", "0x15b3\n")
	testutil.WriteFile(t, root, nic+"/device", "0x1021\n")
	testutil.WriteFile(t, root, nic+"/class", "0x020700\n")

	inventory := probeFrom(procRoot, sysRoot)

	if inventory.BoardVendor != "ASUS" || inventory.BoardName != "Pro WS WRX90E-SAGE SE" {
		t.Errorf("board = %q / %q", inventory.BoardVendor, inventory.BoardName)
	}
	if inventory.KernelVersion != "6.8.0-45-generic" {
		t.Errorf("KernelVersion = %q", inventory.KernelVersion)
	}
	if inventory.CPU.Model != "AMD EPYC 7763 64-Core Processor" {
		t.Errorf("CPU.Model = %q", inventory.CPU.Model)
	}
	if inventory.CPU.Sockets != 2 || inventory.CPU.CoresPerSocket != 2 || inventory.CPU.ThreadsPerCore != 2 {
		t.Errorf("topology = %+v, want 2 sockets x 2 cores x 2 threads", inventory.CPU)
	}
	if inventory.CPU.LogicalCPUs() != 8 {
		t.Errorf("LogicalCPUs = %d, want 8", inventory.CPU.LogicalCPUs())
	}
	if inventory.CPU.L3CacheKB != 32768 {
		t.Errorf("L3CacheKB = %d", inventory.CPU.L3CacheKB)
	}
	if inventory.MemoryTotalBytes != 65536000*1024 {
		t.Errorf("MemoryTotalBytes = %d", inventory.MemoryTotalBytes)
	}
	if inventory.SwapTotalBytes != 2048*1024 {
		t.Errorf("SwapTotalBytes = %d", inventory.SwapTotalBytes)
	}
	if inventory.NUMANodes != 2 {
		t.Errorf("NUMANodes = %d, want 2", inventory.NUMANodes)
	}

	if len(inventory.PCIDevices) != 2 {
		t.Fatalf("PCIDevices = %+v, want 2", inventory.PCIDevices)
	}
	first, second := inventory.PCIDevices[0], inventory.PCIDevices[1]
	if first.Slot != "0000:01:00.0" || first.Vendor != "Mellanox" || first.Driver != "" {
		t.Errorf("first device = %+v", first)
	}
	if second.Vendor != "NVIDIA" || second.VendorID != "10de" || second.DeviceID != "2330" ||
		second.Class != "030200" || second.Driver != "nvidia" {
		t.Errorf("second device = %+v", second)
	}
}

func TestProbeFromEmptyFS(t *testing.T) {
	root := t.TempDir()
	inventory := probeFrom(filepath.Join(root, "proc"), filepath.Join(root, "sys"))

	if inventory.CPU.Model != "" || inventory.CPU.Sockets != 0 || inventory.CPU.CoresPerSocket != 0 {
		t.Errorf("CPU = %+v, want zero topology", inventory.CPU)
	}
	if inventory.CPU.ThreadsPerCore != 1 {
		t.Errorf("ThreadsPerCore = %d, want 1 when unknown", inventory.CPU.ThreadsPerCore)
	}
	if inventory.MemoryTotalBytes != 0 || inventory.NUMANodes != 0 || inventory.PCIDevices != nil {
		t.Errorf("inventory = %+v, want zero values", inventory)
	}
}

func TestCountCPUList(t *testing.T) {
	tests := map[string]int{
		"":       1,
		"0":      1,
		"0,96":   2,
		"0-1":    2,
		"0-3,8":  5,
		"3-1":    1,
		"a-b":    1,
		"0,2,4":  3,
	}
	for list, want := range tests {
		if got := countCPUList(list); got != want {
			t.Errorf("countCPUList(%q) = %d, want %d", list, got, want)
		}
	}
}

func TestPCIVendorName(t *testing.T) {
	tests := map[string]string{
		"10de": "NVIDIA",
		"8086": "Intel",
		"1002": "AMD",
		"abcd": "0xabcd",
		"":     "",
	}
	for id, want := range tests {
		if got := PCIVendorName(id); got != want {
			t.Errorf("PCIVendorName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestProbeRealMachine(t *testing.T) {
	if _, err := os.Stat("/proc/meminfo"); err != nil {
		t.Skip("no /proc/meminfo")
	}
	inventory := Probe()
	if inventory.MemoryTotalBytes == 0 {
		t.Error("MemoryTotalBytes = 0 on a machine with /proc/meminfo")
	}
}

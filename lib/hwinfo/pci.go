// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PCIDevice is one entry of /sys/bus/pci/devices.
type PCIDevice struct {
	Slot     string `json:"slot"`
	Vendor   string `json:"vendor"`
	VendorID string `json:"vendor_id"`
	DeviceID string `json:"device_id"`
	Class    string `json:"class"`
	Driver   string `json:"driver"`
}

// probePCI lists PCI devices sorted by slot.
func probePCI(sysRoot string) []PCIDevice {
	base := filepath.Join(sysRoot, "bus/pci/devices")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	devices := make([]PCIDevice, 0, len(entries))
	for _, entry := range entries {
		devicePath := filepath.Join(base, entry.Name())
		vendorID := trimHexPrefix(ReadSysfsString(filepath.Join(devicePath, "vendor")))
		devices = append(devices, PCIDevice{
			Slot:     entry.Name(),
			Vendor:   PCIVendorName(vendorID),
			VendorID: vendorID,
			DeviceID: trimHexPrefix(ReadSysfsString(filepath.Join(devicePath, "device"))),
			Class:    trimHexPrefix(ReadSysfsString(filepath.Join(devicePath, "class"))),
			Driver:   ReadDriverName(devicePath),
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Slot < devices[j].Slot })
	return devices
}

func trimHexPrefix(value string) string {
	return strings.ToLower(strings.TrimPrefix(value, "0x"))
}

// ReadDriverName returns the kernel driver bound to a device: the
// basename of its "driver" symlink.
func ReadDriverName(devicePath string) string {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}

// PCIVendorName maps a lowercase hexadecimal PCI vendor id to a name.
// Unknown vendors are returned as "0x" followed by the id.
func PCIVendorName(vendorID string) string {
	switch vendorID {
	case "":
		return ""
	case "1002":
		return "AMD"
	case "1022":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	case "15b3":
		return "Mellanox"
	case "14e4":
		return "Broadcom"
	case "1077":
		return "QLogic"
	case "1af4":
		return "Red Hat (virtio)"
	default:
		return fmt.Sprintf("0x%s", vendorID)
	}
}

// ReadSysfsString reads a single-line sysfs file and returns its
// trimmed content, or "" on any error.
func ReadSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

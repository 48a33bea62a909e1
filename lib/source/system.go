// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"

	"github.com/samcmill/wassail-sub000/lib/hwinfo"
)

const isLinux = runtime.GOOS == "linux"

// Environment records the collector's own process environment.
type Environment struct {
	snapshot[map[string]string]
}

// NewEnvironment returns an environment collector.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{}
	e.setup("environment", true, collectEnvironment, opts)
	return e
}

func collectEnvironment(context.Context) (map[string]string, error) {
	variables := make(map[string]string)
	for _, entry := range os.Environ() {
		key, value, _ := strings.Cut(entry, "=")
		if key != "" {
			variables[key] = value
		}
	}
	return variables, nil
}

// LoadAverage is the 1, 5, and 15 minute run queue average.
type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Getloadavg records the system load average.
type Getloadavg struct {
	snapshot[LoadAverage]
}

// NewGetloadavg returns a getloadavg collector.
func NewGetloadavg(opts ...Option) *Getloadavg {
	g := &Getloadavg{}
	g.setup("getloadavg", true, collectLoadAverage, opts)
	return g
}

func collectLoadAverage(ctx context.Context) (LoadAverage, error) {
	average, err := load.AvgWithContext(ctx)
	if err != nil {
		return LoadAverage{}, fmt.Errorf("reading load average: %w", err)
	}
	return LoadAverage{Load1: average.Load1, Load5: average.Load5, Load15: average.Load15}, nil
}

// FileSystem is one mounted file system with its statfs(2) counters.
type FileSystem struct {
	Bsize  uint64 `json:"bsize"`
	Frsize uint64 `json:"frsize"`
	Blocks uint64 `json:"blocks"`
	Bfree  uint64 `json:"bfree"`
	Bavail uint64 `json:"bavail"`
	Files  uint64 `json:"files"`
	Ffree  uint64 `json:"ffree"`
	Favail uint64 `json:"favail"`
	Fsid   uint64 `json:"fsid"`
	Flag   uint64 `json:"flag"`
	Fsname string `json:"fsname"`
	Dir    string `json:"dir"`
	Type   string `json:"type"`
}

// MountTable is the data of the getmntent collector.
type MountTable struct {
	FileSystems []FileSystem `json:"file_systems"`
}

// Getmntent records every mounted file system and its capacity.
type Getmntent struct {
	snapshot[MountTable]
}

// NewGetmntent returns a getmntent collector.
func NewGetmntent(opts ...Option) *Getmntent {
	g := &Getmntent{}
	g.setup("getmntent", isLinux, g.collectMounts, opts)
	return g
}

func (g *Getmntent) collectMounts(ctx context.Context) (MountTable, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return MountTable{}, fmt.Errorf("reading mount table: %w", err)
	}
	table := MountTable{FileSystems: make([]FileSystem, 0, len(partitions))}
	for _, partition := range partitions {
		var stat unix.Statfs_t
		if err := unix.Statfs(partition.Mountpoint, &stat); err != nil {
			// Stale network mounts and unreadable autofs points.
			g.logger.Debug("statfs failed", "dir", partition.Mountpoint, "error", err)
			continue
		}
		table.FileSystems = append(table.FileSystems, FileSystem{
			Bsize:  uint64(stat.Bsize),
			Frsize: uint64(stat.Frsize),
			Blocks: uint64(stat.Blocks),
			Bfree:  uint64(stat.Bfree),
			Bavail: uint64(stat.Bavail),
			Files:  uint64(stat.Files),
			Ffree:  uint64(stat.Ffree),
			// statfs(2) has no favail; statvfs(3) derives it from ffree.
			Favail: uint64(stat.Ffree),
			Fsid:   uint64(uint32(stat.Fsid.Val[0])) | uint64(uint32(stat.Fsid.Val[1]))<<32,
			Flag:   uint64(stat.Flags),
			Fsname: partition.Device,
			Dir:    partition.Mountpoint,
			Type:   partition.Fstype,
		})
	}
	return table, nil
}

// Limits holds one value per resource limit.
type Limits struct {
	Core    uint64 `json:"core"`
	CPU     uint64 `json:"cpu"`
	Data    uint64 `json:"data"`
	Fsize   uint64 `json:"fsize"`
	Memlock uint64 `json:"memlock"`
	Nofile  uint64 `json:"nofile"`
	Nproc   uint64 `json:"nproc"`
	RSS     uint64 `json:"rss"`
	Stack   uint64 `json:"stack"`
}

// ResourceLimits is the data of the getrlimit collector. Unlimited
// values are RLIM_INFINITY (the maximum uint64).
type ResourceLimits struct {
	Soft Limits `json:"soft"`
	Hard Limits `json:"hard"`
}

// Getrlimit records the collector's own resource limits.
type Getrlimit struct {
	snapshot[ResourceLimits]
}

// NewGetrlimit returns a getrlimit collector.
func NewGetrlimit(opts ...Option) *Getrlimit {
	g := &Getrlimit{}
	g.setup("getrlimit", true, collectResourceLimits, opts)
	return g
}

func collectResourceLimits(context.Context) (ResourceLimits, error) {
	var limits ResourceLimits
	for _, resource := range []struct {
		id         int
		soft, hard *uint64
	}{
		{unix.RLIMIT_CORE, &limits.Soft.Core, &limits.Hard.Core},
		{unix.RLIMIT_CPU, &limits.Soft.CPU, &limits.Hard.CPU},
		{unix.RLIMIT_DATA, &limits.Soft.Data, &limits.Hard.Data},
		{unix.RLIMIT_FSIZE, &limits.Soft.Fsize, &limits.Hard.Fsize},
		{unix.RLIMIT_MEMLOCK, &limits.Soft.Memlock, &limits.Hard.Memlock},
		{unix.RLIMIT_NOFILE, &limits.Soft.Nofile, &limits.Hard.Nofile},
		{unix.RLIMIT_NPROC, &limits.Soft.Nproc, &limits.Hard.Nproc},
		{unix.RLIMIT_RSS, &limits.Soft.RSS, &limits.Hard.RSS},
		{unix.RLIMIT_STACK, &limits.Soft.Stack, &limits.Hard.Stack},
	} {
		var limit unix.Rlimit
		if err := unix.Getrlimit(resource.id, &limit); err != nil {
			return ResourceLimits{}, fmt.Errorf("getrlimit(%d): %w", resource.id, err)
		}
		*resource.soft = limit.Cur
		*resource.hard = limit.Max
	}
	return limits, nil
}

// SysconfData is the data of the sysconf collector.
type SysconfData struct {
	NProcessorsConf int64 `json:"nprocessors_conf"`
	NProcessorsOnln int64 `json:"nprocessors_onln"`
	PageSize        int64 `json:"page_size"`
	PhysPages       int64 `json:"phys_pages"`
}

// Sysconf records processor, page, and memory configuration.
type Sysconf struct {
	snapshot[SysconfData]
}

// NewSysconf returns a sysconf collector.
func NewSysconf(opts ...Option) *Sysconf {
	s := &Sysconf{}
	s.setup("sysconf", true, collectSysconf, opts)
	return s
}

func collectSysconf(context.Context) (SysconfData, error) {
	var data SysconfData
	for _, variable := range []struct {
		name   int
		target *int64
	}{
		{sysconf.SC_NPROCESSORS_CONF, &data.NProcessorsConf},
		{sysconf.SC_NPROCESSORS_ONLN, &data.NProcessorsOnln},
		{sysconf.SC_PAGE_SIZE, &data.PageSize},
		{sysconf.SC_PHYS_PAGES, &data.PhysPages},
	} {
		value, err := sysconf.Sysconf(variable.name)
		if err != nil {
			return SysconfData{}, fmt.Errorf("sysconf(%d): %w", variable.name, err)
		}
		*variable.target = value
	}
	return data, nil
}

// loadsScale is the fixed-point scale of sysinfo(2) load averages.
const loadsScale = 1 << 16

// SysinfoData is the data of the sysinfo collector. Memory sizes are
// in units of MemUnit bytes.
type SysinfoData struct {
	Uptime     int64  `json:"uptime"`
	Load1      uint64 `json:"load1"`
	Load5      uint64 `json:"load5"`
	Load15     uint64 `json:"load15"`
	LoadsScale uint64 `json:"loads_scale"`
	TotalRAM   uint64 `json:"totalram"`
	FreeRAM    uint64 `json:"freeram"`
	SharedRAM  uint64 `json:"sharedram"`
	BufferRAM  uint64 `json:"bufferram"`
	TotalSwap  uint64 `json:"totalswap"`
	FreeSwap   uint64 `json:"freeswap"`
	Procs      uint64 `json:"procs"`
	TotalHigh  uint64 `json:"totalhigh"`
	FreeHigh   uint64 `json:"freehigh"`
	MemUnit    uint64 `json:"mem_unit"`
}

// Sysinfo records overall system statistics.
type Sysinfo struct {
	snapshot[SysinfoData]
}

// NewSysinfo returns a sysinfo collector.
func NewSysinfo(opts ...Option) *Sysinfo {
	s := &Sysinfo{}
	s.setup("sysinfo", isLinux, collectSysinfo, opts)
	return s
}

func collectSysinfo(context.Context) (SysinfoData, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return SysinfoData{}, fmt.Errorf("sysinfo: %w", err)
	}
	return SysinfoData{
		Uptime:     int64(info.Uptime),
		Load1:      uint64(info.Loads[0]),
		Load5:      uint64(info.Loads[1]),
		Load15:     uint64(info.Loads[2]),
		LoadsScale: loadsScale,
		TotalRAM:   uint64(info.Totalram),
		FreeRAM:    uint64(info.Freeram),
		SharedRAM:  uint64(info.Sharedram),
		BufferRAM:  uint64(info.Bufferram),
		TotalSwap:  uint64(info.Totalswap),
		FreeSwap:   uint64(info.Freeswap),
		Procs:      uint64(info.Procs),
		TotalHigh:  uint64(info.Totalhigh),
		FreeHigh:   uint64(info.Freehigh),
		MemUnit:    uint64(info.Unit),
	}, nil
}

// UnameData is the data of the uname collector.
type UnameData struct {
	Sysname  string `json:"sysname"`
	Nodename string `json:"nodename"`
	Release  string `json:"release"`
	Version  string `json:"version"`
	Machine  string `json:"machine"`
}

// Uname records the kernel identification.
type Uname struct {
	snapshot[UnameData]
}

// NewUname returns a uname collector.
func NewUname(opts ...Option) *Uname {
	u := &Uname{}
	u.setup("uname", true, collectUname, opts)
	return u
}

func collectUname(context.Context) (UnameData, error) {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		return UnameData{}, fmt.Errorf("uname: %w", err)
	}
	return UnameData{
		Sysname:  unix.ByteSliceToString(name.Sysname[:]),
		Nodename: unix.ByteSliceToString(name.Nodename[:]),
		Release:  unix.ByteSliceToString(name.Release[:]),
		Version:  unix.ByteSliceToString(name.Version[:]),
		Machine:  unix.ByteSliceToString(name.Machine[:]),
	}, nil
}

// HWInfo records the hardware inventory.
type HWInfo struct {
	snapshot[hwinfo.Inventory]
}

// NewHWInfo returns an hwinfo collector.
func NewHWInfo(opts ...Option) *HWInfo {
	h := &HWInfo{}
	h.setup("hwinfo", isLinux, func(context.Context) (hwinfo.Inventory, error) {
		return hwinfo.Probe(), nil
	}, opts)
	return h
}

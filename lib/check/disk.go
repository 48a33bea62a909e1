// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"fmt"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// mountedFilesystem is the part of a mount table entry the disk
// checks read.
type mountedFilesystem struct {
	Dir    string `json:"dir"`
	Bsize  uint64 `json:"bsize"`
	Blocks uint64 `json:"blocks"`
	Bavail uint64 `json:"bavail"`
}

// mountTables find a mount point in each document kind that lists
// mounted filesystems. found is false when nothing is mounted there.
var mountTables = map[string]func(doc document.Document, dir string) (entry mountedFilesystem, found bool, err error){
	"getmntent": func(doc document.Document, dir string) (mountedFilesystem, bool, error) {
		entries, err := document.Get[[]mountedFilesystem](doc, "/data/file_systems")
		if err != nil {
			return mountedFilesystem{}, false, err
		}
		for _, entry := range entries {
			if entry.Dir == dir {
				return entry, true, nil
			}
		}
		return mountedFilesystem{}, false, nil
	},
}

func findMount(check string, doc document.Document, dir string) (mountedFilesystem, bool, error) {
	find, ok := mountTables[doc.Name()]
	if !ok {
		return mountedFilesystem{}, false, unrecognized(check, doc, mountTables)
	}
	entry, found, err := find(doc, dir)
	if err != nil {
		return mountedFilesystem{}, false, fmt.Errorf("%s: unable to perform check: %w", check, err)
	}
	return entry, found, nil
}

// AmountFree checks that a filesystem has at least Amount bytes
// available to unprivileged users. Its results are always at warning
// priority.
type AmountFree struct {
	Filesystem string
	Amount     uint64
	Templates  Templates
}

// NewAmountFree returns a free space check for the filesystem mounted
// at filesystem.
func NewAmountFree(filesystem string, amount uint64) *AmountFree {
	return &AmountFree{
		Filesystem: filesystem,
		Amount:     amount,
		Templates: Templates{
			Brief:       "Checking amount of free disk space on filesystem '%[1]s'",
			DetailYes:   "Observed amount of free disk space %[2]d %[4]s is less than reference threshold value %[3]d %[4]s",
			DetailMaybe: "Unable to check amount of free disk space on filesystem '%[1]s'",
			DetailNo:    "Observed amount of free disk space %[2]d %[4]s is greater than or equal to the reference threshold value %[3]d %[4]s",
		},
	}
}

func (a *AmountFree) Name() string { return "disk/amount_free" }

func (a *AmountFree) Check(doc document.Document) (*result.Result, error) {
	entry, found, err := findMount(a.Name(), doc, a.Filesystem)
	if err != nil {
		return nil, err
	}
	amount := entry.Bavail * entry.Bsize

	r := result.FromDocument(doc)
	r.FormatBrief(a.Templates.Brief, a.Filesystem)
	r.Priority = result.Warning
	args := []any{a.Filesystem, amount, a.Amount, "bytes"}
	switch {
	case !found:
		r.Issue = result.Maybe
		r.FormatDetail(a.Templates.DetailMaybe, args...)
	case amount < a.Amount:
		r.Issue = result.Yes
		r.FormatDetail(a.Templates.DetailYes, args...)
	default:
		r.Issue = result.No
		r.FormatDetail(a.Templates.DetailNo, args...)
	}
	return r, nil
}

// PercentFree checks that at least Percent of a filesystem's blocks
// are available to unprivileged users. Its results are always at
// warning priority.
type PercentFree struct {
	Filesystem string
	Percent    float64
	Templates  Templates
}

// NewPercentFree returns a free space check for the filesystem mounted
// at filesystem.
func NewPercentFree(filesystem string, percent float64) *PercentFree {
	return &PercentFree{
		Filesystem: filesystem,
		Percent:    percent,
		Templates: Templates{
			Brief:       "Checking percent free disk space of filesystem '%[1]s'",
			DetailYes:   "Observed percent free disk space %.1[2]f%% is less than reference threshold value %.1[3]f%%",
			DetailMaybe: "Unable to check percent free disk space of filesystem '%[1]s'",
			DetailNo:    "Observed percent free disk space %.1[2]f%% is greater than or equal to the reference threshold value %.1[3]f%%",
		},
	}
}

func (p *PercentFree) Name() string { return "disk/percent_free" }

func (p *PercentFree) Check(doc document.Document) (*result.Result, error) {
	entry, found, err := findMount(p.Name(), doc, p.Filesystem)
	if err != nil {
		return nil, err
	}
	// A filesystem without blocks (proc, sysfs) has no meaningful
	// percentage.
	found = found && entry.Blocks > 0
	var percent float64
	if found {
		percent = 100 * float64(entry.Bavail) / float64(entry.Blocks)
	}

	r := result.FromDocument(doc)
	r.FormatBrief(p.Templates.Brief, p.Filesystem)
	r.Priority = result.Warning
	args := []any{p.Filesystem, percent, p.Percent}
	switch {
	case !found:
		r.Issue = result.Maybe
		r.FormatDetail(p.Templates.DetailMaybe, args...)
	case percent < p.Percent:
		r.Issue = result.Yes
		r.FormatDetail(p.Templates.DetailYes, args...)
	default:
		r.Issue = result.No
		r.FormatDetail(p.Templates.DetailNo, args...)
	}
	return r, nil
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"errors"
	"slices"
	"testing"
)

func TestNewBuildsEveryCheck(t *testing.T) {
	options := Options{
		Expected:   4,
		Filesystem: "/",
		Amount:     1 << 30,
		Percent:    10,
		Mode:       "0600",
		Size:       16 << 30,
		Tolerance:  1 << 28,
		Variable:   "PATH",
		Value:      "/usr/bin",
		Output:     "ok",
		Minutes:    15,
		Threshold:  8,
		Pointer:    "/data/page_size",
		Operator:   "eq",
		Reference:  4096,
	}
	for _, name := range Names() {
		c, err := New(name, options)
		if err != nil {
			t.Errorf("New(%q): %v", name, err)
			continue
		}
		if c.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, c.Name())
		}
	}
	if !slices.IsSorted(Names()) || len(Names()) != 9 {
		t.Errorf("Names() = %v", Names())
	}
}

func TestNewConfiguresChecks(t *testing.T) {
	c, err := New("file/permissions", Options{Mode: "0640"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if mode := c.(*Permissions).Mode; mode != 0o640 {
		t.Errorf("mode = %o, want 640", mode)
	}

	c, err = New("misc/load_average", Options{Threshold: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if minutes := c.(*LoadAverage).Minutes; minutes != 1 {
		t.Errorf("default minutes = %d, want 1", minutes)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name    string
		options Options
	}{
		{"cpu/core_count", Options{}},
		{"disk/amount_free", Options{}},
		{"disk/percent_free", Options{Filesystem: "/", Percent: 150}},
		{"file/permissions", Options{Mode: "rw-r--r--"}},
		{"file/permissions", Options{Mode: "17777"}},
		{"memory/physical_size", Options{}},
		{"misc/environment", Options{Value: "x"}},
		{"misc/environment", Options{Variable: "PATH", Value: "(", Regex: true}},
		{"misc/load_average", Options{Minutes: 10}},
		{"misc/shell_output", Options{Output: "[", Regex: true}},
		{"compare", Options{Pointer: "/data/x", Operator: "between", Reference: 1}},
	}
	for _, test := range tests {
		if _, err := New(test.name, test.options); err == nil {
			t.Errorf("New(%q, %+v) succeeded", test.name, test.options)
		}
	}

	if _, err := New("gpu/temperature", Options{}); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("New(unknown) = %v, want ErrUnrecognized", err)
	}
}

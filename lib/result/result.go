// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samcmill/wassail-sub000/lib/document"
)

// Result is one node of a result tree.
type Result struct {
	Action   string
	Brief    string
	Detail   string
	Issue    Issue
	Priority Priority

	// SystemID names the hosts the result applies to. Usually one.
	SystemID []string

	Timestamp time.Time

	mu       sync.Mutex
	children []*Result
	attached atomic.Bool
}

// New returns a result with the defaults: Maybe, Notice, the Unix
// epoch, no system.
func New() *Result {
	return &Result{
		Issue:     Maybe,
		Priority:  Notice,
		SystemID:  []string{},
		Timestamp: time.Unix(0, 0).UTC(),
	}
}

// FromDocument returns a default result stamped with the hostname and
// timestamp of doc.
func FromDocument(doc document.Document) *Result {
	r := New()
	if hostname := doc.Hostname(); hostname != "" {
		r.SystemID = []string{hostname}
	}
	r.Timestamp = doc.Timestamp()
	return r
}

// AddChild appends child. It is safe to call from several goroutines.
// A node has at most one parent: attaching a node twice, or to
// itself, panics.
func (r *Result) AddChild(child *Result) {
	if child == nil {
		panic("result: nil child")
	}
	if child == r {
		panic("result: node added as its own child")
	}
	if !child.attached.CompareAndSwap(false, true) {
		panic("result: child already has a parent")
	}
	r.mu.Lock()
	r.children = append(r.children, child)
	r.mu.Unlock()
}

// Children returns a snapshot of the direct children in insertion
// order.
func (r *Result) Children() []*Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]*Result, len(r.children))
	copy(snapshot, r.children)
	return snapshot
}

// Flatten returns every descendant, depth first. The node itself is
// not included.
func (r *Result) Flatten() []*Result {
	var flat []*Result
	var walk func(*Result)
	walk = func(node *Result) {
		for _, child := range node.Children() {
			flat = append(flat, child)
			walk(child)
		}
	}
	walk(r)
	return flat
}

// MaxIssue returns the worst issue among the descendants, or Maybe
// when there are none.
func (r *Result) MaxIssue() Issue {
	flat := r.Flatten()
	if len(flat) == 0 {
		return Maybe
	}
	worst := flat[0].Issue
	for _, node := range flat[1:] {
		worst = max(worst, node.Issue)
	}
	return worst
}

// MaxPriority returns the most severe priority among the descendants,
// or Notice when there are none.
func (r *Result) MaxPriority() Priority {
	flat := r.Flatten()
	if len(flat) == 0 {
		return Notice
	}
	worst := flat[0].Priority
	for _, node := range flat[1:] {
		worst = max(worst, node.Priority)
	}
	return worst
}

// MatchIssue reports whether any descendant has the given issue.
func (r *Result) MatchIssue(issue Issue) bool {
	for _, node := range r.Flatten() {
		if node.Issue == issue {
			return true
		}
	}
	return false
}

// MatchPriority reports whether any descendant has the given priority.
func (r *Result) MatchPriority(priority Priority) bool {
	for _, node := range r.Flatten() {
		if node.Priority == priority {
			return true
		}
	}
	return false
}

// Propagate sets the node's issue and priority to the worst among its
// descendants.
func (r *Result) Propagate() {
	r.Issue = r.MaxIssue()
	r.Priority = r.MaxPriority()
}

// FormatBrief sets Brief from a fmt template.
func (r *Result) FormatBrief(template string, args ...any) {
	r.Brief = format(template, args)
}

// FormatDetail sets Detail from a fmt template.
func (r *Result) FormatDetail(template string, args ...any) {
	r.Detail = format(template, args)
}

// FormatAction sets Action from a fmt template.
func (r *Result) FormatAction(template string, args ...any) {
	r.Action = format(template, args)
}

// format leaves templates without verbs alone so that a fixed message
// given arguments does not grow a %!(EXTRA ...) suffix.
func format(template string, args []any) string {
	if len(args) == 0 || !strings.Contains(template, "%") {
		return template
	}
	return fmt.Sprintf(template, args...)
}

// wire is the JSON form of a Result.
type wire struct {
	Action    string    `json:"action"`
	Brief     string    `json:"brief"`
	Children  []*Result `json:"children"`
	Detail    string    `json:"detail"`
	Issue     Issue     `json:"issue"`
	Priority  Priority  `json:"priority"`
	SystemID  []string  `json:"system_id"`
	Timestamp int64     `json:"timestamp"`
}

// MarshalJSON encodes the subtree rooted at r.
func (r *Result) MarshalJSON() ([]byte, error) {
	systemID := r.SystemID
	if systemID == nil {
		systemID = []string{}
	}
	return json.Marshal(wire{
		Action:    r.Action,
		Brief:     r.Brief,
		Children:  r.Children(),
		Detail:    r.Detail,
		Issue:     r.Issue,
		Priority:  r.Priority,
		SystemID:  systemID,
		Timestamp: r.Timestamp.Unix(),
	})
}

// UnmarshalJSON decodes a subtree into r, which must be a fresh node.
func (r *Result) UnmarshalJSON(data []byte) error {
	decoded := wire{Issue: Maybe, Priority: Notice}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	r.Action = decoded.Action
	r.Brief = decoded.Brief
	r.Detail = decoded.Detail
	r.Issue = decoded.Issue
	r.Priority = decoded.Priority
	r.SystemID = decoded.SystemID
	if r.SystemID == nil {
		r.SystemID = []string{}
	}
	r.Timestamp = time.Unix(decoded.Timestamp, 0).UTC()
	for _, child := range decoded.Children {
		if child != nil {
			r.AddChild(child)
		}
	}
	return nil
}

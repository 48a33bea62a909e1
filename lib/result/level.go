// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"fmt"
	"strings"
)

// Issue states whether a result represents a problem. The values are
// ordered: a larger Issue is worse.
type Issue int

const (
	// No means the check passed.
	No Issue = 0
	// Maybe means the check could not decide.
	Maybe Issue = 1
	// Yes means the check found a problem.
	Yes Issue = 2
)

var issueNames = [...]string{No: "no", Maybe: "maybe", Yes: "yes"}

func (i Issue) String() string {
	if i >= No && i <= Yes {
		return issueNames[i]
	}
	return fmt.Sprintf("issue(%d)", int(i))
}

// ParseIssue accepts the names returned by String, case-insensitively.
func ParseIssue(name string) (Issue, error) {
	for i, candidate := range issueNames {
		if strings.EqualFold(name, candidate) {
			return Issue(i), nil
		}
	}
	return Maybe, fmt.Errorf("unknown issue %q", name)
}

// Priority is the severity of a result, the RFC 5424 levels in
// ascending order: a larger Priority is more severe.
type Priority int

const (
	Debug     Priority = 0
	Info      Priority = 1
	Notice    Priority = 2
	Warning   Priority = 3
	Error     Priority = 4
	Critical  Priority = 5
	Alert     Priority = 6
	Emergency Priority = 7
)

var priorityNames = [...]string{
	Debug:     "debug",
	Info:      "info",
	Notice:    "notice",
	Warning:   "warning",
	Error:     "error",
	Critical:  "critical",
	Alert:     "alert",
	Emergency: "emergency",
}

func (p Priority) String() string {
	if p >= Debug && p <= Emergency {
		return priorityNames[p]
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority accepts the names returned by String,
// case-insensitively.
func ParsePriority(name string) (Priority, error) {
	for i, candidate := range priorityNames {
		if strings.EqualFold(name, candidate) {
			return Priority(i), nil
		}
	}
	return Notice, fmt.Errorf("unknown priority %q", name)
}

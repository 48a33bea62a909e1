// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// DefaultRulesTemplates are the templates of a bare rules engine.
var DefaultRulesTemplates = Templates{
	Brief:       "Checking data against rules",
	DetailYes:   "Rule criteria not met",
	DetailMaybe: "Unable to perform comparison: '%[1]v'",
	DetailNo:    "Rule criteria met",
}

// RulesEngine checks a document against a list of rules. Every rule
// must hold for the result to report no issue.
//
// A RulesEngine is not safe for concurrent AddRule; concrete checks
// build a fresh engine per call.
type RulesEngine struct {
	Templates Templates

	// Logger receives inconclusive rule evaluations. Nil means
	// slog.Default().
	Logger *slog.Logger

	accept []string
	rules  []Rule
}

// NewRulesEngine returns an engine with the given templates. When
// accept is non-empty, documents whose name is not listed are
// rejected with [ErrUnrecognized].
func NewRulesEngine(templates Templates, accept ...string) *RulesEngine {
	return &RulesEngine{Templates: templates, accept: accept}
}

// Name identifies the engine as a check.
func (e *RulesEngine) Name() string { return "rules_engine" }

// AddRule appends rule. Rules run in the order they were added.
func (e *RulesEngine) AddRule(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Check applies the rules and formats the result from the templates
// without arguments.
func (e *RulesEngine) Check(doc document.Document) (*result.Result, error) {
	return e.CheckWith(doc)
}

// CheckWith applies the rules and formats the brief and the yes/no
// detail with args. The maybe detail is always formatted with the
// error that made the evaluation inconclusive.
func (e *RulesEngine) CheckWith(doc document.Document, args ...any) (*result.Result, error) {
	if len(e.accept) > 0 && !slices.Contains(e.accept, doc.Name()) {
		return nil, fmt.Errorf("%w: rules accept %v documents, not %q", ErrUnrecognized, e.accept, doc.Name())
	}

	r := result.FromDocument(doc)
	r.FormatBrief(e.Templates.Brief, args...)

	passed, err := e.apply(doc)
	switch {
	case err != nil:
		loggerOr(e.Logger).Warn("rule evaluation inconclusive",
			"document", doc.Name(),
			"hostname", doc.Hostname(),
			"error", err)
		r.Issue = result.Maybe
		r.FormatDetail(e.Templates.DetailMaybe, err)
	case passed:
		r.Issue = result.No
		r.Priority = result.Info
		r.FormatDetail(e.Templates.DetailNo, args...)
	default:
		r.Issue = result.Yes
		r.Priority = result.Warning
		r.FormatDetail(e.Templates.DetailYes, args...)
	}
	return r, nil
}

// apply runs the rules in order and stops at the first one that is
// false or fails.
func (e *RulesEngine) apply(doc document.Document) (bool, error) {
	for index, rule := range e.rules {
		ok, err := evaluateRule(rule, doc)
		if err != nil {
			return false, fmt.Errorf("rule %d: %w", index, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateRule(rule Rule, doc document.Document) (ok bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok, err = false, fmt.Errorf("panic: %v", recovered)
		}
	}()
	return rule(doc)
}

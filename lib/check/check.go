// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
	"github.com/samcmill/wassail-sub000/lib/source"
)

// ErrUnrecognized is returned when a check is given a document it
// does not know how to read. It is the document package's sentinel so
// callers can test for either.
var ErrUnrecognized = document.ErrUnrecognized

// Check decides whether a document shows an issue.
type Check interface {
	Name() string
	Check(doc document.Document) (*result.Result, error)
}

// Rule is one predicate of a [RulesEngine]. An error means the rule
// could not be evaluated, which is different from false.
type Rule func(doc document.Document) (bool, error)

// Templates are the fmt templates a check formats result text with.
type Templates struct {
	Brief       string
	DetailYes   string
	DetailMaybe string
	DetailNo    string
}

// Run evaluates src, without forcing, and checks its document.
func Run(ctx context.Context, c Check, src source.DataSource) (*result.Result, error) {
	doc, err := source.Run(ctx, src, false)
	if err != nil {
		return nil, fmt.Errorf("%s: evaluating %s: %w", c.Name(), src.Name(), err)
	}
	return c.Check(doc)
}

func loggerOr(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// unrecognized builds the error for a document outside a check's
// extractor table.
func unrecognized[V any](check string, doc document.Document, extractors map[string]V) error {
	return fmt.Errorf("%w: %s reads %v documents, not %q",
		ErrUnrecognized, check, slices.Sorted(maps.Keys(extractors)), doc.Name())
}

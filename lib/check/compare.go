// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"cmp"
	"log/slog"
	"reflect"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// DefaultCompareTemplates are the templates of a bare comparison. The
// brief receives the pointer and the reference value, the yes/no
// details the observed and reference values, and the maybe detail the
// error and the document.
var DefaultCompareTemplates = Templates{
	Brief:       "Comparing value at '%[1]s' to reference value of '%[2]v'",
	DetailYes:   "Comparison of observed value '%[1]v' and reference value '%[2]v' returned false",
	DetailMaybe: "Unable to perform comparison: '%[1]v'",
	DetailNo:    "Comparison of observed value '%[1]v' and reference value '%[2]v' returned true",
}

// Comparison is the configuration shared by [Compare],
// [CompareTransform], and [CompareAll].
type Comparison struct {
	Templates Templates
	Logger    *slog.Logger
}

// DefaultComparison returns a comparison with [DefaultCompareTemplates].
func DefaultComparison() Comparison {
	return Comparison{Templates: DefaultCompareTemplates}
}

// Compare extracts the value at pointer as a T and compares it with
// reference. compare receives the observed value first. A value that is
// missing or not a T makes the result inconclusive.
func Compare[T any](c Comparison, doc document.Document, pointer string, compare func(observed, reference T) bool, reference T) *result.Result {
	return CompareTransform(c, doc, pointer, compare, reference, nil)
}

// CompareTransform is [Compare] with transform applied to the observed
// value before comparing. A transform error makes the result
// inconclusive. A nil transform is the identity.
func CompareTransform[T any](c Comparison, doc document.Document, pointer string, compare func(observed, reference T) bool, reference T, transform func(T) (T, error)) *result.Result {
	r := result.FromDocument(doc)
	r.FormatBrief(c.Templates.Brief, pointer, reference)

	observed, err := document.Get[T](doc, pointer)
	if err == nil && transform != nil {
		observed, err = transform(observed)
	}
	if err != nil {
		loggerOr(c.Logger).Warn("comparison inconclusive",
			"document", doc.Name(),
			"pointer", pointer,
			"error", err)
		r.Issue = result.Maybe
		r.FormatDetail(c.Templates.DetailMaybe, err, doc)
		return r
	}

	if compare(observed, reference) {
		r.Issue = result.No
		r.Priority = result.Info
		r.FormatDetail(c.Templates.DetailNo, observed, reference)
	} else {
		r.Issue = result.Yes
		r.Priority = result.Warning
		r.FormatDetail(c.Templates.DetailYes, observed, reference)
	}
	return r
}

// CompareAll compares the value at pointer in every document. The
// returned result has one child per document, in order, and takes the
// worst issue and priority of its children.
func CompareAll[T any](c Comparison, docs []document.Document, pointer string, compare func(observed, reference T) bool, reference T) *result.Result {
	r := result.New()
	r.FormatBrief("Comparing %[2]d values at '%[1]s' to reference value of '%[3]v'", pointer, len(docs), reference)
	for _, doc := range docs {
		r.AddChild(Compare(c, doc, pointer, compare, reference))
	}
	r.Propagate()
	return r
}

// Comparators for [Compare]. Each receives the observed value first.

func Equal[T comparable](observed, reference T) bool    { return observed == reference }
func NotEqual[T comparable](observed, reference T) bool { return observed != reference }

func Less[T cmp.Ordered](observed, reference T) bool         { return observed < reference }
func LessEqual[T cmp.Ordered](observed, reference T) bool    { return observed <= reference }
func Greater[T cmp.Ordered](observed, reference T) bool      { return observed > reference }
func GreaterEqual[T cmp.Ordered](observed, reference T) bool { return observed >= reference }

// DeepEqual compares with reflect.DeepEqual, for slices and maps.
func DeepEqual[T any](observed, reference T) bool { return reflect.DeepEqual(observed, reference) }

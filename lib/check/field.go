// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/result"
)

// Operators are the comparison names a [FieldCompare] accepts.
var Operators = []string{"eq", "ne", "lt", "le", "gt", "ge", "match"}

// FieldCompare is a comparison built from configuration rather than
// code: the value at Pointer is compared with Reference using the
// named Operator. Numbers compare numerically (exactly for integers),
// strings lexically or, with "match", by regular expression search.
// Booleans, lists, and objects support only eq and ne.
//
// A FieldCompare built as a literal is validated on its first Check
// and must not be modified afterwards. A zero Comparison uses
// [DefaultCompareTemplates].
type FieldCompare struct {
	Pointer   string
	Operator  string
	Reference any

	// Accept limits the document names the comparison applies to.
	// Empty accepts every document.
	Accept []string

	Comparison Comparison

	once       sync.Once
	prepareErr error
	templates  Templates
	reference  any
	convert    func(observed any) (any, error)
	test       func(observed, reference any) bool
}

// NewFieldCompare returns a validated comparison.
func NewFieldCompare(pointer, operator string, reference any, accept ...string) (*FieldCompare, error) {
	f := &FieldCompare{
		Pointer:    pointer,
		Operator:   operator,
		Reference:  reference,
		Accept:     accept,
		Comparison: DefaultComparison(),
	}
	if err := f.prepared(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FieldCompare) Name() string { return "compare" }

func (f *FieldCompare) Check(doc document.Document) (*result.Result, error) {
	if err := f.prepared(); err != nil {
		return nil, err
	}
	if len(f.Accept) > 0 && !slices.Contains(f.Accept, doc.Name()) {
		return nil, fmt.Errorf("%w: compare accepts %v documents, not %q", ErrUnrecognized, f.Accept, doc.Name())
	}
	comparison := f.Comparison
	comparison.Templates = f.templates
	return CompareTransform(comparison, doc, f.Pointer, f.test, f.reference, f.convert), nil
}

// prepared validates the configuration once and returns the outcome
// on every call.
func (f *FieldCompare) prepared() error {
	f.once.Do(func() {
		f.templates = f.Comparison.Templates
		if f.templates == (Templates{}) {
			f.templates = DefaultCompareTemplates
		}
		f.prepareErr = f.prepare()
	})
	return f.prepareErr
}

// prepare validates the configuration and selects the comparator.
func (f *FieldCompare) prepare() error {
	var errs []error
	if !strings.HasPrefix(f.Pointer, "/") {
		errs = append(errs, fmt.Errorf("pointer %q must start with /", f.Pointer))
	}
	if !slices.Contains(Operators, f.Operator) {
		errs = append(errs, fmt.Errorf("unknown operator %q (want one of %s)", f.Operator, strings.Join(Operators, ", ")))
	}
	reference, err := normalize(f.Reference)
	if err != nil {
		errs = append(errs, fmt.Errorf("reference value: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	switch reference := reference.(type) {
	case json.Number:
		test := ordering(f.Operator)
		if test == nil {
			return fmt.Errorf("operator %q does not apply to number %s", f.Operator, reference)
		}
		f.convert = convertTo[json.Number]
		f.test = func(observed, reference any) bool {
			return test(compareNumbers(observed.(json.Number), reference.(json.Number)))
		}
	case string:
		f.convert = convertTo[string]
		if f.Operator == "match" {
			pattern, err := regexp.Compile(reference)
			if err != nil {
				return fmt.Errorf("reference pattern: %w", err)
			}
			f.test = func(observed, _ any) bool {
				return pattern.MatchString(observed.(string))
			}
			break
		}
		test := ordering(f.Operator)
		f.test = func(observed, reference any) bool {
			return test(strings.Compare(observed.(string), reference.(string)))
		}
	default:
		if f.Operator != "eq" && f.Operator != "ne" {
			return fmt.Errorf("operator %q does not apply to %T reference values", f.Operator, reference)
		}
		want := f.Operator == "eq"
		f.convert = nil
		f.test = func(observed, reference any) bool {
			return reflect.DeepEqual(observed, reference) == want
		}
	}
	f.reference = reference
	return nil
}

func convertTo[T any](observed any) (any, error) {
	return document.Convert[T](observed)
}

// ordering maps an operator onto a test of a three-way comparison
// result. It returns nil for operators that are not orderings.
func ordering(operator string) func(int) bool {
	switch operator {
	case "eq":
		return func(c int) bool { return c == 0 }
	case "ne":
		return func(c int) bool { return c != 0 }
	case "lt":
		return func(c int) bool { return c < 0 }
	case "le":
		return func(c int) bool { return c <= 0 }
	case "gt":
		return func(c int) bool { return c > 0 }
	case "ge":
		return func(c int) bool { return c >= 0 }
	}
	return nil
}

// compareNumbers compares integers exactly, including values above
// the int64 range, and everything else as float64.
func compareNumbers(a, b json.Number) int {
	if x, err := a.Int64(); err == nil {
		if y, err := b.Int64(); err == nil {
			return cmp.Compare(x, y)
		}
	}
	if x, err := strconv.ParseUint(a.String(), 10, 64); err == nil {
		if y, err := strconv.ParseUint(b.String(), 10, 64); err == nil {
			return cmp.Compare(x, y)
		}
	}
	x, _ := a.Float64()
	y, _ := b.Float64()
	return cmp.Compare(x, y)
}

// normalize gives a configured reference value the shape values have
// inside a document: numbers become json.Number, lists []any, and
// objects map[string]any.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, errors.New("missing")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var normalized any
	if err := decoder.Decode(&normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

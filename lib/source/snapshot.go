// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"

	"github.com/samcmill/wassail-sub000/lib/document"
)

// snapshot is a collector without configuration whose data is one
// value of type D read from the running system.
type snapshot[D any] struct {
	common
	data    D
	collect func(ctx context.Context) (D, error)
}

func (s *snapshot[D]) setup(name string, enabled bool, collect func(context.Context) (D, error), opts []Option) {
	s.init(name, enabled, opts)
	s.collect = collect
}

// Data returns the collected value.
func (s *snapshot[D]) Data() D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *snapshot[D]) Evaluate(ctx context.Context, force bool) error {
	return s.evaluate(ctx, force, false, func(ctx context.Context) error {
		data, err := s.collect(ctx)
		if err != nil {
			return err
		}
		s.data = data
		return nil
	})
}

func (s *snapshot[D]) ToDocument() (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encode[struct{}](&s.common, nil, &s.data)
}

func (s *snapshot[D]) FromDocument(doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data D
	if err := decode[struct{}](&s.common, doc, nil, &data); err != nil {
		return err
	}
	s.data = data
	return nil
}

// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Release gives back a hold on the gate. Calling it more than once is
// harmless.
type Release func()

// Gate coordinates shared and exclusive collections.
type Gate interface {
	// AcquireShared blocks until no exclusive hold is active or
	// queued ahead of the caller, or ctx is done.
	AcquireShared(ctx context.Context) (Release, error)

	// AcquireExclusive blocks until the caller is the only holder,
	// or ctx is done.
	AcquireExclusive(ctx context.Context) (Release, error)

	// Acquire is AcquireExclusive when exclusive is true and
	// AcquireShared otherwise.
	Acquire(ctx context.Context, exclusive bool) (Release, error)
}

// capacity bounds the number of simultaneous shared holders. An
// exclusive hold takes all of it.
const capacity = math.MaxInt32

// RW is a Gate backed by a weighted semaphore.
type RW struct {
	semaphore *semaphore.Weighted
}

// New returns an unheld gate.
func New() *RW {
	return &RW{semaphore: semaphore.NewWeighted(capacity)}
}

// AcquireShared implements Gate.
func (g *RW) AcquireShared(ctx context.Context) (Release, error) {
	return g.acquire(ctx, 1)
}

// AcquireExclusive implements Gate.
func (g *RW) AcquireExclusive(ctx context.Context) (Release, error) {
	return g.acquire(ctx, capacity)
}

// Acquire implements Gate.
func (g *RW) Acquire(ctx context.Context, exclusive bool) (Release, error) {
	if exclusive {
		return g.AcquireExclusive(ctx)
	}
	return g.AcquireShared(ctx)
}

func (g *RW) acquire(ctx context.Context, weight int64) (Release, error) {
	if err := g.semaphore.Acquire(ctx, weight); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.semaphore.Release(weight) })
	}, nil
}

// Default returns the process-wide gate shared by every collector that
// was not given its own.
var Default = sync.OnceValue(func() Gate { return New() })

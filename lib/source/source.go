// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samcmill/wassail-sub000/lib/clock"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/gate"
	"github.com/samcmill/wassail-sub000/lib/remote"
)

// Version is the interface revision of every collector in this
// package, encoded as major*100+minor.
const Version = 100

var (
	// ErrDisabled is returned by Evaluate when the collector is not
	// available on this platform.
	ErrDisabled = errors.New("source: not available on this platform")

	// ErrMissingInput is returned by Evaluate when required
	// configuration is absent. Nothing is collected or spawned.
	ErrMissingInput = errors.New("source: missing required input")
)

// DataSource is a collector of one kind of fact.
type DataSource interface {
	// Name is the identifier written to the "name" key.
	Name() string

	// Version is the interface revision written to the "version" key.
	Version() int

	// Enabled reports whether the collector works on this platform.
	Enabled() bool

	// Evaluate collects the data unless it was already collected and
	// force is false.
	Evaluate(ctx context.Context, force bool) error

	// ToDocument encodes configuration, header, and (once collected)
	// data.
	ToDocument() (document.Document, error)

	// FromDocument replaces the collector's state with the contents of
	// doc. A document carrying "data" leaves the collector collected.
	FromDocument(doc document.Document) error
}

// Option configures a collector.
type Option func(*options)

type options struct {
	gate      gate.Gate
	clock     clock.Clock
	logger    *slog.Logger
	transport remote.Transport
}

// WithGate replaces the process-wide execution gate.
func WithGate(g gate.Gate) Option {
	return func(o *options) { o.gate = g }
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger replaces slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTransport replaces the SSH transport of remote collectors. Other
// collectors ignore it.
func WithTransport(transport remote.Transport) Option {
	return func(o *options) { o.transport = transport }
}

// Run evaluates src and returns its document.
func Run(ctx context.Context, src DataSource, force bool) (document.Document, error) {
	if err := src.Evaluate(ctx, force); err != nil {
		return nil, err
	}
	return src.ToDocument()
}

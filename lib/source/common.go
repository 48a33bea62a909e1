// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/samcmill/wassail-sub000/lib/clock"
	"github.com/samcmill/wassail-sub000/lib/document"
	"github.com/samcmill/wassail-sub000/lib/gate"
	"github.com/samcmill/wassail-sub000/lib/remote"
)

// common is the lifecycle shared by every collector. Collectors embed
// it and keep their collected payload under its mutex.
type common struct {
	name    string
	enabled bool

	gate      gate.Gate
	clock     clock.Clock
	logger    *slog.Logger
	transport remote.Transport

	// mu serializes evaluation against document encoding and
	// decoding. It also guards the embedding collector's payload.
	mu        sync.RWMutex
	header    document.Header
	collected bool
}

func (c *common) init(name string, enabled bool, opts []Option) {
	resolved := options{}
	for _, option := range opts {
		option(&resolved)
	}
	if resolved.gate == nil {
		resolved.gate = gate.Default()
	}
	if resolved.clock == nil {
		resolved.clock = clock.Real()
	}
	if resolved.logger == nil {
		resolved.logger = slog.Default()
	}

	c.name = name
	c.enabled = enabled
	c.gate = resolved.gate
	c.clock = resolved.clock
	c.logger = resolved.logger.With("source", name)
	c.transport = resolved.transport
	c.header = document.NewHeader(name, Version)
}

func (c *common) Name() string  { return c.name }
func (c *common) Version() int  { return Version }
func (c *common) Enabled() bool { return c.enabled }

// Collected reports whether data has been collected or loaded.
func (c *common) Collected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collected
}

// evaluate runs collect under the gate unless data is cached, then
// stamps the header. collect runs with the collector's write lock held.
func (c *common) evaluate(ctx context.Context, force, exclusive bool, collect func(context.Context) error) error {
	if !c.enabled {
		return fmt.Errorf("%s: %w", c.name, ErrDisabled)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collected && !force {
		return nil
	}

	release, err := c.gate.Acquire(ctx, exclusive)
	if err != nil {
		return fmt.Errorf("%s: acquiring execution gate: %w", c.name, err)
	}
	defer release()

	started := c.clock.Now()
	if err := collect(ctx); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		c.logger.Warn("unable to determine hostname", "error", err)
	}
	c.header.Hostname = hostname
	c.header.UID = uint32(unix.Geteuid())
	c.header.Timestamp = started.Unix()
	c.collected = true
	c.logger.Debug("collected", "exclusive", exclusive, "elapsed", c.clock.Since(started))
	return nil
}

// wire is the document layout shared by every collector. C is the
// configuration payload and D the collected payload; collectors
// without configuration use struct{} and leave it nil.
type wire[C, D any] struct {
	document.Header
	Configuration *C `json:"configuration,omitempty"`
	Data          *D `json:"data,omitempty"`
}

// encode builds the document of c. data is written only once
// collected. The caller holds c.mu for reading.
func encode[C, D any](c *common, configuration *C, data *D) (document.Document, error) {
	w := wire[C, D]{Header: c.header, Configuration: configuration}
	w.Name = c.name
	w.Version = Version
	if c.collected {
		w.Data = data
	}
	return document.FromValue(w)
}

// decode checks that doc belongs to c and decodes it over configuration
// and data, which the caller has reset to their defaults. The caller
// holds c.mu.
func decode[C, D any](c *common, doc document.Document, configuration *C, data *D) error {
	if name := doc.Name(); name != c.name {
		return fmt.Errorf("%w: %q is not a %s document", document.ErrUnrecognized, name, c.name)
	}
	if version, ok := doc.Version(); !ok || version != Version {
		return fmt.Errorf("%w: %s document has version %v, want %d",
			document.ErrVersionMismatch, c.name, doc[document.KeyVersion], Version)
	}

	w := wire[C, D]{
		Header:        document.NewHeader(c.name, Version),
		Configuration: configuration,
		Data:          data,
	}
	if err := doc.Decode(&w); err != nil {
		return fmt.Errorf("decoding %s document: %w", c.name, err)
	}
	c.header = w.Header
	c.collected = doc.Collected()
	return nil
}

package oracle

import (
	"context"
	"sync/atomic"
)

// Stats is a point-in-time copy of a Counter.
type Stats struct {
	Probes   int64 `json:"probes" yaml:"probes" toml:"probes"`
	Failures int64 `json:"transport_failures" yaml:"transport_failures" toml:"transport_failures"`
}

// Counter counts probes and transport failures passing through it. Place it
// directly on top of the transport so retries are counted too.
// It is safe for concurrent use.
type Counter struct {
	next     Oracle
	probes   atomic.Int64
	failures atomic.Int64
}

func NewCounter(next Oracle) *Counter {
	return &Counter{next: next}
}

func (c *Counter) Probe(ctx context.Context, p Probe) (bool, error) {
	c.probes.Add(1)
	ok, err := c.next.Probe(ctx, p)
	if err != nil {
		c.failures.Add(1)
	}
	return ok, err
}

func (c *Counter) Stats() Stats {
	return Stats{Probes: c.probes.Load(), Failures: c.failures.Load()}
}

package types

import "sync/atomic"

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The cache will call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when the cache returns a stored value.
	Hit()

	// Miss is called when the cache does NOT find a key and has to call the loader.
	Miss()

	// Load is called after the loader returned a value that was stored.
	Load()

	// LoadError is called when the loader failed or the caller gave up waiting.
	LoadError()

	// Invalidate is called when one key is removed explicitly.
	Invalidate()

	// Clear is called when all keys are removed at once.
	Clear()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

We don't want to force every user of the cache to implement metrics,
and we don't want nil checks on every hot path. So the default
implementation simply ignores all events.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()        {}
func (NoopMetrics) Miss()       {}
func (NoopMetrics) Load()       {}
func (NoopMetrics) LoadError()  {}
func (NoopMetrics) Invalidate() {}
func (NoopMetrics) Clear()      {}

// Counters is a lock-free Metrics implementation that keeps running totals.
type Counters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	loads       atomic.Int64
	loadErrors  atomic.Int64
	invalidates atomic.Int64
	clears      atomic.Int64
}

func (c *Counters) Hit()        { c.hits.Add(1) }
func (c *Counters) Miss()       { c.misses.Add(1) }
func (c *Counters) Load()       { c.loads.Add(1) }
func (c *Counters) LoadError()  { c.loadErrors.Add(1) }
func (c *Counters) Invalidate() { c.invalidates.Add(1) }
func (c *Counters) Clear()      { c.clears.Add(1) }

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Hits        int64
	Misses      int64
	Loads       int64
	LoadErrors  int64
	Invalidates int64
	Clears      int64
}

// HitRatio returns hits / (hits + misses), or 0 when nothing was requested.
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot reads every counter. The copy is not taken atomically as a whole.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Loads:       c.loads.Load(),
		LoadErrors:  c.loadErrors.Load(),
		Invalidates: c.invalidates.Load(),
		Clears:      c.clears.Load(),
	}
}

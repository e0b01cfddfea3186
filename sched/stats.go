package sched

import "sync/atomic"

type Stats struct {
	// Task entries, memoized or not.
	Evaluations uint64
	// Entries answered straight from the memo engine.
	MemoHits uint64
	// Values computed and offered to the engine.
	Computed uint64
	// Jobs handed to pool workers (barrier) or racing workers started.
	Spawned uint64
	// Highest number of goroutines evaluating at once, master included.
	PeakActive int
	// Racing workers that stopped because another one won.
	Cancelled uint64
	// Id of the last race winner, -1 if no race has completed.
	Winner int
}

type counters struct {
	evaluations atomic.Uint64
	memoHits    atomic.Uint64
	computed    atomic.Uint64
	spawned     atomic.Uint64
	peakActive  atomic.Int64
	cancelled   atomic.Uint64
	winner      atomic.Int64
}

func (c *counters) observeActive(active int64) {
	for {
		peak := c.peakActive.Load()
		if active <= peak || c.peakActive.CompareAndSwap(peak, active) {
			return
		}
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Evaluations: c.evaluations.Load(),
		MemoHits:    c.memoHits.Load(),
		Computed:    c.computed.Load(),
		Spawned:     c.spawned.Load(),
		PeakActive:  int(c.peakActive.Load()),
		Cancelled:   c.cancelled.Load(),
		Winner:      int(c.winner.Load()),
	}
}

func (c *counters) reset() {
	c.evaluations.Store(0)
	c.memoHits.Store(0)
	c.computed.Store(0)
	c.spawned.Store(0)
	c.peakActive.Store(0)
	c.cancelled.Store(0)
	c.winner.Store(-1)
}

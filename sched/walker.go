package sched

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

// walker runs the memoized recursion on one goroutine. Walkers are never
// shared: everything a walker mutates besides the engine is its own.
type walker struct {
	s    *Scheduler
	task TaskFunc
	run  *run

	// Permutes the fan-out when set.
	rng *rand.Rand

	// Only the barrier master has a pool; everybody else recurses in place.
	pool *pool
}

func (w *walker) evaluate(key uint64) (uint64, error) {
	if w.run.abort.Load() {
		return 0, errAborted
	}

	w.s.stats.evaluations.Add(1)

	// Memo check. Advisory only: two walkers may both miss and both compute.
	if v, ok := w.s.engine.Lookup(key); ok {
		w.s.stats.memoHits.Add(1)
		return v, nil
	}

	ev := w.task(key, w.s.engine.Lookup)
	if ev.terminal {
		return w.memoize(key, ev.value)
	}

	if err := w.fanOut(ev.subtasks); err != nil {
		return 0, err
	}

	values := make([]uint64, len(ev.subtasks))
	for i, sub := range ev.subtasks {
		// Read back from the store directly: this is not a memo check and
		// must not count as an engine hit.
		v, ok := w.s.engine.Store().Lookup(sub)
		if !ok {
			return 0, errors.Wrapf(ErrMissingPrerequisite, "key %#x needs %#x", key, sub)
		}

		values[i] = v
	}

	return w.memoize(key, ev.combine(values))
}

// fanOut evaluates every prerequisite, handing some of them to the pool when
// this walker owns one, and returns once all of them are memoized.
func (w *walker) fanOut(keys []uint64) error {
	var (
		perm    []int
		spawned []*job
		err     error
	)

	if w.rng != nil {
		perm = w.rng.Perm(len(keys))
	}

	for i := range keys {
		idx := i
		if perm != nil {
			idx = perm[i]
		}

		sub := keys[idx]

		if w.pool != nil {
			if j, ok := w.pool.trySpawn(sub); ok {
				spawned = append(spawned, j)
				continue
			}
		}

		if _, err = w.evaluate(sub); err != nil {
			break
		}
	}

	// Barrier: join everything spawned for this task, even when failing.
	for _, j := range spawned {
		if jerr := w.pool.join(j); jerr != nil && err == nil {
			err = jerr
		}
	}

	return err
}

func (w *walker) memoize(key, value uint64) (uint64, error) {
	w.s.stats.computed.Add(1)

	actual, _, err := w.s.engine.InsertIfAbsent(key, value)
	if err != nil {
		return 0, errors.Wrapf(err, "memoizing key %#x", key)
	}

	return actual, nil
}

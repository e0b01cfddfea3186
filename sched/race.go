package sched

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/homier/lfmemo"
)

// raceResult is guarded by mu. finished flips once, for the first worker to
// complete, fail, or for ctx cancellation.
type raceResult struct {
	mu   sync.Mutex
	cond *sync.Cond

	finished bool
	winner   int
	value    uint64
	err      error
}

func (rr *raceResult) finish(id int, value uint64, err error) bool {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.finished {
		return false
	}

	rr.finished = true
	rr.winner = id
	rr.value = value
	rr.err = err
	rr.cond.Signal()

	return true
}

// wait blocks until a result is in. The flag is checked before waiting, so a
// worker finishing before the master gets here is not missed.
func (rr *raceResult) wait() (int, uint64, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	for !rr.finished {
		rr.cond.Wait()
	}

	return rr.winner, rr.value, rr.err
}

// RunRace starts budget workers that each evaluate key from scratch against
// the shared engine, every one in its own random fan-out order so they tend
// to pick up each other's memoized results instead of duplicating work. The
// first worker to finish wins; the rest are cancelled and all of them are
// joined before RunRace returns.
//
// Cancellation is cooperative: losers stop at their next task entry, which
// may take a while, and RunRace waits for them.
func (s *Scheduler) RunRace(ctx context.Context, key uint64, budget int, task TaskFunc) (uint64, error) {
	if budget < 1 {
		return 0, errors.Wrapf(ErrInvalidBudget, "got %d", budget)
	}

	if key == lfmemo.EmptyKey {
		return 0, lfmemo.ErrReservedKey
	}

	var (
		r     run
		rr    raceResult
		wg    sync.WaitGroup
		start = time.Now()
	)
	rr.cond = sync.NewCond(&rr.mu)

	stop := context.AfterFunc(ctx, func() {
		rr.finish(-1, 0, ctx.Err())
	})
	defer stop()

	s.logger.Debug("starting race run", zap.Uint64("key", key), zap.Int("budget", budget))
	s.stats.observeActive(int64(budget))

	for id := range budget {
		w := s.newWalker(&r, task, s.rng(id, true))

		s.stats.spawned.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()

			v, err := w.evaluate(key)
			if errors.Is(err, errAborted) {
				s.stats.cancelled.Add(1)
				return
			}

			if rr.finish(id, v, err) {
				s.logger.Debug("race worker finished first", zap.Int("worker", id), zap.Error(err))
			}
		}()
	}

	winner, v, err := rr.wait()
	if err == nil {
		s.stats.winner.Store(int64(winner))
	}

	// Cancel the losers, then join everybody.
	r.abort.Store(true)
	if s.onCancel != nil {
		s.onCancel()
	}
	wg.Wait()

	if err != nil {
		s.logger.Error("memoized run failed",
			zap.String("policy", "race"),
			zap.Uint64("key", key),
			zap.Int("worker", winner),
			zap.Error(err),
		)

		return 0, errors.Wrapf(err, "race run for key %#x", key)
	}

	s.logDone("race", key, budget, start)

	return v, nil
}

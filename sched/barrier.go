package sched

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/homier/lfmemo"
)

// RunBarrier evaluates key with at most budget goroutines evaluating at
// once, the caller included.
//
// The caller acts as master: at every fan-out it hands prerequisites to idle
// pool workers while fewer than budget goroutines are active, evaluates the
// remaining ones itself, then joins the jobs it handed out for this task
// before combining. Pool workers recurse on their own goroutine and never
// hand out work.
//
// A capacity failure anywhere aborts the whole run. Cancelling ctx aborts it
// too; workers notice at their next task entry.
func (s *Scheduler) RunBarrier(ctx context.Context, key uint64, budget int, task TaskFunc) (uint64, error) {
	if budget < 1 {
		return 0, errors.Wrapf(ErrInvalidBudget, "got %d", budget)
	}

	if key == lfmemo.EmptyKey {
		return 0, lfmemo.ErrReservedKey
	}

	var (
		r     run
		start = time.Now()
	)
	defer r.watch(ctx)()

	s.logger.Debug("starting barrier run", zap.Uint64("key", key), zap.Int("budget", budget))

	p := newPool(budget, &s.stats, s.logger, func(id int) func(uint64) error {
		w := s.newWalker(&r, task, s.rng(id, s.randomOrder))

		return func(key uint64) error {
			_, err := w.evaluate(key)
			if err != nil && !errors.Is(err, errAborted) {
				r.fail(err)
			}

			return err
		}
	})
	defer p.close()

	master := s.newWalker(&r, task, s.rng(0, s.randomOrder))
	master.pool = p

	v, err := master.evaluate(key)
	if v, err = s.finish(&r, "barrier", key, v, err); err != nil {
		return 0, err
	}

	s.logDone("barrier", key, budget, start)

	return v, nil
}

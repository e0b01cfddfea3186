// Package sched runs memoized recursive computations over an lfmemo.Engine
// with a bounded number of goroutines.
//
// Three policies are provided:
//   - Barrier: the calling goroutine is the master; at each fan-out it hands
//     prerequisites to idle pool workers while the budget allows, evaluates
//     the rest itself and joins what it handed out before combining.
//   - Race: budget workers each run the whole recursion against the shared
//     engine in their own random order; the first to finish wins and the
//     others are cancelled.
//   - Serial: a single-goroutine reference run.
//
// Correctness of the parallel policies rests on the task function being
// pure. Memo checks are advisory, so a key may be computed more than once,
// but every computation yields the same value.
package sched

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/homier/lfmemo"
)

type Scheduler struct {
	engine *lfmemo.Engine
	logger *zap.Logger

	seed        uint64
	randomOrder bool

	stats counters

	// Called by RunRace right after the losers have been told to stop.
	// Tests only.
	onCancel func()
}

type Option func(s *Scheduler)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// Seeds the per-worker random sources. Without it every scheduler picks a
// random seed.
func WithSeed(seed uint64) Option {
	return func(s *Scheduler) {
		s.seed = seed
	}
}

// Makes barrier and serial runs evaluate each fan-out in random order too.
// Race runs always do.
func WithRandomOrder() Option {
	return func(s *Scheduler) {
		s.randomOrder = true
	}
}

func New(engine *lfmemo.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine: engine,
		seed:   rand.Uint64(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.stats.winner.Store(-1)

	return s
}

func (s *Scheduler) Engine() *lfmemo.Engine {
	return s.engine
}

func (s *Scheduler) Stats() Stats {
	return s.stats.snapshot()
}

// ResetStats zeroes the counters. Not safe while a run is in progress.
func (s *Scheduler) ResetStats() {
	s.stats.reset()
}

// rng returns the random source for worker id, or nil when the fan-out
// should keep its declared order.
func (s *Scheduler) rng(id int, random bool) *rand.Rand {
	if !random {
		return nil
	}

	return rand.New(rand.NewPCG(s.seed, uint64(id)))
}

func (s *Scheduler) newWalker(r *run, task TaskFunc, rng *rand.Rand) *walker {
	return &walker{
		s:    s,
		task: task,
		run:  r,
		rng:  rng,
	}
}

// RunSerial evaluates key on the calling goroutine only. It works with any
// store, SerialMap included, and serves as the reference result for the
// parallel policies.
func (s *Scheduler) RunSerial(ctx context.Context, key uint64, task TaskFunc) (uint64, error) {
	if key == lfmemo.EmptyKey {
		return 0, lfmemo.ErrReservedKey
	}

	var (
		r     run
		start = time.Now()
	)
	defer r.watch(ctx)()

	s.stats.observeActive(1)

	v, err := s.newWalker(&r, task, s.rng(0, s.randomOrder)).evaluate(key)
	if v, err = s.finish(&r, "serial", key, v, err); err != nil {
		return 0, err
	}

	s.logDone("serial", key, 1, start)

	return v, nil
}

// finish turns a master's result into the run's result. Worker failures
// recorded on r take precedence over the abort they caused.
func (s *Scheduler) finish(r *run, policy string, key, v uint64, err error) (uint64, error) {
	if err == nil {
		return v, nil
	}

	if !errors.Is(err, errAborted) {
		r.fail(err)
	}

	err = r.cause()
	s.logger.Error("memoized run failed",
		zap.String("policy", policy),
		zap.Uint64("key", key),
		zap.Error(err),
	)

	return 0, errors.Wrapf(err, "%s run for key %#x", policy, key)
}

func (s *Scheduler) logDone(policy string, key uint64, budget int, start time.Time) {
	s.logger.Debug("memoized run finished",
		zap.String("policy", policy),
		zap.Uint64("key", key),
		zap.Int("budget", budget),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("entries", s.engine.Len()),
	)
}

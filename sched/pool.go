package sched

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type job struct {
	key  uint64
	err  error
	done chan struct{}
}

// pool is the fixed set of barrier workers. It holds budget-1 goroutines,
// the master being the remaining one.
//
// active counts the master plus every job handed out and not yet joined.
// Only the master calls trySpawn and join, and a job is handed out only while
// active < budget, so at most budget-2 jobs are outstanding at that point and
// one of the budget-1 workers is always free to take it.
type pool struct {
	jobs   chan *job
	wg     sync.WaitGroup
	active atomic.Int64
	budget int64

	stats  *counters
	logger *zap.Logger
}

func newPool(budget int, stats *counters, logger *zap.Logger, newRunner func(id int) func(key uint64) error) *pool {
	p := &pool{
		jobs:   make(chan *job),
		budget: int64(budget),
		stats:  stats,
		logger: logger,
	}

	p.active.Store(1)
	stats.observeActive(1)

	for id := 1; id < budget; id++ {
		runner := newRunner(id)

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()

			for j := range p.jobs {
				j.err = runner(j.key)
				close(j.done)
			}
		}()
	}

	return p
}

func (p *pool) trySpawn(key uint64) (*job, bool) {
	if p.active.Load() >= p.budget {
		return nil, false
	}

	active := p.active.Add(1)
	p.stats.observeActive(active)
	p.stats.spawned.Add(1)

	j := &job{key: key, done: make(chan struct{})}
	p.jobs <- j

	p.logger.Debug("spawned worker job", zap.Uint64("key", key), zap.Int64("active", active))

	return j, true
}

func (p *pool) join(j *job) error {
	<-j.done
	active := p.active.Add(-1)

	p.logger.Debug("joined worker job", zap.Uint64("key", j.key), zap.Int64("active", active))

	return j.err
}

// close stops the workers and waits for them to exit.
func (p *pool) close() {
	close(p.jobs)
	p.wg.Wait()
}

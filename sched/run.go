package sched

import (
	"context"
	"sync"
	"sync/atomic"
)

// run is the state shared by every goroutine of one top-level call: the
// first failure and the abort flag workers poll at each recursive entry.
type run struct {
	abort atomic.Bool

	mu  sync.Mutex
	err error
}

// watch aborts the run when ctx is done. The returned func stops watching.
func (r *run) watch(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		r.fail(ctx.Err())
	})
}

// fail records err if it is the first failure and aborts the run.
func (r *run) fail(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()

	r.abort.Store(true)
}

func (r *run) cause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

package sched

import (
	"sync/atomic"
	"time"

	"github.com/homier/lfmemo"
)

// binomial is C(n, k) by Pascal's rule, keyed by PackKey2(n, k). Its task
// graph is a DAG with heavy sharing, which is what memoization is for.
func binomial(key uint64, _ LookupFunc) Eval {
	n, k := lfmemo.UnpackKey2(key)
	if k == 0 || k == n {
		return Terminal(1)
	}

	return NeedsSubtasks(
		[]uint64{lfmemo.PackKey2(n-1, k-1), lfmemo.PackKey2(n-1, k)},
		func(v []uint64) uint64 { return v[0] + v[1] },
	)
}

// tree is a complete binary tree of the given depth keyed by
// PackKey2(level, index), the root at level 1: leaves are terminal, inner
// nodes add their children and their own index.
func tree(depth uint32) TaskFunc {
	return func(key uint64, _ LookupFunc) Eval {
		level, idx := lfmemo.UnpackKey2(key)
		if level == depth+1 {
			return Terminal(uint64(idx)*7 + 1)
		}

		return NeedsSubtasks(
			[]uint64{lfmemo.PackKey2(level+1, 2*idx), lfmemo.PackKey2(level+1, 2*idx+1)},
			func(v []uint64) uint64 { return v[0] + v[1] + uint64(idx) },
		)
	}
}

// treeRoot is the root key of tree. Level 0 index 0 would be the zero key,
// so levels are counted from 1.
func treeRoot() uint64 {
	return lfmemo.PackKey2(1, 0)
}

// reference evaluates task by plain recursion, no memo and no goroutines.
func reference(task TaskFunc, key uint64) uint64 {
	ev := task(key, func(uint64) (uint64, bool) { return 0, false })
	if ev.IsTerminal() {
		return ev.Value()
	}

	values := make([]uint64, len(ev.Subtasks()))
	for i, sub := range ev.Subtasks() {
		values[i] = reference(task, sub)
	}

	return ev.combine(values)
}

// probe wraps a task, tracking how many calls are in flight at once.
type probe struct {
	inflight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
	delay    time.Duration
}

func (p *probe) wrap(task TaskFunc) TaskFunc {
	return func(key uint64, lookup LookupFunc) Eval {
		n := p.inflight.Add(1)
		defer p.inflight.Add(-1)

		p.calls.Add(1)
		for {
			peak := p.peak.Load()
			if n <= peak || p.peak.CompareAndSwap(peak, n) {
				break
			}
		}

		if p.delay > 0 {
			time.Sleep(p.delay)
		}

		return task(key, lookup)
	}
}

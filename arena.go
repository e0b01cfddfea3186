package lfmemo

import "sync/atomic"

// Arena is a lock-free bump allocator over a preallocated block of cells.
// Cells are handed out in order and are never freed individually; the whole
// block is recycled with Reset.
type Arena[T any] struct {
	cells []T
	next  atomic.Uint64

	retries atomic.Uint64
}

// Returns an arena holding exactly n cells.
func NewArena[T any](n int) *Arena[T] {
	return &Arena[T]{
		cells: make([]T, max(n, 0)),
	}
}

// Alloc returns the next free cell, or false once the block is used up.
func (a *Arena[T]) Alloc() (*T, bool) {
	for {
		old := a.next.Load()
		if old >= uint64(len(a.cells)) {
			return nil, false
		}

		if a.next.CompareAndSwap(old, old+1) {
			return &a.cells[old], true
		}

		a.retries.Add(1)
	}
}

// Number of cells handed out so far.
func (a *Arena[T]) Allocated() int {
	return int(min(a.next.Load(), uint64(len(a.cells))))
}

func (a *Arena[T]) Cap() int {
	return len(a.cells)
}

// Retries reports how many allocations lost the CAS race and went around
// again.
func (a *Arena[T]) Retries() uint64 {
	return a.retries.Load()
}

// Reset zeroes every cell and rewinds the allocator.
// Not safe for concurrent use.
func (a *Arena[T]) Reset() {
	clear(a.cells)
	a.next.Store(0)
	a.retries.Store(0)
}

package lfmemo

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// chainCell is a bucket list node. Once linked into a bucket it is never
// written again.
type chainCell struct {
	next  *chainCell
	key   uint64
	value uint64
}

// ChainMap is a lock-free separate chaining hash table. Each bucket is a
// singly-linked list of cells taken from an Arena, and new cells are pushed
// at the head with a CAS. Entries are insert-once: an existing key keeps its
// first value.
type ChainMap struct {
	buckets []atomic.Pointer[chainCell]
	mask    uint64
	cells   *Arena[chainCell]

	hashFunc HashFunc

	wasted  atomic.Uint64
	retries atomic.Uint64
}

type ChainOption func(m *ChainMap)

// Override default hash function.
func WithChainHashFunc(f HashFunc) ChainOption {
	return func(m *ChainMap) {
		m.hashFunc = f
	}
}

// Returns a new chaining map with the given number of buckets (rounded up to
// a power of two) and room for at most cells entries.
func NewChainMap(buckets, cells int, opts ...ChainOption) *ChainMap {
	numBuckets := NextPowerOf2(uint64(max(buckets, 1)))

	m := &ChainMap{
		buckets: make([]atomic.Pointer[chainCell], numBuckets),
		mask:    numBuckets - 1,
		cells:   NewArena[chainCell](cells),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.hashFunc == nil {
		m.hashFunc = XXHash
	}

	return m
}

func scanChain(c *chainCell, key uint64) *chainCell {
	for ; c != nil; c = c.next {
		if c.key == key {
			return c
		}
	}

	return nil
}

func (m *ChainMap) bucket(key uint64) *atomic.Pointer[chainCell] {
	return &m.buckets[m.hashFunc(key)&m.mask]
}

func (m *ChainMap) InsertIfAbsent(key, value uint64) (uint64, bool, error) {
	if key == EmptyKey {
		return 0, false, ErrReservedKey
	}

	var (
		bucket = m.bucket(key)
		cell   *chainCell
	)

	for {
		head := bucket.Load()

		if found := scanChain(head, key); found != nil {
			if cell != nil {
				// Lost to an insert of the same key, our cell stays unlinked.
				m.wasted.Add(1)
			}

			return found.value, true, nil
		}

		if cell == nil {
			c, ok := m.cells.Alloc()
			if !ok {
				return 0, false, errors.Wrapf(ErrArenaExhausted, "inserting key %#x into %d cells", key, m.cells.Cap())
			}

			c.key = key
			c.value = value
			cell = c
		}

		cell.next = head
		if bucket.CompareAndSwap(head, cell) {
			return value, false, nil
		}

		m.retries.Add(1)
	}
}

func (m *ChainMap) Lookup(key uint64) (uint64, bool) {
	if key == EmptyKey {
		return 0, false
	}

	c := scanChain(m.bucket(key).Load(), key)
	if c == nil {
		return 0, false
	}

	return c.value, true
}

func (m *ChainMap) HasKey(key uint64) bool {
	_, ok := m.Lookup(key)

	return ok
}

// Len counts linked cells. It walks every bucket.
func (m *ChainMap) Len() int {
	n := 0
	for i := range m.buckets {
		for c := m.buckets[i].Load(); c != nil; c = c.next {
			n++
		}
	}

	return n
}

// Capacity is the number of cells in the arena, the most entries the map
// can ever hold.
func (m *ChainMap) Capacity() int {
	return m.cells.Cap()
}

// Validate checks that no bucket holds the same key twice. Equal keys always
// hash to the same bucket, so this covers the whole map.
func (m *ChainMap) Validate() error {
	for i := range m.buckets {
		for c := m.buckets[i].Load(); c != nil; c = c.next {
			if dup := scanChain(c.next, c.key); dup != nil {
				return errors.Wrapf(ErrDuplicateKey, "key %#x in bucket %d", c.key, i)
			}
		}
	}

	return nil
}

func (m *ChainMap) Stats() ChainStats {
	stats := ChainStats{
		Buckets:        len(m.buckets),
		CellsAllocated: m.cells.Allocated(),
		CellsCapacity:  m.cells.Cap(),
		Wasted:         int(m.wasted.Load()),
		Retries:        m.retries.Load() + m.cells.Retries(),
	}

	for i := range m.buckets {
		length := 0
		for c := m.buckets[i].Load(); c != nil; c = c.next {
			length++
		}

		if length > 0 {
			stats.UsedBuckets++
		}

		stats.Size += length
		stats.MaxChainLength = max(stats.MaxChainLength, length)
	}

	if stats.UsedBuckets > 0 {
		stats.AvgChainLength = float32(stats.Size) / float32(stats.UsedBuckets)
	}

	return stats
}

// Reset unlinks every bucket and recycles the arena.
// Not safe for concurrent use.
func (m *ChainMap) Reset() {
	for i := range m.buckets {
		m.buckets[i].Store(nil)
	}

	m.cells.Reset()
	m.wasted.Store(0)
	m.retries.Store(0)
}

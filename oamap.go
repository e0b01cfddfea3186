package lfmemo

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Linear probing step size.
const probeStep = 1

// OpenAddressMap is a lock-free open addressing hash table with linear
// probing. It is fixed-size: keys are claimed with a CAS on the slot's key
// word and are never removed, and once every slot on a probe sequence is
// taken inserts fail with ErrTableFull.
//
// Under concurrent inserts of the same key the first successful claim of a
// slot wins; later claimants find the key already there. With the update
// policy (WithUpdates) Insert also overwrites existing values.
type OpenAddressMap struct {
	slots []slot
	mask  uint64

	maxProbes uint64
	updates   bool
	hashFunc  HashFunc

	retries atomic.Uint64
}

type Option func(m *OpenAddressMap)

// Override default hash function.
func WithHashFunc(f HashFunc) Option {
	return func(m *OpenAddressMap) {
		m.hashFunc = f
	}
}

// Limits the number of slots a single operation may probe before the table
// is considered full. Defaults to the table capacity.
func WithMaxProbes(n int) Option {
	return func(m *OpenAddressMap) {
		if n > 0 {
			m.maxProbes = uint64(n)
		}
	}
}

// Makes Insert overwrite the value of an existing key.
func WithUpdates() Option {
	return func(m *OpenAddressMap) {
		m.updates = true
	}
}

// Returns a new open addressing map. The capacity is rounded up to the next
// power of two and never changes.
func NewOpenAddressMap(capacity int, opts ...Option) *OpenAddressMap {
	normalizedCapacity := NextPowerOf2(uint64(max(capacity, 1)))

	m := &OpenAddressMap{
		slots:     make([]slot, normalizedCapacity),
		mask:      normalizedCapacity - 1,
		maxProbes: normalizedCapacity,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.maxProbes = min(m.maxProbes, normalizedCapacity)
	if m.hashFunc == nil {
		m.hashFunc = WangHash
	}

	return m
}

// find walks the probe sequence for key. It returns the slot holding key, or
// the first vacant slot on the sequence (vacant=true), or nil if the probe
// budget ran out.
func (m *OpenAddressMap) find(key uint64) (s *slot, vacant bool) {
	idx := m.hashFunc(key) & m.mask

	for probes := uint64(0); probes < m.maxProbes; probes++ {
		s = &m.slots[idx]

		switch s.key.Load() {
		case key:
			return s, false
		case EmptyKey:
			return s, true
		}

		idx = (idx + probeStep) & m.mask
	}

	return nil, false
}

// claim returns the slot owning key, taking a vacant one if needed.
func (m *OpenAddressMap) claim(key uint64) (*slot, error) {
	if key == EmptyKey {
		return nil, ErrReservedKey
	}

	for {
		s, vacant := m.find(key)
		if s == nil {
			return nil, errors.Wrapf(ErrTableFull, "inserting key %#x into %d slots", key, len(m.slots))
		}

		if !vacant {
			return s, nil
		}

		if s.key.CompareAndSwap(EmptyKey, key) {
			return s, nil
		}

		// Someone else took the slot, and it may not be for our key:
		// start over from the home slot.
		m.retries.Add(1)
	}
}

func (m *OpenAddressMap) InsertIfAbsent(key, value uint64) (uint64, bool, error) {
	s, err := m.claim(key)
	if err != nil {
		return 0, false, err
	}

	actual, loaded := s.publishOnce(value, &m.retries)

	return actual, loaded, nil
}

// InsertOrUpdate sets the value for key and returns the previous one.
func (m *OpenAddressMap) InsertOrUpdate(key, value uint64) (uint64, bool, error) {
	s, err := m.claim(key)
	if err != nil {
		return 0, false, err
	}

	previous, loaded := s.update(value, &m.retries)

	return previous, loaded, nil
}

// Insert follows the map's update policy: InsertOrUpdate when built with
// WithUpdates, InsertIfAbsent otherwise.
func (m *OpenAddressMap) Insert(key, value uint64) (uint64, bool, error) {
	if m.updates {
		return m.InsertOrUpdate(key, value)
	}

	return m.InsertIfAbsent(key, value)
}

func (m *OpenAddressMap) Lookup(key uint64) (uint64, bool) {
	if key == EmptyKey {
		return 0, false
	}

	s, vacant := m.find(key)
	if s == nil || vacant {
		return 0, false
	}

	return s.load()
}

// HasKey reports whether key has claimed a slot, whether or not its value
// has been published yet.
func (m *OpenAddressMap) HasKey(key uint64) bool {
	if key == EmptyKey {
		return false
	}

	s, vacant := m.find(key)

	return s != nil && !vacant
}

// Len counts occupied slots. It walks the whole table.
func (m *OpenAddressMap) Len() int {
	n := 0
	for i := range m.slots {
		if m.slots[i].key.Load() != EmptyKey {
			n++
		}
	}

	return n
}

func (m *OpenAddressMap) Capacity() int {
	return len(m.slots)
}

// Validate checks that no two slots hold the same key. O(capacity²).
func (m *OpenAddressMap) Validate() error {
	for i := range m.slots {
		key := m.slots[i].key.Load()
		if key == EmptyKey {
			continue
		}

		for j := i + 1; j < len(m.slots); j++ {
			if m.slots[j].key.Load() == key {
				return errors.Wrapf(ErrDuplicateKey, "key %#x in slots %d and %d", key, i, j)
			}
		}
	}

	return nil
}

func (m *OpenAddressMap) Stats() OpenAddressStats {
	stats := OpenAddressStats{
		Capacity: len(m.slots),
		Retries:  m.retries.Load(),
	}

	for i := range m.slots {
		key := m.slots[i].key.Load()
		if key == EmptyKey {
			continue
		}

		stats.Size++
		if m.hashFunc(key)&m.mask != uint64(i) {
			stats.Displaced++
		}
	}

	stats.LoadFactor = float32(stats.Size) / float32(stats.Capacity)

	return stats
}

// Reset zeroes every slot. Not safe for concurrent use.
func (m *OpenAddressMap) Reset() {
	for i := range m.slots {
		m.slots[i].reset()
	}

	m.retries.Store(0)
}

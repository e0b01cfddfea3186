package lfmemo

import (
	"hash/maphash"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// SerialMap is a swiss-table memo store for single-goroutine use. It is not
// safe for concurrent access: it backs the serial reference run and clients
// that never go parallel.
//
// It's stable, because it never grows up - it retains the capacity it was
// initialized with and fills up to 7/8 of it.
type SerialMap struct {
	groups []group

	capacity          uintptr
	numGroupsMask     uintptr
	capacityEffective uintptr
	size              uintptr

	hashFunc HashFunc
}

type SerialOption func(m *SerialMap)

// Override default hash function.
func WithSerialHashFunc(f HashFunc) SerialOption {
	return func(m *SerialMap) {
		m.hashFunc = f
	}
}

// Returns a new serial map. Capacity is rounded up to a power of two, and to
// at least one group.
func NewSerialMap(capacity int, opts ...SerialOption) *SerialMap {
	normalizedCapacity := uintptr(NextPowerOf2(uint64(max(capacity, groupSize))))
	// Number of groups required
	numGroups := normalizedCapacity / groupSize

	m := &SerialMap{
		groups:            make([]group, numGroups),
		capacity:          normalizedCapacity,
		numGroupsMask:     numGroups - 1,
		capacityEffective: normalizedCapacity * 7 / 8,
	}

	// Initialize all control bytes to Empty
	m.Reset()

	for _, opt := range opts {
		opt(m)
	}

	if m.hashFunc == nil {
		m.hashFunc = MakeDefaultHashFunc(maphash.MakeSeed())
	}

	return m
}

// find returns the group and index holding key, or, when the key is absent,
// the first empty slot on its probe sequence (found=false). g is nil when
// neither exists.
func (m *SerialMap) find(key uint64) (g *group, idx uintptr, found bool) {
	h1, h2 := HashSplit(m.hashFunc(key))
	mask := m.numGroupsMask
	start := (h1 / groupSize) & mask

	for p, offset := uintptr(0), start; p <= mask; p++ {
		g = &m.groups[offset]
		ctrl := *(*uint64)(unsafe.Pointer(&g.ctrls))

		// SIMD-like match
		matches := matchH2(ctrl, h2)
		for matches != 0 {
			idx = matches.first()
			if g.keys[idx] == key {
				return g, idx, true
			}

			matches = matches.removeFirst()
		}

		// Termination: an empty slot ends the probe chain.
		if empty := matchEmpty(ctrl); empty != 0 {
			return g, empty.first(), false
		}

		// Quadratic probe math
		offset = (start + (p+1)*(p+2)/2) & mask
	}

	return nil, 0, false
}

func (m *SerialMap) put(g *group, idx uintptr, key, value uint64) error {
	// We reached the 87.5% of the capacity.
	if g == nil || m.size >= m.capacityEffective {
		return errors.Wrapf(ErrTableFull, "inserting key %#x, %d of %d entries used", key, m.size, m.capacityEffective)
	}

	_, h2 := HashSplit(m.hashFunc(key))
	g.ctrls[idx] = h2
	g.keys[idx] = key
	g.values[idx] = value
	m.size++

	return nil
}

func (m *SerialMap) InsertIfAbsent(key, value uint64) (uint64, bool, error) {
	if key == EmptyKey {
		return 0, false, ErrReservedKey
	}

	g, idx, found := m.find(key)
	if found {
		return g.values[idx], true, nil
	}

	if err := m.put(g, idx, key, value); err != nil {
		return 0, false, err
	}

	return value, false, nil
}

func (m *SerialMap) InsertOrUpdate(key, value uint64) (uint64, bool, error) {
	if key == EmptyKey {
		return 0, false, ErrReservedKey
	}

	g, idx, found := m.find(key)
	if found {
		previous := g.values[idx]
		g.values[idx] = value

		return previous, true, nil
	}

	return 0, false, m.put(g, idx, key, value)
}

func (m *SerialMap) Lookup(key uint64) (uint64, bool) {
	if key == EmptyKey {
		return 0, false
	}

	g, idx, found := m.find(key)
	if !found {
		return 0, false
	}

	return g.values[idx], true
}

func (m *SerialMap) HasKey(key uint64) bool {
	_, ok := m.Lookup(key)

	return ok
}

func (m *SerialMap) Len() int {
	return int(m.size)
}

// Capacity is the number of entries the map accepts before ErrTableFull.
func (m *SerialMap) Capacity() int {
	return int(m.capacityEffective)
}

func (m *SerialMap) Stats() SerialStats {
	return SerialStats{
		Size:              int(m.size),
		Capacity:          int(m.capacity),
		EffectiveCapacity: int(m.capacityEffective),
	}
}

func (m *SerialMap) Reset() {
	for i := range m.groups {
		copy(m.groups[i].ctrls[:], emptyCtrls[:])
	}

	m.size = 0
}

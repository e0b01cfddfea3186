package lfmemo

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ArrayStore is a flat memo array for dense key spaces: key k lives in slot
// k, no hashing or probing involved. Slots use the same presence protocol as
// OpenAddressMap so concurrent writers are safe.
type ArrayStore struct {
	slots   []slot
	retries atomic.Uint64
}

// Returns an array store accepting keys 1..size-1.
func NewArrayStore(size int) *ArrayStore {
	return &ArrayStore{
		slots: make([]slot, max(size, 1)),
	}
}

func (a *ArrayStore) at(key uint64) (*slot, error) {
	if key == EmptyKey {
		return nil, ErrReservedKey
	}

	if key >= uint64(len(a.slots)) {
		return nil, errors.Wrapf(ErrTableFull, "key %#x outside array of %d slots", key, len(a.slots))
	}

	s := &a.slots[key]
	if s.key.Load() == EmptyKey {
		s.key.CompareAndSwap(EmptyKey, key)
	}

	return s, nil
}

func (a *ArrayStore) InsertIfAbsent(key, value uint64) (uint64, bool, error) {
	s, err := a.at(key)
	if err != nil {
		return 0, false, err
	}

	actual, loaded := s.publishOnce(value, &a.retries)

	return actual, loaded, nil
}

func (a *ArrayStore) InsertOrUpdate(key, value uint64) (uint64, bool, error) {
	s, err := a.at(key)
	if err != nil {
		return 0, false, err
	}

	previous, loaded := s.update(value, &a.retries)

	return previous, loaded, nil
}

func (a *ArrayStore) Lookup(key uint64) (uint64, bool) {
	if key == EmptyKey || key >= uint64(len(a.slots)) {
		return 0, false
	}

	return a.slots[key].load()
}

func (a *ArrayStore) HasKey(key uint64) bool {
	if key == EmptyKey || key >= uint64(len(a.slots)) {
		return false
	}

	return a.slots[key].key.Load() == key
}

func (a *ArrayStore) Len() int {
	n := 0
	for i := range a.slots {
		if a.slots[i].key.Load() != EmptyKey {
			n++
		}
	}

	return n
}

// Capacity counts usable slots; slot 0 belongs to the reserved key.
func (a *ArrayStore) Capacity() int {
	return len(a.slots) - 1
}

func (a *ArrayStore) Reset() {
	for i := range a.slots {
		a.slots[i].reset()
	}

	a.retries.Store(0)
}

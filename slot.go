package lfmemo

import (
	"runtime"
	"sync/atomic"
)

// Value states of a slot. A slot moves vacant -> writing -> ready once, and
// only the goroutine that won the vacant -> writing CAS stores the first
// value.
const (
	valueVacant uint32 = iota
	valueReady
	valueWriting
)

// slot is a single key/value cell shared by OpenAddressMap and ArrayStore.
//
// Memory layout (24 bytes):
//   - key:   claimed once with CAS, never changes until Reset
//   - value: payload, readable only once state is valueReady
//   - state: presence flag, replaces the "value 0 means unset" encoding
type slot struct {
	key   atomic.Uint64
	value atomic.Uint64
	state atomic.Uint32
	_     [4]byte
}

// load returns the value if it has been published. A claimed key whose value
// is still being written reads as absent.
func (s *slot) load() (uint64, bool) {
	if s.state.Load() != valueReady {
		return 0, false
	}

	return s.value.Load(), true
}

// publishOnce stores value if no value has been published yet. Otherwise the
// existing value is returned untouched. retries counts lost CAS attempts.
func (s *slot) publishOnce(value uint64, retries *atomic.Uint64) (uint64, bool) {
	for {
		switch s.state.Load() {
		case valueReady:
			return s.value.Load(), true

		case valueVacant:
			if s.state.CompareAndSwap(valueVacant, valueWriting) {
				s.value.Store(value)
				s.state.Store(valueReady)

				return value, false
			}
			retries.Add(1)

		case valueWriting:
			// The winner has one store left to do.
			runtime.Gosched()
		}
	}
}

// update stores value whatever was there before and returns the previous
// value. Equal values short-circuit without a CAS.
func (s *slot) update(value uint64, retries *atomic.Uint64) (uint64, bool) {
	for {
		switch s.state.Load() {
		case valueVacant:
			if s.state.CompareAndSwap(valueVacant, valueWriting) {
				s.value.Store(value)
				s.state.Store(valueReady)

				return 0, false
			}
			retries.Add(1)

		case valueWriting:
			runtime.Gosched()

		case valueReady:
			old := s.value.Load()
			if old == value {
				return old, true
			}

			if s.value.CompareAndSwap(old, value) {
				return old, true
			}
			retries.Add(1)
		}
	}
}

func (s *slot) reset() {
	s.key.Store(EmptyKey)
	s.value.Store(0)
	s.state.Store(valueVacant)
}

package lfmemo

import (
	"math"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Engine is the memo table seen by recursive computations. It puts a uniform
// insert/lookup contract, float payloads and instrumentation on top of any
// Store.
//
// All methods except Reset are safe for concurrent use when the underlying
// store is (SerialMap is not).
type Engine struct {
	store  Store
	logger *zap.Logger

	inserts atomic.Uint64
	hits    atomic.Uint64
	misses  atomic.Uint64

	exhausted atomic.Bool
}

type EngineOption func(e *Engine)

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Returns an engine over an OpenAddressMap of the given capacity, built with
// opts. The engine gets default engine options; to set a logger, use
// NewEngine(NewOpenAddressMap(capacity, opts...), WithLogger(logger)).
func New(capacity int, opts ...Option) *Engine {
	return NewEngine(NewOpenAddressMap(capacity, opts...))
}

func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	return e
}

func (e *Engine) Store() Store {
	return e.store
}

func (e *Engine) InsertIfAbsent(key, value uint64) (uint64, bool, error) {
	actual, loaded, err := e.store.InsertIfAbsent(key, value)
	if err != nil {
		return 0, false, e.failed(key, err)
	}

	if !loaded {
		e.inserts.Add(1)
	}

	return actual, loaded, nil
}

// InsertOrUpdate overwrites the value of key. Fails with ErrUpdateUnsupported
// on insert-once stores such as ChainMap.
func (e *Engine) InsertOrUpdate(key, value uint64) (uint64, bool, error) {
	u, ok := e.store.(Updater)
	if !ok {
		return 0, false, errors.Wrapf(ErrUpdateUnsupported, "%T", e.store)
	}

	previous, loaded, err := u.InsertOrUpdate(key, value)
	if err != nil {
		return 0, false, e.failed(key, err)
	}

	if !loaded {
		e.inserts.Add(1)
	}

	return previous, loaded, nil
}

func (e *Engine) Lookup(key uint64) (uint64, bool) {
	v, ok := e.store.Lookup(key)
	if ok {
		e.hits.Add(1)
	} else {
		e.misses.Add(1)
	}

	return v, ok
}

func (e *Engine) HasKey(key uint64) bool {
	return e.store.HasKey(key)
}

// InsertFloat64 stores the IEEE-754 bits of value. Positive zero needs no
// remapping.
func (e *Engine) InsertFloat64(key uint64, value float64) (float64, bool, error) {
	actual, loaded, err := e.InsertIfAbsent(key, math.Float64bits(value))

	return math.Float64frombits(actual), loaded, err
}

func (e *Engine) LookupFloat64(key uint64) (float64, bool) {
	v, ok := e.Lookup(key)

	return math.Float64frombits(v), ok
}

func (e *Engine) Len() int {
	return e.store.Len()
}

func (e *Engine) Capacity() int {
	return e.store.Capacity()
}

// Validate scans the store for duplicate keys when it knows how to.
func (e *Engine) Validate() error {
	if v, ok := e.store.(Validator); ok {
		return v.Validate()
	}

	return nil
}

func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Size:     e.store.Len(),
		Capacity: e.store.Capacity(),
		Inserts:  e.inserts.Load(),
		Hits:     e.hits.Load(),
		Misses:   e.misses.Load(),
	}
}

// Reset empties the store and the counters. Not safe for concurrent use.
func (e *Engine) Reset() {
	e.store.Reset()

	e.inserts.Store(0)
	e.hits.Store(0)
	e.misses.Store(0)
	e.exhausted.Store(false)
}

func (e *Engine) failed(key uint64, err error) error {
	if errors.Is(err, ErrCapacityExhausted) && e.exhausted.CompareAndSwap(false, true) {
		e.logger.Error("memo store capacity exhausted",
			zap.Uint64("key", key),
			zap.Int("capacity", e.store.Capacity()),
			zap.String("store", storeName(e.store)),
			zap.Error(err),
		)
	}

	return err
}

func storeName(s Store) string {
	switch s.(type) {
	case *OpenAddressMap:
		return "open-address"
	case *ChainMap:
		return "chain"
	case *SerialMap:
		return "serial"
	case *ArrayStore:
		return "array"
	default:
		return "custom"
	}
}

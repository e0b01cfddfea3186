package lfmemo

// Store is a fixed-capacity uint64 → uint64 memo table.
//
// Key 0 (EmptyKey) is reserved. Values are unrestricted: presence is tracked
// apart from the value word, so zero is an ordinary value.
type Store interface {
	// InsertIfAbsent stores value for key unless the key already has one.
	// Returns the value now associated with key and whether it was already
	// there. Never overwrites.
	InsertIfAbsent(key, value uint64) (actual uint64, loaded bool, err error)
	Lookup(key uint64) (uint64, bool)
	HasKey(key uint64) bool

	Len() int
	Capacity() int

	// Reset empties the store. Not safe for concurrent use.
	Reset()
}

// Updater is implemented by stores that can overwrite the value of an
// existing key.
type Updater interface {
	InsertOrUpdate(key, value uint64) (previous uint64, loaded bool, err error)
}

// Validator is implemented by stores that can scan themselves for duplicate
// keys. Scans are slow and meant for tests and diagnostics.
type Validator interface {
	Validate() error
}

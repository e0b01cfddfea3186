package lfmemo

import "github.com/cockroachdb/errors"

var (
	// ErrCapacityExhausted is matched by every store error that means the
	// fixed-size backing memory has run out. Stores never grow, so the only
	// recovery is a new store with a larger capacity and a full restart.
	ErrCapacityExhausted = errors.New("memo capacity exhausted")

	// Both wrap ErrCapacityExhausted, so errors.Is matches either of them
	// against it with this package or the standard library.
	ErrTableFull      = errors.WithMessage(ErrCapacityExhausted, "table is full")
	ErrArenaExhausted = errors.WithMessage(ErrCapacityExhausted, "arena is exhausted")

	// ErrReservedKey is returned when a caller passes EmptyKey.
	ErrReservedKey = errors.New("key 0 is reserved")

	ErrDuplicateKey      = errors.New("duplicate key in table")
	ErrUpdateUnsupported = errors.New("store does not support updates")
)

package lfmemo

import (
	"math/bits"
	"unsafe"
)

// Returns the next power of 2 for the given value `v`.
// Zero and one both yield one.
func NextPowerOf2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}

	return uint64(1) << min(bits.Len64(v-1), 63)
}

// Estimates OpenAddressMap capacity (number of slots) from the given memory
// size in bytes. The result is rounded down to a power of two so it can be
// passed to NewOpenAddressMap without growing past the budget.
func CapacityFromSize(size uintptr) int {
	numSlots := uint64(size / unsafe.Sizeof(slot{}))
	if numSlots == 0 {
		return 0
	}

	return int(uint64(1) << (bits.Len64(numSlots) - 1))
}

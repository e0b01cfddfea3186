package lfmemo

const (
	// EmptyKey marks a vacant slot and can never be stored.
	EmptyKey uint64 = 0

	// MagicZeroKey stands in for a packed key whose fields are all zero.
	MagicZeroKey uint64 = 0xFFFFFFFFFFFFFFFF
)

// PackKey4 packs four 16-bit coordinates into a key, i in the top bits.
// The all-zero tuple maps to MagicZeroKey, so the all-0xFFFF tuple cannot be
// told apart from it and must not be used.
func PackKey4(i, j, k, l uint16) uint64 {
	key := uint64(i)<<48 | uint64(j)<<32 | uint64(k)<<16 | uint64(l)
	if key == EmptyKey {
		return MagicZeroKey
	}

	return key
}

func UnpackKey4(key uint64) (i, j, k, l uint16) {
	if key == MagicZeroKey {
		return 0, 0, 0, 0
	}

	return uint16(key >> 48), uint16(key >> 32), uint16(key >> 16), uint16(key)
}

// PackKey2 packs two 32-bit coordinates into a key, a in the top half.
// The all-zero pair maps to MagicZeroKey, which makes the all-ones pair
// unusable.
func PackKey2(a, b uint32) uint64 {
	key := uint64(a)<<32 | uint64(b)
	if key == EmptyKey {
		return MagicZeroKey
	}

	return key
}

func UnpackKey2(key uint64) (a, b uint32) {
	if key == MagicZeroKey {
		return 0, 0
	}

	return uint32(key >> 32), uint32(key)
}

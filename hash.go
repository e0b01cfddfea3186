package lfmemo

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

type HashFunc func(key uint64) uint64

// WangHash is Thomas Wang's hash6432shift integer mixer.
func WangHash(key uint64) uint64 {
	key = (^key) + (key << 18)
	key = key ^ (key >> 31)
	key = key * 21
	key = key ^ (key >> 11)
	key = key + (key << 6)
	key = key ^ (key >> 22)

	return key
}

// XXHash hashes the little-endian bytes of the key.
func XXHash(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)

	return xxhash.Sum64(buf[:])
}

// MakeDefaultHashFunc returns a seeded maphash hash, the SerialMap default.
func MakeDefaultHashFunc(seed maphash.Seed) HashFunc {
	return func(key uint64) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// IdentityHash places keys by their own value. Useful to build
// deterministic collisions.
func IdentityHash(key uint64) uint64 {
	return key
}

// HashSplit splits a hash into the group selector (h1) and the 7-bit
// control fingerprint (h2) used by SerialMap.
func HashSplit(hash uint64) (uintptr, uint8) {
	h1 := uintptr(hash >> 7)
	h2 := uint8(hash & 0x7F)

	return h1, h2
}

package lfmemo

const (
	groupSize = 8

	ctrlEmpty = 0x80
)

type group struct {
	// 8 bytes of metadata (h2 or control states)
	// This fits perfectly in a single uint64 load
	ctrls [groupSize]uint8

	// 8 keys stored immediately after the metadata, then 8 values.
	// (8 + 8*8 + 8*8) = 136 bytes, a bit over two cache lines.
	keys   [groupSize]uint64
	values [groupSize]uint64
}

var (
	emptyCtrls = [groupSize]uint8{
		ctrlEmpty,
		ctrlEmpty,
		ctrlEmpty,
		ctrlEmpty,

		ctrlEmpty,
		ctrlEmpty,
		ctrlEmpty,
		ctrlEmpty,
	}
)

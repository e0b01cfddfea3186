package lfmemo

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestNextPowerOf2(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{16, 16},
		{17, 32},
		{1000, 1024},
		{1 << 40, 1 << 40},
		{1<<40 + 1, 1 << 41},
	}

	for _, tt := range tests {
		require.Equalf(t, tt.want, NextPowerOf2(tt.in), "NextPowerOf2(%d)", tt.in)
	}
}

func TestCapacityFromSize(t *testing.T) {
	sizeOfSlot := unsafe.Sizeof(slot{})
	require.Equal(t, uintptr(24), sizeOfSlot)

	tests := []struct {
		name string
		size uintptr
		want int
	}{
		{"zero", 0, 0},
		{"less than one slot", sizeOfSlot - 1, 0},
		{"exactly one slot", sizeOfSlot, 1},
		{"three slots", sizeOfSlot * 3, 2},
		{"sixteen slots", sizeOfSlot * 16, 16},
		{"just under 32 slots", sizeOfSlot*32 - 1, 16},
		{"1MB", 1024 * 1024, 32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CapacityFromSize(tt.size))
		})
	}

	t.Run("usage with NewOpenAddressMap", func(t *testing.T) {
		capacity := CapacityFromSize(sizeOfSlot * 100)
		m := NewOpenAddressMap(capacity)

		require.Equal(t, 64, m.Capacity())
	})
}

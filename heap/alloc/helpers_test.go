package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/internal/format"
)

// alignedSegment returns a zeroed slice of size bytes whose base address is
// 16-byte aligned, so block offsets in tests are predictable.
func alignedSegment(size int) []byte {
	raw := make([]byte, size+format.Alignment)
	pad := format.AlignPad(uintptr(unsafe.Pointer(&raw[0])))
	return raw[pad : pad+size : pad+size]
}

// newTestAllocator returns an allocator initialized over an aligned segment.
func newTestAllocator(t testing.TB, size int, opts *Options) *Allocator {
	t.Helper()
	a, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, a.Reset(alignedSegment(size)))
	require.Equal(t, 0, a.Pad())
	return a
}

// header returns the decoded header of the block at off.
func header(a *Allocator, off int) (size int, allocated bool) {
	return format.ReadHeader(a.Segment(), off)
}

// assertValid fails the test if the allocator's invariants do not hold.
func assertValid(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, a.Validate())
	require.True(t, a.ValidateSegment())

	total := 0
	prevFree := false
	require.NoError(t, a.Blocks(func(blk format.Block) bool {
		require.False(t, prevFree && blk.Free, "adjacent free blocks at 0x%X", blk.Offset)
		require.True(t, format.IsAligned16(blk.PayloadOffset()))
		total += blk.Size
		prevFree = blk.Free
		return true
	}))
	require.Equal(t, a.Usage().SegmentBytes, total, "blocks must tile the segment")
}

func fillPattern(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i)
	}
}

func requirePattern(t testing.TB, b []byte, seed byte) {
	t.Helper()
	for i := range b {
		if b[i] != seed+byte(i) {
			require.Failf(t, "payload corrupted", "byte %d = 0x%02X, want 0x%02X", i, b[i], seed+byte(i))
		}
	}
}

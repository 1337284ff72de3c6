package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/internal/format"
)

type testBlock struct {
	size      int
	allocated bool
	requested int
}

// buildSegment lays out blocks back to back starting at offset 0.
func buildSegment(t *testing.T, blocks []testBlock) []byte {
	t.Helper()
	total := 0
	for _, b := range blocks {
		total += b.size
	}
	data := make([]byte, total)
	off := 0
	for _, b := range blocks {
		format.PutHeader(data, off, b.size, b.allocated, b.requested)
		off += b.size
	}
	return data
}

// TestSegment_Valid tests a well-formed mix of free and allocated blocks.
func TestSegment_Valid(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 64, allocated: true, requested: 48},
		{size: 128},
		{size: 32, allocated: true, requested: 1},
		{size: 32, allocated: true, requested: 16},
		{size: 256},
	})

	rep, err := Segment(data, 0, len(data))
	require.NoError(t, err)
	require.Equal(t, 5, rep.Blocks)
	require.Equal(t, 2, rep.FreeBlocks)
	require.Equal(t, 3, rep.AllocatedBlocks)
	require.Equal(t, 384, rep.FreeBytes)
	require.Equal(t, 128, rep.AllocatedBytes)
	require.Equal(t, 256, rep.LargestFree)
	require.Equal(t, []int{64, 256}, rep.FreeOffsets)
}

// TestSegment_AdjacentFree tests detection of two neighboring free blocks.
func TestSegment_AdjacentFree(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 64, allocated: true, requested: 10},
		{size: 64},
		{size: 64},
	})

	_, err := Segment(data, 0, len(data))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Coalesce", verr.Type)
	require.Equal(t, 128, verr.Offset)
}

// TestSegment_FreeBelowMinimum tests detection of an undersized free fragment.
func TestSegment_FreeBelowMinimum(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 48, allocated: true, requested: 20},
		{size: 16},
	})

	_, err := Segment(data, 0, len(data))
	require.Error(t, err)
	require.Contains(t, err.Error(), "below minimum")
}

// TestSegment_RequestedExceedsCapacity tests detection of an allocated block
// too small for its recorded request.
func TestSegment_RequestedExceedsCapacity(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 32, allocated: true, requested: 17},
		{size: 32},
	})

	_, err := Segment(data, 0, len(data))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Capacity", verr.Type)
}

// TestSegment_CorruptTag tests detection of a header whose tag was clobbered.
func TestSegment_CorruptTag(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 64, allocated: true, requested: 8},
		{size: 64},
	})
	format.PutU32(data, 64+format.BlockTagOffset, 0xDEADBEEF)

	_, err := Segment(data, 0, len(data))
	require.Error(t, err)
	require.ErrorIs(t, err, format.ErrBadTag)
}

// TestSegment_Overrun tests detection of a block claiming bytes past the end.
func TestSegment_Overrun(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 64, allocated: true, requested: 8},
		{size: 64},
	})
	format.PutHeader(data, 64, 128, false, 0)

	_, err := Segment(data, 0, len(data))
	require.ErrorIs(t, err, format.ErrOverrun)
}

// TestSegment_Gap tests detection of a short block leaving undecodable bytes.
func TestSegment_Gap(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 64, allocated: true, requested: 8},
		{size: 64},
	})
	// Shrink the first block; the bytes it gave up hold no header.
	format.PutHeader(data, 0, 32, true, 8)

	_, err := Segment(data, 0, len(data))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "BlockHeader", verr.Type)
	require.Equal(t, 32, verr.Offset)
}

// TestSegment_EmptyRange tests that an empty range is rejected.
func TestSegment_EmptyRange(t *testing.T) {
	data := make([]byte, 64)
	_, err := Segment(data, 0, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no blocks")
}

// TestSegment_BadBounds tests rejection of ranges outside the data.
func TestSegment_BadBounds(t *testing.T) {
	data := make([]byte, 64)

	_, err := Segment(data, 8, 64)
	require.Error(t, err, "unaligned start")

	_, err = Segment(data, 0, 128)
	require.Error(t, err, "end past data")
}

// TestWalk_StopEarly tests that ErrStopWalk ends the walk without error.
func TestWalk_StopEarly(t *testing.T) {
	data := buildSegment(t, []testBlock{
		{size: 64, allocated: true, requested: 8},
		{size: 64},
		{size: 64, allocated: true, requested: 8},
	})

	visited := 0
	err := Walk(data, 0, len(data), func(blk format.Block) error {
		visited++
		if blk.Free {
			return ErrStopWalk
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, visited)

	boom := errors.New("boom")
	err = Walk(data, 0, len(data), func(format.Block) error { return boom })
	require.ErrorIs(t, err, boom)
}

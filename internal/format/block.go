package format

import "fmt"

// allocatedTagBit is folded into the tag of allocated headers so a header
// whose sign was flipped without a rewrite fails the tag check.
const allocatedTagBit uint32 = 0xA5A5A5A5

// Block represents a single block (free or in-use) within a segment.
type Block struct {
	Offset    int    // Offset of the header relative to the segment start
	Size      int    // Total size including header
	Free      bool   // True when the block is marked as free
	Requested int    // Last requested payload size (0 when free)
	Data      []byte // Payload bytes (alias of underlying buffer)
}

// PayloadOffset returns the offset of the first payload byte.
func (blk Block) PayloadOffset() int {
	return blk.Offset + BlockHeaderSize
}

// End returns the offset one past the last byte of the block.
func (blk Block) End() int {
	return blk.Offset + blk.Size
}

// BlockTag computes the check tag stored in a header at off.
func BlockTag(off, size int, allocated bool) uint32 {
	tag := BlockMagic ^ uint32(off) ^ uint32(size) ^ uint32(uint64(size)>>32)
	if allocated {
		tag ^= allocatedTagBit
	}
	return tag
}

// PutHeader writes a complete block header at off. size is the absolute
// block size including the header.
func PutHeader(b []byte, off, size int, allocated bool, requested int) {
	raw := int64(size)
	if allocated {
		raw = -raw
	} else {
		requested = 0
	}
	PutI64(b, off+BlockSizeOffset, raw)
	PutU32(b, off+BlockRequestedOffset, uint32(requested))
	PutU32(b, off+BlockTagOffset, BlockTag(off, size, allocated))
}

// WipeHeader clears a header that has been absorbed into a neighbor so the
// stale bytes can never be mistaken for a live block.
func WipeHeader(b []byte, off int) {
	clear(b[off : off+BlockHeaderSize])
}

// ReadHeader decodes the size and state fields of the header at off without
// validating the tag. The caller must ensure off+BlockHeaderSize <= len(b).
func ReadHeader(b []byte, off int) (size int, allocated bool) {
	raw := ReadI64(b, off+BlockSizeOffset)
	if raw < 0 {
		return int(-raw), true
	}
	return int(raw), false
}

// HeaderTagOK reports whether the header at off carries the tag matching its
// own offset, size and state.
func HeaderTagOK(b []byte, off int) bool {
	size, allocated := ReadHeader(b, off)
	return ReadU32(b, off+BlockTagOffset) == BlockTag(off, size, allocated)
}

// NextBlock decodes the block at off and returns it plus the offset of the
// following block. end is the exclusive end of the usable range; blocks may
// not extend past it.
func NextBlock(b []byte, off, end int) (Block, int, error) {
	if end > len(b) {
		end = len(b)
	}
	if off < 0 || off+BlockHeaderSize > end {
		return Block{}, 0, fmt.Errorf("block at %d: %w", off, ErrTruncated)
	}
	if !IsAligned16(off) {
		return Block{}, 0, fmt.Errorf("block at %d: %w", off, ErrMisaligned)
	}
	size, allocated := ReadHeader(b, off)
	if size == 0 {
		return Block{}, 0, fmt.Errorf("block at %d: %w", off, ErrZeroSize)
	}
	if size < BlockHeaderSize || !IsAligned16(size) {
		return Block{}, 0, fmt.Errorf("block at %d: size %d: %w", off, size, ErrMisaligned)
	}
	if !HeaderTagOK(b, off) {
		return Block{}, 0, fmt.Errorf("block at %d: %w", off, ErrBadTag)
	}
	next := off + size
	if next > end || next < off {
		return Block{}, 0, fmt.Errorf("block at %d: size %d: %w", off, size, ErrOverrun)
	}
	return Block{
		Offset:    off,
		Size:      size,
		Free:      !allocated,
		Requested: int(ReadU32(b, off+BlockRequestedOffset)),
		Data:      b[off+BlockHeaderSize : next],
	}, next, nil
}

// Package format houses the in-band block layout used by the segment
// allocator. Every block in a segment starts with a fixed-size header that
// records its size, state and a check tag, so the segment can be walked and
// validated without any side table.
package format

import "math"

const (
	// Alignment is the alignment unit for block sizes and payload offsets.
	// 16 bytes covers the strictest scalar type on every supported platform.
	Alignment = 16

	// AlignmentMask is the bitmask used for aligning to Alignment (Alignment - 1).
	AlignmentMask = Alignment - 1

	// BlockHeaderSize is the number of bytes used by the header preceding
	// every block (free or in-use). It is a multiple of Alignment so that
	// payloads inherit the block's alignment.
	BlockHeaderSize = 16

	// MinBlockSize is the smallest block that may exist on its own: a header
	// plus one alignment unit of payload. Smaller fragments stay attached to
	// their neighbor.
	MinBlockSize = BlockHeaderSize + Alignment

	// MaxRequest is the largest payload a single request may ask for. The
	// requested-size field of the header is 32 bits wide.
	MaxRequest = math.MaxUint32

	// BlockMagic seeds the per-header check tag.
	BlockMagic uint32 = 0x5E6A110C
)

// Block header field offsets.
//
//	Offset  Size  Description
//	0x00    8     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes the header.
//	0x08    4     Requested payload size (0 when free).
//	0x0C    4     Tag: BlockMagic ^ offset ^ size.
const (
	BlockSizeOffset      = 0x00
	BlockRequestedOffset = 0x08
	BlockTagOffset       = 0x0C
)

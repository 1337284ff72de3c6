package alloc

import (
	"fmt"

	"github.com/joshuapare/segalloc/heap/verify"
	"github.com/joshuapare/segalloc/internal/format"
)

// ValidateSegment reports whether the block structure and the free index are
// consistent. It never modifies the segment.
func (a *Allocator) ValidateSegment() bool {
	return a.Validate() == nil
}

// Validate checks every structural invariant and returns the first violation:
// blocks tile the usable range, no two free blocks are adjacent, free blocks
// meet the minimum size, allocated payloads hold their requested size, and
// the free index holds exactly the free blocks of the segment.
func (a *Allocator) Validate() error {
	if !a.ready {
		return ErrNotInitialized
	}
	rep, err := verify.Segment(a.data, 0, a.end)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := a.free.check(a.data, rep.FreeOffsets); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rep.AllocatedBlocks != a.live {
		return fmt.Errorf("%w: %d allocated blocks in segment, %d tracked", ErrCorrupt, rep.AllocatedBlocks, a.live)
	}
	return nil
}

// Blocks calls fn for every block in address order until fn returns false.
// Block offsets are relative to Segment().
func (a *Allocator) Blocks(fn func(format.Block) bool) error {
	if !a.ready {
		return ErrNotInitialized
	}
	return verify.Walk(a.data, 0, a.end, func(blk format.Block) error {
		if !fn(blk) {
			return verify.ErrStopWalk
		}
		return nil
	})
}

package verify

import (
	"errors"
	"fmt"

	"github.com/joshuapare/segalloc/internal/buf"
	"github.com/joshuapare/segalloc/internal/format"
)

// ErrStopWalk may be returned by a Walk callback to end the walk early
// without reporting an error.
var ErrStopWalk = errors.New("verify: stop walk")

// ValidationError describes the first structural violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying decode error, if any.
func (e *ValidationError) Unwrap() error {
	if e.Details == nil {
		return nil
	}
	if err, ok := e.Details["cause"].(error); ok {
		return err
	}
	return nil
}

// Report summarizes a successful walk.
type Report struct {
	Blocks          int
	FreeBlocks      int
	AllocatedBlocks int
	FreeBytes       int
	AllocatedBytes  int
	LargestFree     int
	FreeOffsets     []int // Offsets of free blocks in address order
}

// Walk decodes every block in [start, end) in address order and calls fn for
// each. Decoding stops at the first malformed header.
func Walk(data []byte, start, end int, fn func(format.Block) error) error {
	if err := checkBounds(data, start, end); err != nil {
		return err
	}
	pos := start
	for pos < end {
		blk, next, err := format.NextBlock(data, pos, end)
		if err != nil {
			return &ValidationError{
				Type:    "BlockHeader",
				Message: err.Error(),
				Offset:  pos,
				Details: map[string]interface{}{"cause": err},
			}
		}
		if err := fn(blk); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
		pos = next
	}
	return nil
}

// Segment validates all structural invariants of the blocks in [start, end).
// Returns the first error encountered, or a Report if every check passes.
func Segment(data []byte, start, end int) (*Report, error) {
	rep := &Report{}
	prevFree := false
	prevOff := -1

	err := Walk(data, start, end, func(blk format.Block) error {
		rep.Blocks++
		if blk.Free {
			if prevFree {
				return &ValidationError{
					Type:    "Coalesce",
					Message: fmt.Sprintf("adjacent free blocks at 0x%X and 0x%X", prevOff, blk.Offset),
					Offset:  blk.Offset,
				}
			}
			if blk.Size < format.MinBlockSize {
				return &ValidationError{
					Type:    "MinBlockSize",
					Message: fmt.Sprintf("free block of %d bytes below minimum %d", blk.Size, format.MinBlockSize),
					Offset:  blk.Offset,
				}
			}
			rep.FreeBlocks++
			rep.FreeBytes += blk.Size
			rep.FreeOffsets = append(rep.FreeOffsets, blk.Offset)
			if blk.Size > rep.LargestFree {
				rep.LargestFree = blk.Size
			}
		} else {
			if blk.Requested > len(blk.Data) {
				return &ValidationError{
					Type: "Capacity",
					Message: fmt.Sprintf(
						"requested %d bytes exceeds payload capacity %d",
						blk.Requested,
						len(blk.Data),
					),
					Offset: blk.Offset,
				}
			}
			rep.AllocatedBlocks++
			rep.AllocatedBytes += blk.Size
		}
		prevFree = blk.Free
		prevOff = blk.Offset
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rep.Blocks == 0 {
		return nil, &ValidationError{
			Type:    "Tiling",
			Message: "no blocks found",
			Offset:  -1,
		}
	}
	return rep, nil
}

func checkBounds(data []byte, start, end int) error {
	if !format.IsAligned16(start) {
		return &ValidationError{
			Type:    "Tiling",
			Message: fmt.Sprintf("segment start 0x%X not %d-byte aligned", start, format.Alignment),
			Offset:  start,
		}
	}
	if _, err := buf.CheckRange(0, len(data), start, end-start); err != nil {
		return &ValidationError{
			Type:    "Tiling",
			Message: fmt.Sprintf("usable range [0x%X, 0x%X) outside segment: %v", start, end, err),
			Offset:  -1,
			Details: map[string]interface{}{"cause": err},
		}
	}
	return nil
}

// Package verify provides read-only validation of a segment's block structure.
//
// # Overview
//
// The walker decodes block headers in address order directly from the
// segment bytes. It never consults an allocator's free index, so it can be
// used to cross-check one (see alloc.Allocator.Validate) or to inspect a raw
// dump.
//
// Checks performed by Segment:
//   - Every header decodes: aligned offset and size, non-zero, valid tag
//   - Blocks tile [start, end) exactly, with no gap and no overrun
//   - No two adjacent blocks are both free
//   - Every free block is at least format.MinBlockSize
//   - Every allocated block's payload holds its last requested size
//
// # ValidationError
//
// All failures are reported as *ValidationError:
//
//	err := verify.Segment(data, start, end)
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Printf("%s at 0x%X: %s\n", verr.Type, verr.Offset, verr.Message)
//	}
//
// # Concurrency
//
// Walking is read-only. Any number of walks may run at once, but none may
// overlap a call that mutates the segment.
package verify

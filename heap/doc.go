// Package heap provides the backing memory for a segment allocator.
//
// # Overview
//
// A Segment is one contiguous, fixed-size region of read/write memory. It is
// obtained once, handed to an allocator (see heap/alloc) and released when the
// allocator is no longer needed. The region never moves and is never reused
// while it is live.
//
// # Platforms
//
//   - unix: anonymous private mapping via mmap(2)
//   - windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT
//   - others: an ordinary Go byte slice
//
// # Usage
//
//	seg, err := heap.Reserve(1 << 20)
//	if err != nil {
//	    return err
//	}
//	defer seg.Release()
//
//	a, err := alloc.New(nil)
//	if err != nil {
//	    return err
//	}
//	if !a.Init(seg.Bytes()) {
//	    return errors.New("segment unusable")
//	}
//
// Segments wrapping caller-owned memory are created with FromBytes; releasing
// them only drops the reference.
package heap

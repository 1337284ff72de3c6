package alloc

import (
	"fmt"
	"log/slog"
	"strings"
)

// Ptr is the payload offset of an allocated block, relative to the first
// aligned byte of the segment passed to Init (see Allocator.Pad).
type Ptr int

// Null is the pointer returned on failure. No payload can start at offset 0
// because every payload follows its header.
const Null Ptr = 0

// Policy selects the free block used to satisfy a request.
type Policy uint8

const (
	// BestFit picks the smallest free block that fits, lowest offset on ties.
	BestFit Policy = iota
	// FirstFit picks the lowest-addressed free block that fits.
	FirstFit
)

func (p Policy) String() string {
	switch p {
	case BestFit:
		return "best-fit"
	case FirstFit:
		return "first-fit"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy maps "best"/"best-fit" and "first"/"first-fit" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best", "best-fit", "bestfit":
		return BestFit, nil
	case "first", "first-fit", "firstfit":
		return FirstFit, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrBadConfig, s)
}

// Options configures an Allocator. A nil *Options selects the defaults.
type Options struct {
	// Policy selects best-fit (default) or first-fit placement.
	Policy Policy

	// SizeClasses overrides the best-fit size classes. nil means DefaultConfig.
	SizeClasses *SizeClassConfig

	// Logger receives split/coalesce events at Debug and rejected pointers
	// at Warn. nil means discard, unless SEGALLOC_LOG_ALLOC is set.
	Logger *slog.Logger
}

// Stats holds counters for testing and instrumentation.
type Stats struct {
	AllocCalls       int   // Total Alloc() calls
	AllocFailures    int   // Allocations that found no block
	FreeCalls        int   // Successful Free() calls
	FreeRejected     int   // Free()/FreeTail() calls with an unrecognized pointer or bad tail
	FreeTailCalls    int   // Successful FreeTail() calls
	ReallocCalls     int   // Total Resize() calls
	ReallocInPlace   int   // Resizes satisfied without moving
	ReallocMoved     int   // Resizes that relocated the payload
	ReallocFailures  int   // Resizes that failed
	BytesAllocated   int64 // Total block bytes handed out (including headers)
	BytesFreed       int64 // Total block bytes returned
	SplitCount       int   // Number of block splits
	CoalesceForward  int   // Forward coalesce operations
	CoalesceBackward int   // Backward coalesce operations
	HeapPushes       int   // heap.Push() calls
	HeapRemoves      int   // heap.Remove() calls
}

// Usage is a snapshot of the segment's occupancy.
type Usage struct {
	SegmentBytes    int // Usable bytes managed by the allocator
	AllocatedBytes  int // Bytes in allocated blocks, headers included
	FreeBytes       int // Bytes in free blocks, headers included
	RequestedBytes  int // Sum of the last requested sizes of live blocks
	AllocatedBlocks int
	FreeBlocks      int
	LargestFree     int // Size of the largest free block, header included
}

// LargestRequest returns the biggest request the largest free block can serve.
func (u Usage) LargestRequest() int {
	if u.LargestFree == 0 {
		return 0
	}
	return u.LargestFree - headerSize
}

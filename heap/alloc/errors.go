package alloc

import "errors"

var (
	// ErrNotInitialized indicates a call before a successful Init/Reset.
	ErrNotInitialized = errors.New("alloc: segment not initialized")

	// ErrSegmentTooSmall indicates the segment cannot host one minimum block.
	ErrSegmentTooSmall = errors.New("alloc: segment too small")

	// ErrNoSpace indicates that no free block large enough was found.
	ErrNoSpace = errors.New("alloc: no free block large enough")

	// ErrTooLarge indicates a request above format.MaxRequest bytes.
	ErrTooLarge = errors.New("alloc: request too large")

	// ErrBadPointer indicates a pointer that is not the payload of a live allocated block.
	ErrBadPointer = errors.New("alloc: unrecognized pointer")

	// ErrBadTail indicates a partial free whose size leaves an undersized prefix or suffix.
	ErrBadTail = errors.New("alloc: invalid tail size")

	// ErrCorrupt indicates the block structure or free index violates an invariant.
	ErrCorrupt = errors.New("alloc: structural corruption")

	// ErrBadConfig indicates invalid allocator options.
	ErrBadConfig = errors.New("alloc: invalid configuration")
)

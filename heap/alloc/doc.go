// Package alloc implements the allocator engine: a single fixed-size segment
// carved into variable-size blocks with in-band headers.
//
// Requests are served from a free index that supports best-fit (segregated
// size-class min-heaps) and first-fit (address-ordered list) placement.
// Freed blocks are merged with free neighbors in O(1) through offset and
// end-offset maps. Blocks can be resized in place, partially freed from the
// tail, and the whole structure can be validated against the index at any
// time.
//
// The classic entry points (Malloc, Calloc, Realloc, Dealloc, Dealloc2,
// ValidateSegment) report failure with Null, the original pointer or false.
// Each has an error-returning twin (Alloc, Resize, Free, FreeTail, Validate)
// that wraps the sentinel errors in errors.go.
//
// Example:
//
//	a, _ := alloc.New(nil)
//	if !a.Init(make([]byte, 1<<20)) {
//		return
//	}
//	p := a.Malloc(100)
//	copy(a.Bytes(p), "hello")
//	p = a.Realloc(p, 400)
//	a.Dealloc(p)
package alloc

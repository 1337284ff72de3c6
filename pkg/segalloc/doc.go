/*
Package segalloc provides a dynamic memory allocator over a single
contiguous segment reserved from the operating system.

# Quick Start

	h, err := segalloc.Open(1<<20, nil)
	if err != nil {
	    log.Fatal(err)
	}
	defer h.Close()

	p := h.Malloc(128)
	copy(h.Bytes(p), "hello")
	p = h.Realloc(p, 512)
	h.Dealloc(p)

# Features

  - Best-fit (default) or first-fit placement
  - Splitting and immediate coalescing with O(1) neighbor lookup
  - In-place growth and shrink, partial tail frees
  - 16-byte aligned payloads
  - Full structural validation at any time

# Pointers

Pointers are payload offsets into the segment (see Heap.Segment). Null (0)
reports failure. The classic calls return Null, the original pointer or false
on failure; the error-returning twins (Alloc, Resize, Free, FreeTail,
Validate) report why.

# Caller Memory

Wrap manages memory the caller already owns:

	buf := make([]byte, 64<<10)
	h, err := segalloc.Wrap(buf, &segalloc.Options{Policy: segalloc.FirstFit})

A Heap is not safe for concurrent use.
*/
package segalloc

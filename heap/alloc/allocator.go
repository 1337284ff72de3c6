package alloc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unsafe"

	"github.com/joshuapare/segalloc/internal/buf"
	"github.com/joshuapare/segalloc/internal/format"
)

// Runtime debug flag for allocation logging - controlled by SEGALLOC_LOG_ALLOC env var.
var logAlloc = os.Getenv("SEGALLOC_LOG_ALLOC") != ""

const (
	headerSize = format.BlockHeaderSize
	minBlock   = format.MinBlockSize
)

// Allocator manages one contiguous segment as a tiling of in-band blocks.
//
// A block is a 16-byte header followed by its payload. FREE blocks are
// tracked by a freeIndex; ALLOCATED blocks are only known through their
// headers. Adjacent FREE blocks are always merged, and a FREE block is never
// smaller than format.MinBlockSize.
//
// An Allocator is not safe for concurrent use.
type Allocator struct {
	data  []byte // Usable range: the segment minus its alignment pad and tail
	pad   int    // Bytes skipped at the front of the segment
	end   int    // len(data)
	ready bool

	policy    Policy
	sizeTable *sizeClassTable
	free      *freeIndex

	live      int // Allocated blocks
	requested int // Sum of requested sizes of allocated blocks

	log   *slog.Logger
	debug bool

	stats Stats
}

// New creates an uninitialized allocator. Call Init or Reset before use.
func New(opts *Options) (*Allocator, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg := DefaultConfig
	if opts.SizeClasses != nil {
		cfg = *opts.SizeClasses
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if opts.Policy != BestFit && opts.Policy != FirstFit {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, opts.Policy)
	}

	logger := opts.Logger
	if logger == nil {
		if logAlloc {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		} else {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}

	a := &Allocator{
		policy:    opts.Policy,
		sizeTable: newSizeClassTable(cfg),
		log:       logger.With("component", "alloc"),
		debug:     logger.Enabled(context.Background(), slog.LevelDebug),
	}
	a.free = newFreeIndex(a.sizeTable, &a.stats)
	return a, nil
}

// Init prepares segment for allocation, discarding any previous state.
// It reports false if the segment cannot hold a single minimum block.
func (a *Allocator) Init(segment []byte) bool {
	return a.Reset(segment) == nil
}

// Reset is Init with an error describing the failure. On failure the segment
// is not written and the allocator is left uninitialized.
func (a *Allocator) Reset(segment []byte) error {
	a.Detach()
	a.stats = Stats{}

	if len(segment) == 0 {
		return fmt.Errorf("%w: empty segment", ErrSegmentTooSmall)
	}
	pad := format.AlignPad(uintptr(unsafe.Pointer(unsafe.SliceData(segment))))
	usable := 0
	if len(segment) > pad {
		usable = format.AlignDown16(len(segment) - pad)
	}
	if usable < minBlock {
		return fmt.Errorf("%w: %d bytes (%d usable), need %d", ErrSegmentTooSmall, len(segment), usable, minBlock)
	}

	a.data = segment[pad : pad+usable : pad+usable]
	a.pad = pad
	a.end = usable
	format.PutHeader(a.data, 0, usable, false, 0)
	a.free.insert(0, usable)
	a.ready = true

	if a.debug {
		a.log.Debug("init", "len", len(segment), "pad", pad, "usable", usable)
	}
	return nil
}

// Detach forgets the segment. Later calls fail with ErrNotInitialized until
// the next successful Init. The segment bytes are not touched.
func (a *Allocator) Detach() {
	a.ready = false
	a.data = nil
	a.pad, a.end = 0, 0
	a.free.reset()
	a.live, a.requested = 0, 0
}

// Pad returns the number of leading segment bytes skipped to align the first
// header. Pointer p addresses segment[Pad()+int(p)].
func (a *Allocator) Pad() int { return a.pad }

// Segment returns the usable range of the segment that pointers index into.
func (a *Allocator) Segment() []byte { return a.data }

// Policy returns the placement policy.
func (a *Allocator) Policy() Policy { return a.policy }

// SizeClasses returns the name of the size class configuration in use.
func (a *Allocator) SizeClasses() string { return a.sizeTable.String() }

// Malloc allocates n bytes and returns the payload pointer, or Null if no
// block is large enough. The payload contents are not initialized.
func (a *Allocator) Malloc(n int) Ptr {
	p, _, err := a.Alloc(n)
	if err != nil {
		return Null
	}
	return p
}

// Alloc allocates n bytes. The returned slice has length n (1 for n <= 0) and
// capacity equal to the block's payload capacity.
func (a *Allocator) Alloc(n int) (Ptr, []byte, error) {
	if !a.ready {
		return Null, nil, ErrNotInitialized
	}
	a.stats.AllocCalls++
	if n > format.MaxRequest {
		a.stats.AllocFailures++
		return Null, nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	req := max(n, 1)
	need := format.BlockSizeFor(n)

	off, size, ok := a.free.find(a.policy, need)
	if !ok {
		a.stats.AllocFailures++
		if a.debug {
			a.log.Debug("alloc failed", "need", need, "free", a.free.bytes)
		}
		return Null, nil, fmt.Errorf("%w: need %d bytes", ErrNoSpace, need)
	}
	a.free.remove(off)
	size = a.carve(off, size, need, req)

	a.live++
	a.requested += req
	a.stats.BytesAllocated += int64(size)

	payload, _ := buf.Window(a.data, off+headerSize, req, size-headerSize)
	return Ptr(off + headerSize), payload, nil
}

// Calloc allocates n bytes and sets the whole payload capacity to fill[0]
// (zero when fill is empty). Returns Null on failure without writing.
func (a *Allocator) Calloc(n int, fill ...byte) Ptr {
	p, payload, err := a.Alloc(n)
	if err != nil {
		return Null
	}
	full := payload[:cap(payload)]
	if len(fill) == 0 || fill[0] == 0 {
		clear(full)
	} else {
		for i := range full {
			full[i] = fill[0]
		}
	}
	return p
}

// Realloc resizes the block at p to n bytes, in place when possible.
// Realloc(Null, n) behaves as Malloc(n). It returns Null on failure, leaving
// the original block untouched.
func (a *Allocator) Realloc(p Ptr, n int) Ptr {
	np, err := a.Resize(p, n)
	if err != nil {
		return Null
	}
	return np
}

// Resize is Realloc with an error describing the failure.
func (a *Allocator) Resize(p Ptr, n int) (Ptr, error) {
	if p == Null {
		np, _, err := a.Alloc(n)
		return np, err
	}
	off, size, err := a.lookup(p)
	if err != nil {
		return Null, err
	}
	a.stats.ReallocCalls++
	if n > format.MaxRequest {
		a.stats.ReallocFailures++
		return Null, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	req := max(n, 1)
	need := format.BlockSizeFor(n)
	oldReq := a.requestedAt(off)

	// Shrink, or grow within the current capacity.
	if need <= size {
		if rem := size - need; rem >= minBlock {
			format.PutHeader(a.data, off, need, true, req)
			a.stats.SplitCount++
			a.stats.BytesFreed += int64(rem)
			a.release(off+need, rem)
		} else {
			format.PutHeader(a.data, off, size, true, req)
		}
		a.requested += req - oldReq
		a.stats.ReallocInPlace++
		return p, nil
	}

	// Grow into the following free block.
	next := off + size
	if nsize, ok := a.free.lookup(next); ok && size+nsize >= need {
		a.free.remove(next)
		format.WipeHeader(a.data, next)
		a.stats.CoalesceForward++
		final := a.carve(off, size+nsize, need, req)
		a.requested += req - oldReq
		a.stats.BytesAllocated += int64(final - size)
		a.stats.ReallocInPlace++
		return p, nil
	}

	// Relocate.
	noff, nsize, ok := a.free.find(a.policy, need)
	if !ok {
		a.stats.ReallocFailures++
		return Null, fmt.Errorf("%w: need %d bytes", ErrNoSpace, need)
	}
	a.free.remove(noff)
	final := a.carve(noff, nsize, need, req)
	keep := min(size, final) - headerSize
	copy(a.data[noff+headerSize:noff+headerSize+keep], a.data[off+headerSize:off+headerSize+keep])

	a.requested += req - oldReq
	a.stats.BytesAllocated += int64(final)
	a.stats.BytesFreed += int64(size)
	a.release(off, size)
	a.stats.ReallocMoved++

	if a.debug {
		a.log.Debug("realloc moved", "from", off, "to", noff, "size", final)
	}
	return Ptr(noff + headerSize), nil
}

// Dealloc frees the block at p. It returns Null on success and p unchanged
// when p is not a live allocation.
func (a *Allocator) Dealloc(p Ptr) Ptr {
	if err := a.Free(p); err != nil {
		return p
	}
	return Null
}

// Free is Dealloc with an error describing the failure.
func (a *Allocator) Free(p Ptr) error {
	off, size, err := a.lookup(p)
	if err != nil {
		a.reject("free", p, err)
		return err
	}
	a.live--
	a.requested -= a.requestedAt(off)
	a.stats.FreeCalls++
	a.stats.BytesFreed += int64(size)
	a.release(off, size)
	return nil
}

// Dealloc2 frees the trailing n bytes of the block at p, keeping the prefix
// allocated. n is rounded down to the alignment unit. It returns Null on
// success and p unchanged when the block is unknown or the split would leave
// a prefix or suffix below the minimum block size.
func (a *Allocator) Dealloc2(p Ptr, n int) Ptr {
	if err := a.FreeTail(p, n); err != nil {
		return p
	}
	return Null
}

// FreeTail is Dealloc2 with an error describing the failure.
func (a *Allocator) FreeTail(p Ptr, n int) error {
	off, size, err := a.lookup(p)
	if err != nil {
		a.reject("free tail", p, err)
		return err
	}
	if n >= size {
		err = fmt.Errorf("%w: %d bytes from a %d-byte block", ErrBadTail, n, size)
		a.reject("free tail", p, err)
		return err
	}
	n = format.AlignDown16(n)
	if n < minBlock || size-n < minBlock {
		err = fmt.Errorf("%w: %d bytes from a %d-byte block leaves a block below %d",
			ErrBadTail, n, size, minBlock)
		a.reject("free tail", p, err)
		return err
	}

	prefix := size - n
	oldReq := a.requestedAt(off)
	req := min(oldReq, prefix-headerSize)
	format.PutHeader(a.data, off, prefix, true, req)
	a.requested += req - oldReq

	a.stats.FreeTailCalls++
	a.stats.SplitCount++
	a.stats.BytesFreed += int64(n)
	a.release(off+prefix, n)
	return nil
}

// Bytes returns the payload of the block at p with length equal to the last
// requested size and capacity equal to the payload capacity. Returns nil if
// p is not a live allocation.
func (a *Allocator) Bytes(p Ptr) []byte {
	off, size, err := a.lookup(p)
	if err != nil {
		return nil
	}
	payload, _ := buf.Window(a.data, off+headerSize, a.requestedAt(off), size-headerSize)
	return payload
}

// UsableSize returns the payload capacity of the block at p, or 0 if p is
// not a live allocation.
func (a *Allocator) UsableSize(p Ptr) int {
	_, size, err := a.lookup(p)
	if err != nil {
		return 0
	}
	return size - headerSize
}

// Usage returns a snapshot of the segment's occupancy.
func (a *Allocator) Usage() Usage {
	if !a.ready {
		return Usage{}
	}
	return Usage{
		SegmentBytes:    a.end,
		AllocatedBytes:  a.end - a.free.bytes,
		FreeBytes:       a.free.bytes,
		RequestedBytes:  a.requested,
		AllocatedBlocks: a.live,
		FreeBlocks:      a.free.len(),
		LargestFree:     a.free.largest(),
	}
}

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// carve turns the free block [off, off+size), already removed from the index,
// into an allocated block of need bytes, splitting off the remainder when it
// can stand alone. Returns the final block size.
func (a *Allocator) carve(off, size, need, req int) int {
	rem := size - need
	if rem < minBlock {
		format.PutHeader(a.data, off, size, true, req)
		return size
	}
	format.PutHeader(a.data, off, need, true, req)
	format.PutHeader(a.data, off+need, rem, false, 0)
	a.free.insert(off+need, rem)
	a.stats.SplitCount++
	if a.debug {
		a.log.Debug("split", "off", off, "size", need, "remainder", rem)
	}
	return need
}

// release marks [off, off+size) free, merging it with free neighbors.
func (a *Allocator) release(off, size int) {
	next := off + size
	if nsize, ok := a.free.remove(next); ok {
		format.WipeHeader(a.data, next)
		size += nsize
		a.stats.CoalesceForward++
		if a.debug {
			a.log.Debug("coalesce forward", "off", off, "next", next, "size", size)
		}
	}

	if prev, psize, ok := a.free.endingAt(off); ok {
		a.free.remove(prev)
		format.WipeHeader(a.data, off)
		off = prev
		size += psize
		a.stats.CoalesceBackward++
		if a.debug {
			a.log.Debug("coalesce backward", "off", off, "size", size)
		}
	}

	format.PutHeader(a.data, off, size, false, 0)
	a.free.insert(off, size)
}

// lookup resolves p to the header offset and size of a live allocated block.
func (a *Allocator) lookup(p Ptr) (off, size int, err error) {
	if !a.ready {
		return 0, 0, ErrNotInitialized
	}
	off = int(p) - headerSize
	if off < 0 || off > a.end-minBlock || !format.IsAligned16(off) {
		return 0, 0, fmt.Errorf("%w: 0x%X outside segment", ErrBadPointer, int(p))
	}
	size, allocated := format.ReadHeader(a.data, off)
	if !allocated {
		return 0, 0, fmt.Errorf("%w: 0x%X is not allocated", ErrBadPointer, int(p))
	}
	if !format.HeaderTagOK(a.data, off) || size < minBlock || size > a.end-off || !format.IsAligned16(size) {
		return 0, 0, fmt.Errorf("%w: 0x%X has no valid header", ErrBadPointer, int(p))
	}
	return off, size, nil
}

func (a *Allocator) requestedAt(off int) int {
	return int(format.ReadU32(a.data, off+format.BlockRequestedOffset))
}

func (a *Allocator) reject(op string, p Ptr, err error) {
	a.stats.FreeRejected++
	a.log.Warn("rejected "+op, "ptr", int(p), "err", err)
}

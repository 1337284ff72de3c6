package trace

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joshuapare/segalloc/heap/alloc"
	"github.com/joshuapare/segalloc/internal/logger"
)

// Engine is the allocator surface a trace drives.
type Engine interface {
	Malloc(n int) alloc.Ptr
	Calloc(n int, fill ...byte) alloc.Ptr
	Realloc(p alloc.Ptr, n int) alloc.Ptr
	Dealloc(p alloc.Ptr) alloc.Ptr
	Dealloc2(p alloc.Ptr, n int) alloc.Ptr
	Validate() error
	Bytes(p alloc.Ptr) []byte
	UsableSize(p alloc.Ptr) int
	Usage() alloc.Usage
}

// ReplayOptions controls replay behavior.
type ReplayOptions struct {
	// ValidateEach validates the segment after every operation.
	ValidateEach bool

	// SkipPatterns disables writing and checking payload patterns.
	SkipPatterns bool

	// Logger receives per-operation failures at Debug. nil means logger.L.
	Logger *slog.Logger
}

// Result summarizes a replay.
type Result struct {
	Ops          int
	Allocs       int // Successful malloc/calloc/realloc-from-null
	Reallocs     int // Successful reallocs of live blocks
	Frees        int
	PartialFrees int // Successful partial frees
	Validations  int
	Failures     int // Allocations and reallocs that returned Null
	Refused      int // Partial frees refused by the allocator

	PeakPayload   int // Largest sum of live requested sizes
	PeakAllocated int // Largest number of bytes in allocated blocks, headers included
	SegmentBytes  int
	Utilization   float64 // PeakPayload / SegmentBytes
	Elapsed       time.Duration
}

type liveBlock struct {
	ptr  alloc.Ptr
	size int
}

type replayer struct {
	e       Engine
	opts    ReplayOptions
	log     *slog.Logger
	live    map[int]liveBlock
	nulls   map[int]struct{} // IDs whose allocation returned Null
	payload int
	res     *Result
}

// Replay runs every operation of t against e. It stops at the first
// operation that breaks an allocator guarantee or misuses an ID, returning
// the partial Result together with an *OpError. Allocation failures are
// counted, not returned.
func Replay(e Engine, t *Trace, opts ReplayOptions) (*Result, error) {
	r := &replayer{
		e:     e,
		opts:  opts,
		log:   opts.Logger,
		live:  make(map[int]liveBlock, t.IDs),
		nulls: make(map[int]struct{}),
		res:   &Result{SegmentBytes: e.Usage().SegmentBytes},
	}
	if r.log == nil {
		r.log = logger.L
	}

	start := time.Now()
	defer func() {
		r.res.Elapsed = time.Since(start)
		if r.res.SegmentBytes > 0 {
			r.res.Utilization = float64(r.res.PeakPayload) / float64(r.res.SegmentBytes)
		}
	}()

	for i, op := range t.Ops {
		if err := r.step(op); err != nil {
			return r.res, &OpError{Index: i, Op: op, Err: err}
		}
		if r.opts.ValidateEach && op.Kind != OpValidate {
			if err := e.Validate(); err != nil {
				return r.res, &OpError{Index: i, Op: op, Err: fmt.Errorf("%w: %w", ErrValidation, err)}
			}
		}
		r.res.Ops++
		r.res.PeakPayload = max(r.res.PeakPayload, r.payload)
		r.res.PeakAllocated = max(r.res.PeakAllocated, e.Usage().AllocatedBytes)
	}
	return r.res, nil
}

func (r *replayer) step(op Op) error {
	switch op.Kind {
	case OpAlloc, OpCalloc:
		if _, ok := r.live[op.ID]; ok {
			return ErrDuplicateID
		}
		return r.allocate(op)

	case OpRealloc:
		blk, ok := r.live[op.ID]
		if !ok {
			return r.allocate(op)
		}
		return r.realloc(op, blk)

	case OpFree:
		blk, ok := r.live[op.ID]
		if !ok {
			return r.forgetNull(op.ID, true)
		}
		if err := r.check(op.ID, blk); err != nil {
			return err
		}
		if r.e.Dealloc(blk.ptr) != alloc.Null {
			return fmt.Errorf("%w: 0x%X", ErrRejected, int(blk.ptr))
		}
		delete(r.live, op.ID)
		r.payload -= blk.size
		r.res.Frees++
		return nil

	case OpPartial:
		blk, ok := r.live[op.ID]
		if !ok {
			return r.forgetNull(op.ID, false)
		}
		if r.e.Dealloc2(blk.ptr, op.Size) != alloc.Null {
			r.res.Refused++
			r.log.Debug("partial free refused", "id", op.ID, "size", op.Size)
			return nil
		}
		kept := min(blk.size, r.e.UsableSize(blk.ptr))
		r.payload -= blk.size - kept
		blk.size = kept
		r.live[op.ID] = blk
		r.res.PartialFrees++
		return r.check(op.ID, blk)

	case OpValidate:
		r.res.Validations++
		if err := r.e.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown operation %s", ErrSyntax, op.Kind)
}

func (r *replayer) allocate(op Op) error {
	var p alloc.Ptr
	switch op.Kind {
	case OpCalloc:
		p = r.e.Calloc(op.Size)
	case OpRealloc:
		p = r.e.Realloc(alloc.Null, op.Size)
	default:
		p = r.e.Malloc(op.Size)
	}
	if p == alloc.Null {
		r.res.Failures++
		r.nulls[op.ID] = struct{}{}
		r.log.Debug("allocation failed", "op", op.Kind.String(), "id", op.ID, "size", op.Size)
		return nil
	}
	delete(r.nulls, op.ID)

	size := max(op.Size, 1)
	if op.Kind == OpCalloc && !r.opts.SkipPatterns {
		for i, b := range r.e.Bytes(p) {
			if b != 0 {
				return fmt.Errorf("%w: calloc byte %d is 0x%02X", ErrCorruptPayload, i, b)
			}
		}
	}
	blk := liveBlock{ptr: p, size: size}
	r.fill(op.ID, blk, 0)
	r.live[op.ID] = blk
	r.payload += size
	r.res.Allocs++
	return nil
}

func (r *replayer) realloc(op Op, blk liveBlock) error {
	np := r.e.Realloc(blk.ptr, op.Size)
	if np == alloc.Null {
		r.res.Failures++
		r.log.Debug("realloc failed", "id", op.ID, "size", op.Size)
		return r.check(op.ID, blk)
	}

	size := max(op.Size, 1)
	kept := liveBlock{ptr: np, size: min(blk.size, size)}
	if err := r.check(op.ID, kept); err != nil {
		return err
	}
	nblk := liveBlock{ptr: np, size: size}
	r.fill(op.ID, nblk, kept.size)
	r.live[op.ID] = nblk
	r.payload += size - blk.size
	r.res.Reallocs++
	return nil
}

// forgetNull handles a free of an ID that holds Null, which is a no-op like
// free(NULL). Any other unknown ID is a trace error.
func (r *replayer) forgetNull(id int, drop bool) error {
	if _, ok := r.nulls[id]; !ok {
		return ErrUnknownID
	}
	if drop {
		delete(r.nulls, id)
	}
	return nil
}

// pattern is the byte written at offset i of block id.
func pattern(id, i int) byte {
	return byte(id*131 + i*7 + 1)
}

func (r *replayer) fill(id int, blk liveBlock, from int) {
	if r.opts.SkipPatterns {
		return
	}
	b := r.e.Bytes(blk.ptr)
	for i := from; i < blk.size; i++ {
		b[i] = pattern(id, i)
	}
}

func (r *replayer) check(id int, blk liveBlock) error {
	if r.opts.SkipPatterns {
		return nil
	}
	b := r.e.Bytes(blk.ptr)
	if len(b) < blk.size {
		return fmt.Errorf("%w: block %d holds %d bytes, want %d", ErrCorruptPayload, id, len(b), blk.size)
	}
	for i := range blk.size {
		if b[i] != pattern(id, i) {
			return fmt.Errorf("%w: block %d byte %d is 0x%02X, want 0x%02X",
				ErrCorruptPayload, id, i, b[i], pattern(id, i))
		}
	}
	return nil
}

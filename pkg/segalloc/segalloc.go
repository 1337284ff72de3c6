package segalloc

import (
	"fmt"

	"github.com/joshuapare/segalloc/heap"
	"github.com/joshuapare/segalloc/heap/alloc"
)

// Re-exported engine types.
type (
	Options         = alloc.Options
	Ptr             = alloc.Ptr
	Policy          = alloc.Policy
	Stats           = alloc.Stats
	Usage           = alloc.Usage
	SizeClassConfig = alloc.SizeClassConfig
)

const (
	Null     = alloc.Null
	BestFit  = alloc.BestFit
	FirstFit = alloc.FirstFit
)

// Re-exported errors.
var (
	ErrSegmentTooSmall = alloc.ErrSegmentTooSmall
	ErrNoSpace         = alloc.ErrNoSpace
	ErrBadPointer      = alloc.ErrBadPointer
	ErrBadTail         = alloc.ErrBadTail
	ErrCorrupt         = alloc.ErrCorrupt
	ErrNotInitialized  = alloc.ErrNotInitialized
)

// Heap couples a reserved segment with the allocator managing it.
type Heap struct {
	*alloc.Allocator

	seg *heap.Segment
}

// Open reserves a segment of size bytes from the operating system and
// initializes an allocator over it.
func Open(size int, opts *Options) (*Heap, error) {
	seg, err := heap.Reserve(size)
	if err != nil {
		return nil, fmt.Errorf("segalloc: open: %w", err)
	}
	h, err := attach(seg, opts)
	if err != nil {
		_ = seg.Release()
		return nil, err
	}
	return h, nil
}

// Wrap initializes an allocator over caller-owned memory. Close does not
// free b.
func Wrap(b []byte, opts *Options) (*Heap, error) {
	return attach(heap.FromBytes(b), opts)
}

func attach(seg *heap.Segment, opts *Options) (*Heap, error) {
	a, err := alloc.New(opts)
	if err != nil {
		return nil, fmt.Errorf("segalloc: %w", err)
	}
	if err := a.Reset(seg.Bytes()); err != nil {
		return nil, fmt.Errorf("segalloc: %w", err)
	}
	return &Heap{Allocator: a, seg: seg}, nil
}

// Size returns the number of bytes reserved for the segment, alignment pad
// and truncated tail included.
func (h *Heap) Size() int { return h.seg.Size() }

// Close detaches the allocator and releases the segment. Pointers obtained
// from h are invalid afterwards. Close is idempotent.
func (h *Heap) Close() error {
	if h.seg.Released() {
		return nil
	}
	h.Detach()
	return h.seg.Release()
}

package alloc

import (
	"container/heap"
	"fmt"
	"slices"
	"sync"

	"github.com/joshuapare/segalloc/internal/format"
)

// freeBlock represents a free block in the index.
// Used in min-heaps for O(log n) allocation and removal.
type freeBlock struct {
	off       int // Header offset in the segment
	size      int // Size including header
	sc        int // Size class (which heap this belongs to)
	heapIndex int // Position in heap (for heap.Remove)
}

// freeBlockHeap implements heap.Interface for a min-heap keyed on (size, off).
// The top is the smallest block, lowest offset on ties.
type freeBlockHeap []*freeBlock

func (h *freeBlockHeap) Len() int { return len(*h) }

func (h *freeBlockHeap) Less(i, j int) bool {
	a, b := (*h)[i], (*h)[j]
	if a.size != b.size {
		return a.size < b.size
	}
	return a.off < b.off
}

func (h *freeBlockHeap) Swap(i, j int) {
	(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
	(*h)[i].heapIndex = i
	(*h)[j].heapIndex = j
}

func (h *freeBlockHeap) Push(x any) {
	blk := x.(*freeBlock) //nolint:errcheck // heap.Interface contract guarantees type
	blk.heapIndex = len(*h)
	*h = append(*h, blk)
}

func (h *freeBlockHeap) Pop() any {
	old := *h
	n := len(old)
	blk := old[n-1]
	old[n-1] = nil
	blk.heapIndex = -1
	*h = old[0 : n-1]
	return blk
}

// freeIndex tracks every FREE block of the segment.
//   - lists: one min-heap per size class (plus the large class) for best-fit
//   - addrs: free offsets in address order for first-fit
//   - byOff: offset -> block, O(1) forward coalescing and removal
//   - endIdx: end offset -> start offset, O(1) backward coalescing
//
// All four structures are updated together on every insert and remove.
type freeIndex struct {
	table  *sizeClassTable
	lists  []freeBlockHeap
	addrs  []int
	byOff  map[int]*freeBlock
	endIdx map[int]int
	bytes  int

	pool sync.Pool

	stats *Stats
}

func newFreeIndex(table *sizeClassTable, stats *Stats) *freeIndex {
	ix := &freeIndex{
		table:  table,
		lists:  make([]freeBlockHeap, table.NumClasses()+1),
		byOff:  make(map[int]*freeBlock),
		endIdx: make(map[int]int),
		stats:  stats,
	}
	ix.pool.New = func() any { return new(freeBlock) }
	return ix
}

// reset drops every entry.
func (ix *freeIndex) reset() {
	for i := range ix.lists {
		clear(ix.lists[i])
		ix.lists[i] = ix.lists[i][:0]
	}
	ix.addrs = ix.addrs[:0]
	clear(ix.byOff)
	clear(ix.endIdx)
	ix.bytes = 0
}

// len returns the number of indexed free blocks.
func (ix *freeIndex) len() int { return len(ix.byOff) }

// lookup returns the size of the free block starting at off.
func (ix *freeIndex) lookup(off int) (int, bool) {
	blk, ok := ix.byOff[off]
	if !ok {
		return 0, false
	}
	return blk.size, true
}

// endingAt returns the free block whose end is exactly off.
func (ix *freeIndex) endingAt(off int) (start, size int, ok bool) {
	start, ok = ix.endIdx[off]
	if !ok {
		return 0, 0, false
	}
	return start, ix.byOff[start].size, true
}

// insert adds a free block. The caller guarantees off is not already indexed.
func (ix *freeIndex) insert(off, size int) {
	blk := ix.pool.Get().(*freeBlock) //nolint:errcheck // pool only holds *freeBlock
	blk.off = off
	blk.size = size
	blk.sc = ix.table.getSizeClass(size)

	heap.Push(&ix.lists[blk.sc], blk)
	ix.stats.HeapPushes++

	pos, _ := slices.BinarySearch(ix.addrs, off)
	ix.addrs = slices.Insert(ix.addrs, pos, off)

	ix.byOff[off] = blk
	ix.endIdx[off+size] = off
	ix.bytes += size
}

// remove drops the free block at off and returns its size.
func (ix *freeIndex) remove(off int) (int, bool) {
	blk, ok := ix.byOff[off]
	if !ok {
		return 0, false
	}
	heap.Remove(&ix.lists[blk.sc], blk.heapIndex)
	ix.stats.HeapRemoves++

	if pos, found := slices.BinarySearch(ix.addrs, off); found {
		ix.addrs = slices.Delete(ix.addrs, pos, pos+1)
	}

	delete(ix.byOff, off)
	delete(ix.endIdx, off+blk.size)
	ix.bytes -= blk.size

	size := blk.size
	*blk = freeBlock{}
	ix.pool.Put(blk)
	return size, true
}

// find returns the free block selected by policy for a block of need bytes.
func (ix *freeIndex) find(policy Policy, need int) (off, size int, ok bool) {
	var blk *freeBlock
	if policy == FirstFit {
		blk = ix.firstFit(need)
	} else {
		blk = ix.bestFit(need)
	}
	if blk == nil {
		return 0, 0, false
	}
	return blk.off, blk.size, true
}

// bestFit returns the smallest block of at least need bytes, lowest offset on
// ties. The request's own class may hold blocks smaller than need, so it is
// scanned; every higher class only holds larger blocks, so its top wins.
func (ix *freeIndex) bestFit(need int) *freeBlock {
	sc := ix.table.getSizeClass(need)

	own := ix.lists[sc]
	if len(own) > 0 && own[0].size >= need {
		return own[0]
	}
	var best *freeBlock
	for _, blk := range own {
		if blk.size < need {
			continue
		}
		if best == nil || blk.size < best.size || (blk.size == best.size && blk.off < best.off) {
			best = blk
		}
	}
	if best != nil {
		return best
	}

	for c := sc + 1; c < len(ix.lists); c++ {
		if len(ix.lists[c]) > 0 {
			return ix.lists[c][0]
		}
	}
	return nil
}

// firstFit returns the lowest-addressed block of at least need bytes.
func (ix *freeIndex) firstFit(need int) *freeBlock {
	for _, off := range ix.addrs {
		if blk := ix.byOff[off]; blk.size >= need {
			return blk
		}
	}
	return nil
}

// largest returns the size of the biggest indexed free block.
func (ix *freeIndex) largest() int {
	for c := len(ix.lists) - 1; c >= 0; c-- {
		if len(ix.lists[c]) == 0 {
			continue
		}
		maxSize := 0
		for _, blk := range ix.lists[c] {
			maxSize = max(maxSize, blk.size)
		}
		return maxSize
	}
	return 0
}

// check compares the index against the free blocks found by a walk of data.
// offsets must be in address order.
func (ix *freeIndex) check(data []byte, offsets []int) error {
	if len(ix.byOff) != len(offsets) {
		return fmt.Errorf("free index holds %d blocks, segment has %d", len(ix.byOff), len(offsets))
	}
	if !slices.Equal(ix.addrs, offsets) {
		return fmt.Errorf("address list does not match free blocks in segment")
	}
	if len(ix.endIdx) != len(offsets) {
		return fmt.Errorf("end index holds %d entries, want %d", len(ix.endIdx), len(offsets))
	}

	total := 0
	for _, off := range offsets {
		blk, ok := ix.byOff[off]
		if !ok {
			return fmt.Errorf("free block at 0x%X missing from index", off)
		}
		size, allocated := format.ReadHeader(data, off)
		if allocated || blk.size != size {
			return fmt.Errorf("free block at 0x%X indexed with size %d, header says %d", off, blk.size, size)
		}
		if start, ok := ix.endIdx[off+size]; !ok || start != off {
			return fmt.Errorf("end index entry for block at 0x%X is stale", off)
		}
		if blk.sc != ix.table.getSizeClass(size) {
			return fmt.Errorf("free block at 0x%X in size class %d, want %d", off, blk.sc, ix.table.getSizeClass(size))
		}
		list := ix.lists[blk.sc]
		if blk.heapIndex < 0 || blk.heapIndex >= len(list) || list[blk.heapIndex] != blk {
			return fmt.Errorf("free block at 0x%X has stale heap position", off)
		}
		total += size
	}

	inHeaps := 0
	for _, list := range ix.lists {
		inHeaps += len(list)
	}
	if inHeaps != len(offsets) {
		return fmt.Errorf("size-class heaps hold %d blocks, want %d", inHeaps, len(offsets))
	}
	if total != ix.bytes {
		return fmt.Errorf("free byte count %d, segment has %d", ix.bytes, total)
	}
	return nil
}

package alloc

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/internal/format"
)

type liveBlock struct {
	seed byte
	size int
}

// TestProperty_RandomOps performs random operations under every policy and
// size class preset, checking the invariants and payload contents after
// each step.
func TestProperty_RandomOps(t *testing.T) {
	for _, policy := range []Policy{BestFit, FirstFit} {
		for name, cfg := range Presets {
			t.Run(fmt.Sprintf("%s/%s", policy, name), func(t *testing.T) {
				runRandomOps(t, policy, cfg, 42)
			})
		}
	}
}

func runRandomOps(t *testing.T, policy Policy, cfg SizeClassConfig, seed int64) {
	a := newTestAllocator(t, 64<<10, &Options{Policy: policy, SizeClasses: &cfg})
	rng := rand.New(rand.NewSource(seed)) // Fixed seed for reproducibility
	live := make(map[Ptr]liveBlock)
	var order []Ptr
	next := byte(1)

	pick := func() (Ptr, int) {
		i := rng.Intn(len(order))
		return order[i], i
	}
	drop := func(i int) {
		order[i] = order[len(order)-1]
		order = order[:len(order)-1]
	}

	for step := range 3000 {
		op := rng.Intn(10)
		if len(order) == 0 {
			op = 0
		}
		switch {
		case op <= 3: // malloc or calloc
			size := 1 + rng.Intn(2048)
			var p Ptr
			if op == 3 {
				p = a.Calloc(size)
			} else {
				p = a.Malloc(size)
			}
			if p == Null {
				continue
			}
			_, dup := live[p]
			require.False(t, dup, "step %d: pointer 0x%X handed out twice", step, p)
			if op == 3 {
				require.Equal(t, make([]byte, size), a.Bytes(p), "step %d: calloc not zeroed", step)
			}
			fillPattern(a.Bytes(p), next)
			live[p] = liveBlock{seed: next, size: size}
			order = append(order, p)
			next++

		case op <= 6: // free
			p, i := pick()
			require.Equal(t, Null, a.Dealloc(p), "step %d", step)
			delete(live, p)
			drop(i)

		case op <= 8: // realloc
			p, i := pick()
			old := live[p]
			size := 1 + rng.Intn(4096)
			np := a.Realloc(p, size)
			if np == Null {
				requirePattern(t, a.Bytes(p), old.seed)
				continue
			}
			b := a.Bytes(np)
			require.Len(t, b, size)
			requirePattern(t, b[:min(old.size, size)], old.seed)
			fillPattern(b, old.seed)
			delete(live, p)
			live[np] = liveBlock{seed: old.seed, size: size}
			order[i] = np

		default: // partial free
			p, _ := pick()
			old := live[p]
			blockSize := a.UsableSize(p) + format.BlockHeaderSize
			n := rng.Intn(blockSize + 16)
			if a.Dealloc2(p, n) == Null {
				old.size = min(old.size, a.UsableSize(p))
				live[p] = old
			}
		}

		require.NoError(t, a.Validate(), "step %d", step)
		if step%50 == 0 {
			assertValid(t, a)
			for p, blk := range live {
				b := a.Bytes(p)
				require.Len(t, b, blk.size, "step %d", step)
				requirePattern(t, b, blk.seed)
			}
		}
	}

	for _, p := range order {
		require.Equal(t, Null, a.Dealloc(p))
	}
	u := a.Usage()
	require.Equal(t, 1, u.FreeBlocks, "everything freed must coalesce into one block")
	require.Equal(t, u.SegmentBytes, u.FreeBytes)
	require.Zero(t, u.RequestedBytes)
	assertValid(t, a)
}

// TestProperty_Deterministic verifies identical operation sequences produce
// identical layouts.
func TestProperty_Deterministic(t *testing.T) {
	layout := func() []format.Block {
		a := newTestAllocator(t, 16<<10, nil)
		rng := rand.New(rand.NewSource(7))
		var ptrs []Ptr
		for range 200 {
			if len(ptrs) > 0 && rng.Intn(3) == 0 {
				i := rng.Intn(len(ptrs))
				a.Dealloc(ptrs[i])
				ptrs = append(ptrs[:i], ptrs[i+1:]...)
				continue
			}
			if p := a.Malloc(1 + rng.Intn(300)); p != Null {
				ptrs = append(ptrs, p)
			}
		}
		var blocks []format.Block
		require.NoError(t, a.Blocks(func(blk format.Block) bool {
			blk.Data = nil
			blocks = append(blocks, blk)
			return true
		}))
		return blocks
	}
	require.Equal(t, layout(), layout())
}

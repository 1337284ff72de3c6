package trace

import (
	"fmt"
	"math/rand"
)

// Random generates a reproducible trace of ops operations with request sizes
// in [1, maxSize]. Frees, reallocs and partial frees only target live IDs, and
// every 64th operation is a validation.
func Random(seed int64, ops, maxSize int) *Trace {
	rng := rand.New(rand.NewSource(seed))
	t := &Trace{
		Name: fmt.Sprintf("random seed=%d ops=%d max-size=%d", seed, ops, maxSize),
		Ops:  make([]Op, 0, ops),
	}
	maxSize = max(maxSize, 1)

	var live []int
	nextID := 0
	for i := range ops {
		if i%64 == 63 {
			t.Append(Op{Kind: OpValidate})
			continue
		}

		roll := rng.Intn(100)
		if len(live) == 0 {
			roll = 10 // nothing to free yet
		}
		size := 1 + rng.Intn(maxSize)

		switch {
		case roll < 35:
			kind := OpAlloc
			if roll < 5 {
				kind = OpCalloc
			}
			t.Append(Op{Kind: kind, ID: nextID, Size: size})
			live = append(live, nextID)
			nextID++

		case roll < 70:
			j := rng.Intn(len(live))
			t.Append(Op{Kind: OpFree, ID: live[j]})
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]

		case roll < 90:
			t.Append(Op{Kind: OpRealloc, ID: live[rng.Intn(len(live))], Size: size})

		default:
			t.Append(Op{Kind: OpPartial, ID: live[rng.Intn(len(live))], Size: rng.Intn(maxSize + 32)})
		}
	}
	return t
}

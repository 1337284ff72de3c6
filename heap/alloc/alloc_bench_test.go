package alloc

import (
	"math/rand"
	"testing"
)

func newBenchAllocator(b *testing.B, size int, policy Policy) *Allocator {
	b.Helper()
	a, err := New(&Options{Policy: policy})
	if err != nil {
		b.Fatal(err)
	}
	if err := a.Reset(alignedSegment(size)); err != nil {
		b.Fatal(err)
	}
	return a
}

// Benchmark_MallocFree_Small benchmarks a tight alloc/free cycle.
func Benchmark_MallocFree_Small(b *testing.B) {
	a := newBenchAllocator(b, 1<<20, BestFit)

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		p := a.Malloc(64 + (i%64)*2)
		if p == Null {
			b.Fatal("malloc failed")
		}
		a.Dealloc(p)
	}
}

// Benchmark_Fragmented benchmarks allocation against a fragmented free index.
func Benchmark_Fragmented(b *testing.B) {
	for _, policy := range []Policy{BestFit, FirstFit} {
		b.Run(policy.String(), func(b *testing.B) {
			a := newBenchAllocator(b, 8<<20, policy)
			rng := rand.New(rand.NewSource(1))
			var ptrs []Ptr
			for range 20000 {
				if p := a.Malloc(16 + rng.Intn(256)); p != Null {
					ptrs = append(ptrs, p)
				}
			}
			for i := 0; i < len(ptrs); i += 2 {
				a.Dealloc(ptrs[i])
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := range b.N {
				p := a.Malloc(16 + i%128)
				if p == Null {
					b.Fatal("malloc failed")
				}
				a.Dealloc(p)
			}
		})
	}
}

// Benchmark_Realloc benchmarks in-place growth and shrink.
func Benchmark_Realloc(b *testing.B) {
	a := newBenchAllocator(b, 1<<20, BestFit)
	p := a.Malloc(64)

	b.ResetTimer()

	for i := range b.N {
		p = a.Realloc(p, 64+(i%32)*64)
		if p == Null {
			b.Fatal("realloc failed")
		}
	}
}

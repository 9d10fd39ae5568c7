// Package bench provides reproducible micro-benchmarks for pkg/index. Run
// via:
//
//	go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks use a single key/value shape so results are comparable
// across versions:
//
//   - Key   – 8 bytes, derived from a uint64 (cheap to hash, fits a register)
//   - Value – 64-byte struct (large enough to matter, small enough to stay
//     in a cache line or two)
//
// Measured:
//  1. Set          – write-only workload
//  2. Get          – read-only workload (after warm-up)
//  3. GetParallel  – concurrent reads across GOMAXPROCS workers
//  4. SetParallel  – concurrent writes, forcing upsizes under contention
//
// Unit tests live in internal/htable and pkg/index; this file is only for
// performance.
//
// Adapted from the teacher's bench/bench_test.go: same harness shape
// (global dataset, b.ReportAllocs/ResetTimer, b.RunParallel with a
// per-goroutine cursor), rebuilt against pkg/index.Index instead of the
// Cache[K,V]+loader API.
package bench

import (
	"encoding/binary"
	"math/rand"
	"runtime"
	"testing"

	"github.com/Voskan/mpmc-index/pkg/index"
)

type value64 struct {
	_ [64]byte
}

const keys = 1 << 16 // dataset size; kept modest so CI benchmarks finish quickly

func newBenchIndex(b *testing.B) *index.Index[value64] {
	b.Helper()
	idx, err := index.New[value64](1024, 1<<22)
	if err != nil {
		b.Fatalf("index init: %v", err)
	}
	b.Cleanup(idx.Close)
	return idx
}

// dataset reused across benchmarks to avoid reallocating large slices.
var dataset = func() [][]byte {
	rng := rand.New(rand.NewSource(42))
	arr := make([][]byte, keys)
	for i := range arr {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, rng.Uint64())
		arr[i] = buf
	}
	return arr
}()

func BenchmarkSet(b *testing.B) {
	idx := newBenchIndex(b)
	w := idx.Register()
	defer idx.Unregister(w)

	val := value64{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := dataset[i&(keys-1)]
		_, _ = idx.Set(w, key, val)
	}
}

func BenchmarkGet(b *testing.B) {
	idx := newBenchIndex(b)
	w := idx.Register()
	defer idx.Unregister(w)

	val := value64{}
	for _, k := range dataset {
		_, _ = idx.Set(w, k, val)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := dataset[i&(keys-1)]
		_, _ = idx.Get(w, key)
	}
}

func BenchmarkGetParallel(b *testing.B) {
	idx := newBenchIndex(b)
	seed := idx.Register()
	val := value64{}
	for _, k := range dataset {
		_, _ = idx.Set(seed, k, val)
	}
	idx.Unregister(seed)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		w := idx.Register()
		defer idx.Unregister(w)
		cursor := rand.Intn(keys)
		for pb.Next() {
			cursor = (cursor + 1) & (keys - 1)
			_, _ = idx.Get(w, dataset[cursor])
		}
	})
}

func BenchmarkSetParallel(b *testing.B) {
	idx := newBenchIndex(b)
	val := value64{}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		w := idx.Register()
		defer idx.Unregister(w)
		cursor := rand.Intn(keys)
		for pb.Next() {
			cursor = (cursor + 1) & (keys - 1)
			_, _ = idx.Set(w, dataset[cursor], val)
		}
	})
}

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())
}

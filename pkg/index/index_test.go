package index

import (
	"runtime"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/mpmc-index/internal/epoch"
	"github.com/Voskan/mpmc-index/internal/htable"
)

func newTestIndex[V any](t *testing.T, bucketsInitial, bucketsMax uint64, opts ...Option) *Index[V] {
	t.Helper()
	small := htable.Tunables{
		LinearSearchRange: 8,
		UpsizeBlockSize:   4,
		Epoch: epoch.Tunables{
			OperationQueueRingSize: 64,
			StagedObjectsRingSize:  64,
			DestructorBatchSize:    16,
		},
	}

	allOpts := append([]Option{WithTunables(small), WithBackgroundCollectorInterval(0)}, opts...)
	idx, err := New[V](bucketsInitial, bucketsMax, allOpts...)
	require.NoError(t, err)
	t.Cleanup(idx.Close)
	return idx
}

func TestSetThenGetRoundTrip(t *testing.T) {
	idx := newTestIndex[string](t, 16, 32)
	w := idx.Register()
	defer idx.Unregister(w)

	created, err := idx.Set(w, []byte("foo"), "bar")
	require.NoError(t, err)
	require.True(t, created)

	value, ok := idx.Get(w, []byte("foo"))
	require.True(t, ok)
	require.Equal(t, "bar", value)
}

func TestSetUpdateReplacesValue(t *testing.T) {
	idx := newTestIndex[int](t, 16, 32)
	w := idx.Register()
	defer idx.Unregister(w)

	created, err := idx.Set(w, []byte("k"), 1)
	require.NoError(t, err)
	require.True(t, created)

	created, err = idx.Set(w, []byte("k"), 2)
	require.NoError(t, err)
	require.False(t, created)

	value, ok := idx.Get(w, []byte("k"))
	require.True(t, ok)
	require.Equal(t, 2, value)
}

func TestDeleteThenGetMisses(t *testing.T) {
	idx := newTestIndex[int](t, 16, 32)
	w := idx.Register()
	defer idx.Unregister(w)

	_, err := idx.Set(w, []byte("k"), 42)
	require.NoError(t, err)

	require.True(t, idx.Delete(w, []byte("k")))
	_, ok := idx.Get(w, []byte("k"))
	require.False(t, ok)

	require.False(t, idx.Delete(w, []byte("k")), "deleting an absent key reports false")
}

func TestMissingKeyGet(t *testing.T) {
	idx := newTestIndex[int](t, 16, 32)
	w := idx.Register()
	defer idx.Unregister(w)

	_, ok := idx.Get(w, []byte("nope"))
	require.False(t, ok)
}

func TestClosedIndexRejectsOperations(t *testing.T) {
	idx := newTestIndex[int](t, 16, 32)
	w := idx.Register()
	idx.Close()

	_, err := idx.Set(w, []byte("k"), 1)
	require.ErrorIs(t, err, ErrClosed)

	_, ok := idx.Get(w, []byte("k"))
	require.False(t, ok)

	require.False(t, idx.Delete(w, []byte("k")))
}

func TestNewRejectsInvalidBucketCounts(t *testing.T) {
	_, err := New[int](0, 32)
	require.ErrorIs(t, err, ErrInvalidBucketCount)

	_, err = New[int](16, 0)
	require.ErrorIs(t, err, ErrInvalidBucketCountMax)

	_, err = New[int](32, 16)
	require.ErrorIs(t, err, ErrBucketCountMaxTooSmall)
}

// TestBoxedValuesSurviveUpsize forces several cooperative upsizes while
// repeatedly collecting garbage, checking that every value stays readable
// and correct afterward — the scenario the OnValueInstalled/OnValueRetired
// anchor table exists to protect (see DESIGN.md).
func TestBoxedValuesSurviveUpsize(t *testing.T) {
	type payload struct {
		id  int
		tag string
	}
	idx := newTestIndex[payload](t, 16, 512)
	w := idx.Register()
	defer idx.Unregister(w)

	const n = 200
	for i := 0; i < n; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		_, err := idx.Set(w, key, payload{id: i, tag: "v"})
		require.NoError(t, err)
		runtime.GC()
	}

	for i := 0; i < n; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		value, ok := idx.Get(w, key)
		require.True(t, ok, "key %d must survive repeated upsizes", i)
		want := payload{id: i, tag: "v"}
		if diff := cmp.Diff(want, value, cmp.AllowUnexported(payload{})); diff != "" {
			t.Fatalf("key %d payload mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestWorkerPoolRegistersAndClosesAll(t *testing.T) {
	idx := newTestIndex[int](t, 16, 32)
	pool := NewWorkerPool(idx)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(v int) {
			defer wg.Done()
			w := pool.Get()
			_, err := idx.Set(w, []byte{byte(v)}, v)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()
	pool.Close()

	w := idx.Register()
	defer idx.Unregister(w)
	for i := 0; i < workers; i++ {
		value, ok := idx.Get(w, []byte{byte(i)})
		require.True(t, ok)
		require.Equal(t, i, value)
	}
}

func TestMetricsRecordHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	idx := newTestIndex[int](t, 16, 32, WithMetrics(reg))
	w := idx.Register()
	defer idx.Unregister(w)

	_, err := idx.Set(w, []byte("k"), 1)
	require.NoError(t, err)

	_, ok := idx.Get(w, []byte("k"))
	require.True(t, ok)
	_, ok = idx.Get(w, []byte("missing"))
	require.False(t, ok)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	counters := map[string]float64{}
	for _, f := range families {
		if ms := f.GetMetric(); len(ms) == 1 && ms[0].GetCounter() != nil {
			counters[f.GetName()] = ms[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, 1.0, counters["mpmc_index_hits_total"])
	require.Equal(t, 1.0, counters["mpmc_index_misses_total"])
}

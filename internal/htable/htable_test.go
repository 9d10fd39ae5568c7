package htable

import (
	"sync"
	"testing"

	"github.com/Voskan/mpmc-index/internal/epoch"
	"github.com/stretchr/testify/require"
)

func smallTable(bucketsInitial, bucketsMax uint64, hooks ...Hooks) *Table {
	tun := Tunables{
		LinearSearchRange: 8,
		UpsizeBlockSize:   4,
		Epoch: epoch.Tunables{
			OperationQueueRingSize: 64,
			StagedObjectsRingSize:  64,
			DestructorBatchSize:    16,
		},
	}
	h := Hooks{}
	if len(hooks) > 0 {
		h = hooks[0]
	}
	return New(bucketsInitial, bucketsMax, tun, h)
}

func TestScenario1SetThenGet(t *testing.T) {
	tb := smallTable(16, 32)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	result, createdNew, valueUpdated, _ := tb.Set(w, []byte("foo"), 0x1111)
	require.Equal(t, ResultTrue, result)
	require.True(t, createdNew)
	require.True(t, valueUpdated)

	value, ok := tb.Get(w, []byte("foo"))
	require.True(t, ok)
	require.Equal(t, uintptr(0x1111), value)
}

func TestScenario2UpdateReportsPreviousValue(t *testing.T) {
	tb := smallTable(16, 32)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	tb.Set(w, []byte("foo"), 0x1111)

	result, createdNew, valueUpdated, previous := tb.Set(w, []byte("foo"), 0x2222)
	require.Equal(t, ResultTrue, result)
	require.False(t, createdNew)
	require.True(t, valueUpdated)
	require.Equal(t, uintptr(0x1111), previous)

	value, ok := tb.Get(w, []byte("foo"))
	require.True(t, ok)
	require.Equal(t, uintptr(0x2222), value)
}

func TestScenario3DeleteThenGetIsCaseSensitive(t *testing.T) {
	tb := smallTable(16, 32)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	tb.Set(w, []byte("foo"), 0x1111)

	require.Equal(t, ResultTrue, tb.Delete(w, []byte("foo")))

	_, ok := tb.Get(w, []byte("foo"))
	require.False(t, ok)
	_, ok = tb.Get(w, []byte("FOO"))
	require.False(t, ok)
}

func TestScenario4UpsizeTriggersAndCompletes(t *testing.T) {
	var tablesReclaimed int
	hooks := Hooks{
		OnReclaim: func(kind string, count int) {
			if kind == "table" {
				tablesReclaimed += count
			}
		},
	}
	tb := smallTable(16, 256, hooks)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	initialBuckets := tb.BucketsCount()

	for i := 0; i < 20; i++ {
		key := []byte{byte('a' + i)}
		result, createdNew, _, _ := tb.Set(w, key, uintptr(i+1))
		require.Equal(t, ResultTrue, result, "set %d should succeed", i)
		require.True(t, createdNew)
	}

	require.GreaterOrEqual(t, tb.BucketsCount(), initialBuckets*2)

	// spec.md §8.2 scenario #4 requires observing the full
	// Upsizing->NotUpsizing cycle, not just the bucket-count growth: the
	// status must settle back to "not upsizing" once every block has been
	// migrated, and the old table must have been staged for reclamation
	// rather than leaked.
	require.False(t, tb.UpsizeStatus(), "upsize must complete and return to NotUpsizing")

	reclaimed := w.tableHandle.CollectAll()
	require.Greater(t, reclaimed, 0, "the old, pre-upsize table must be staged and collectible")
	require.Equal(t, reclaimed, tablesReclaimed, "OnReclaim(\"table\", ...) must report the staged old table")

	for i := 0; i < 20; i++ {
		key := []byte{byte('a' + i)}
		value, ok := tb.Get(w, key)
		require.True(t, ok, "key %d must survive the upsize", i)
		require.Equal(t, uintptr(i+1), value)
	}

	// The fixed-and-staged old table must not have disabled future growth:
	// a later fill must be able to trigger another upsize cycle.
	for i := 20; i < 60; i++ {
		key := []byte{byte(i)}
		result, _, _, _ := tb.Set(w, key, uintptr(i+1))
		require.Equal(t, ResultTrue, result, "set %d should succeed after the first upsize completed", i)
	}
	require.False(t, tb.UpsizeStatus(), "a second upsize cycle must also complete")
}

func TestScenario5ConcurrentDistinctKeyInserts(t *testing.T) {
	tb := smallTable(16, 8192)
	defer tb.Close()

	const perWorker = 500
	var wg sync.WaitGroup
	wg.Add(2)

	run := func(prefix byte) {
		defer wg.Done()
		w := tb.Register()
		defer tb.Unregister(w)
		for i := 0; i < perWorker; i++ {
			key := []byte{prefix, byte(i), byte(i >> 8)}
			result, createdNew, _, _ := tb.Set(w, key, uintptr(i)+1)
			if result != ResultTrue || !createdNew {
				panic("unexpected set failure in concurrent insert test")
			}
		}
	}
	go run('A')
	go run('B')
	wg.Wait()

	reader := tb.Register()
	defer tb.Unregister(reader)
	for _, prefix := range []byte{'A', 'B'} {
		for i := 0; i < perWorker; i++ {
			key := []byte{prefix, byte(i), byte(i >> 8)}
			value, ok := tb.Get(reader, key)
			require.True(t, ok)
			require.Equal(t, uintptr(i)+1, value)
		}
	}
}

func TestUniquenessNoDuplicateLiveNodeAfterConcurrentSameKeyInserts(t *testing.T) {
	tb := smallTable(16, 64)
	defer tb.Close()

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(v uintptr) {
			defer wg.Done()
			w := tb.Register()
			defer tb.Unregister(w)
			tb.Set(w, []byte("shared"), v)
		}(uintptr(i + 1))
	}
	wg.Wait()

	reader := tb.Register()
	defer tb.Unregister(reader)
	value, ok := tb.Get(reader, []byte("shared"))
	require.True(t, ok)
	require.GreaterOrEqual(t, value, uintptr(1))
	require.LessOrEqual(t, value, uintptr(workers))
}

func TestNoResurrectionAfterDelete(t *testing.T) {
	tb := smallTable(16, 32)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	tb.Set(w, []byte("k"), 1)
	require.Equal(t, ResultTrue, tb.Delete(w, []byte("k")))

	_, ok := tb.Get(w, []byte("k"))
	require.False(t, ok)

	tb.Set(w, []byte("k"), 2)
	value, ok := tb.Get(w, []byte("k"))
	require.True(t, ok)
	require.Equal(t, uintptr(2), value)
}

func TestProbeWindowCompleteness(t *testing.T) {
	tb := smallTable(16, 32)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	result, createdNew, _, _ := tb.Set(w, []byte("probe-me"), 0xABCD)
	require.Equal(t, ResultTrue, result)
	require.True(t, createdNew)

	hash := tb.hashKey([]byte("probe-me"))
	data := tb.data.Load()
	pr := findBucketAndKeyValue(data, hash, halfHashOf(hash), []byte("probe-me"), false)
	require.True(t, pr.found)

	start := data.bucketIndex(hash)
	require.GreaterOrEqual(t, pr.bucketIdx, start)
	require.Less(t, pr.bucketIdx, start+data.linearSearchRange)
}

func TestEmbeddedAndExternalKeyRoundTrip(t *testing.T) {
	tb := smallTable(16, 32)
	defer tb.Close()
	w := tb.Register()
	defer tb.Unregister(w)

	shortKey := []byte("short")
	longKey := make([]byte, 64)
	for i := range longKey {
		longKey[i] = byte('a' + i%26)
	}

	tb.Set(w, shortKey, 1)
	tb.Set(w, longKey, 2)

	v, ok := tb.Get(w, shortKey)
	require.True(t, ok)
	require.Equal(t, uintptr(1), v)

	v, ok = tb.Get(w, longKey)
	require.True(t, ok)
	require.Equal(t, uintptr(2), v)
}

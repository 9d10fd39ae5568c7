package epoch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func smallTunables() Tunables {
	return Tunables{
		OperationQueueRingSize: 4,
		StagedObjectsRingSize:  4,
		DestructorBatchSize:    2,
	}
}

func TestOperationQueueDrainsOnlyCompleted(t *testing.T) {
	q := NewOperationQueue(smallTunables())

	op1, ok := q.Enqueue(10)
	require.True(t, ok)
	op2, ok := q.Enqueue(20)
	require.True(t, ok)

	// Nothing completed yet: latest epoch stays at its zero value.
	require.Equal(t, uint64(0), q.GetLatestEpoch())

	MarkCompleted(op1)
	require.Equal(t, uint64(10), q.GetLatestEpoch(), "draining stops at the still-open op2")

	MarkCompleted(op2)
	require.Equal(t, uint64(20), q.GetLatestEpoch())
}

func TestStageAndCollectReclaimsPastHorizon(t *testing.T) {
	var reclaimedValues []int
	var mu sync.Mutex
	destructor := func(batch []Staged[int]) {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range batch {
			reclaimedValues = append(reclaimedValues, *s.Object)
		}
	}

	gc := NewGC(destructor, smallTunables())
	h := gc.ThreadInit()
	h.RegisterGlobal()
	defer func() {
		h.Terminate()
		h.UnregisterGlobal()
		h.Free()
	}()

	h.SetEpoch(1)
	v1, v2 := 1, 2
	require.True(t, h.Stage(&v1))
	h.SetEpoch(2)
	require.True(t, h.Stage(&v2))

	// No other thread registered: horizon is the minimum across the one
	// handle we have, i.e. its own current epoch (2) — so objects staged
	// strictly before 2 are reclaimable, the one staged at 2 is not yet.
	n := h.CollectAll()
	require.Equal(t, 1, n)
	require.Equal(t, []int{1}, reclaimedValues)

	h.SetEpoch(3)
	n = h.CollectAll()
	require.Equal(t, 1, n)
	require.ElementsMatch(t, []int{1, 2}, reclaimedValues)
}

func TestCollectBlockedByOtherRegisteredThread(t *testing.T) {
	destructor := func(batch []Staged[int]) {}
	gc := NewGC(destructor, smallTunables())

	staging := gc.ThreadInit()
	staging.RegisterGlobal()
	blocker := gc.ThreadInit()
	blocker.RegisterGlobal()

	staging.SetEpoch(5)
	v := 42
	require.True(t, staging.Stage(&v))

	// blocker never advances past epoch 0: horizon stays at 0, nothing can
	// be reclaimed regardless of staging's own epoch.
	n := staging.CollectAll()
	require.Equal(t, 0, n)

	// Both handles now publish epochs past the staged object's epoch (5),
	// so the horizon (the minimum, 10) clears it.
	blocker.SetEpoch(10)
	staging.SetEpoch(10)
	n = staging.CollectAll()
	require.Equal(t, 1, n)
}

func TestStageAppendsNewRingWhenFull(t *testing.T) {
	destructor := func(batch []Staged[int]) {}
	gc := NewGC(destructor, Tunables{StagedObjectsRingSize: 2, DestructorBatchSize: 8, OperationQueueRingSize: 2})
	h := gc.ThreadInit()
	h.RegisterGlobal()

	vals := make([]int, 10)
	for i := range vals {
		vals[i] = i
		require.True(t, h.Stage(&vals[i]))
	}
	require.Greater(t, len(h.ringList), 1, "staging past one ring's capacity must append a new ring")
}

func TestUnregisteredHandleDoesNotBlockHorizon(t *testing.T) {
	destructor := func(batch []Staged[int]) {}
	gc := NewGC(destructor, smallTunables())

	staging := gc.ThreadInit()
	staging.RegisterGlobal()
	other := gc.ThreadInit()
	other.RegisterGlobal()

	staging.SetEpoch(5)
	v := 1
	staging.Stage(&v)
	// staging itself moves past the epoch the object was staged at, so only
	// other's epoch (0) could still hold the horizon back.
	staging.SetEpoch(6)

	other.Terminate()
	other.UnregisterGlobal()
	other.Free()

	n := staging.CollectAll()
	require.Equal(t, 1, n, "an unregistered handle must no longer constrain the horizon")
}

func TestBackgroundCollectorReclaims(t *testing.T) {
	done := make(chan int, 16)
	destructor := func(batch []Staged[int]) {
		for range batch {
			done <- 1
		}
	}
	gc := NewGC(destructor, smallTunables())
	h := gc.ThreadInit()
	h.RegisterGlobal()

	gc.StartCollector(context.Background(), 5*time.Millisecond)
	defer func() { require.NoError(t, gc.StopCollector()) }()

	v := 7
	h.SetEpoch(1)
	h.Stage(&v)
	h.SetEpoch(2)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background collector never reclaimed the staged object")
	}
}

package epoch

import (
	"sync"
	"sync/atomic"

	"github.com/Voskan/mpmc-index/internal/ring"
)

// ThreadHandle is one GC thread handle (spec.md §3.1): a worker's published
// epoch, its list of staged-objects rings (most recent at the tail), and the
// bookkeeping needed to register/unregister it with its GC.
type ThreadHandle[T any] struct {
	gc *GC[T]

	epoch      atomic.Uint64
	terminated atomic.Bool

	// mu guards ringList; stands in for the spec's per-handle "spinlock"
	// (DESIGN.md, Open Questions, item 3). Held only across O(list length)
	// work: appending a ring on staging overflow, or unlinking drained rings
	// during collection.
	mu       sync.Mutex
	ringList []*ring.Ring[Staged[T]]

	registered atomic.Bool
}

// RegisterGlobal links the handle into its GC's thread list, making its
// published epoch visible to horizon computation.
func (h *ThreadHandle[T]) RegisterGlobal() {
	h.gc.registerGlobal(h)
	h.registered.Store(true)
}

// UnregisterGlobal removes the handle from its GC's thread list. After this
// call the handle's epoch no longer constrains the reclamation horizon.
func (h *ThreadHandle[T]) UnregisterGlobal() {
	h.gc.unregisterGlobal(h)
	h.registered.Store(false)
}

// SetEpoch publishes epoch as this thread's current logical epoch. Per
// spec.md invariant 4, callers must never publish a value smaller than the
// last one published while registered.
func (h *ThreadHandle[T]) SetEpoch(epoch uint64) {
	h.epoch.Store(epoch)
}

// AdvanceEpochByOne is a convenience wrapper for the common "I have no TSC,
// just bump a logical counter" case.
func (h *ThreadHandle[T]) AdvanceEpochByOne() {
	h.epoch.Add(1)
}

// Epoch returns the thread's last published epoch.
func (h *ThreadHandle[T]) Epoch() uint64 { return h.epoch.Load() }

// Terminate marks the handle as belonging to a thread that is shutting down.
// Terminated handles remain visible to horizon computation (spec.md §4.B:
// "Terminated threads' handles still count until the collector drops them")
// until UnregisterGlobal is called.
func (h *ThreadHandle[T]) Terminate() {
	h.terminated.Store(true)
}

// Terminated reports whether Terminate has been called.
func (h *ThreadHandle[T]) Terminated() bool { return h.terminated.Load() }

// Free releases the handle. Per spec.md §3.3 ("destroyed only after
// epoch_gc_thread_terminate has been observed and the handle's rings are
// drained"), it asserts every ring is empty first.
func (h *ThreadHandle[T]) Free() {
	if !h.terminated.Load() {
		panic("epoch: ThreadHandle.Free called before Terminate")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.ringList {
		if !r.IsEmpty() {
			panic("epoch: ThreadHandle.Free called with a non-empty staged-object ring")
		}
	}
	h.ringList = nil
}

// Stage enqueues object, retired at this handle's currently published
// epoch, onto the handle's last (tail) ring. If that ring is full, a new
// ring of the same capacity is appended under the handle's lock and staging
// retries there — staging never blocks indefinitely (spec.md §4.B).
func (h *ThreadHandle[T]) Stage(object *T) bool {
	staged := Staged[T]{Epoch: h.epoch.Load(), Object: object}

	h.mu.Lock()
	tail := h.ringList[len(h.ringList)-1]
	h.mu.Unlock()

	if tail.Enqueue(staged) {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Re-read the tail: another call may have already appended a fresh ring
	// between our unlocked attempt above and acquiring the lock here.
	tail = h.ringList[len(h.ringList)-1]
	if tail.Enqueue(staged) {
		return true
	}
	fresh := ring.New[Staged[T]](h.gc.tunables.StagedObjectsRingSize)
	ok := fresh.Enqueue(staged)
	h.ringList = append(h.ringList, fresh)
	return ok
}

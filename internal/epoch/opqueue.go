package epoch

import (
	"sync/atomic"

	"github.com/Voskan/mpmc-index/internal/ring"
)

// Operation is the per-call bookkeeping record described by spec.md §3.1
// ("Epoch operation"): a single logical word tracking whether the call that
// opened it has returned yet, and at what epoch it was opened. completed is
// an atomic.Bool (rather than a plain bool) because, per spec.md §6, the
// host may poll GetLatestEpoch from a periodic publisher goroutine distinct
// from the worker goroutine that owns the queue; completed is the one field
// actually read across that boundary, so it alone needs atomic semantics.
type Operation struct {
	completed  atomic.Bool
	startEpoch uint64
}

// StartEpoch returns the epoch that was current when this operation opened.
func (o *Operation) StartEpoch() uint64 { return o.startEpoch }

// MarkCompleted flips the operation's completed bit. Called by the worker
// goroutine that opened the operation, just before its Index call returns
// (spec.md §3.3: "marked completed by the producing thread just before
// return").
func MarkCompleted(op *Operation) {
	op.completed.Store(true)
}

// OperationQueue is the per-thread, per-object-kind queue described in
// spec.md §4.B.1: a thin wrapper around one SPSC ring of Operation records
// plus a cached latestEpoch, used by a worker to publish the start epoch of
// its oldest still-open call.
type OperationQueue struct {
	ring        *ring.Ring[Operation]
	latestEpoch atomic.Uint64
}

// NewOperationQueue allocates a queue sized per tunables.OperationQueueRingSize.
func NewOperationQueue(tunables Tunables) *OperationQueue {
	return &OperationQueue{
		ring: ring.New[Operation](tunables.OperationQueueRingSize),
	}
}

// Enqueue opens a new operation at startEpoch and returns a pointer to its
// slot so the caller can later call MarkCompleted on the same record without
// a second enqueue. Returns ok=false if the queue is saturated with
// still-open operations (the caller should treat this the same as any other
// resource-exhaustion backpressure signal — it indicates the worker is
// opening calls faster than it completes them).
func (q *OperationQueue) Enqueue(startEpoch uint64) (op *Operation, ok bool) {
	return q.ring.EnqueueRef(Operation{startEpoch: startEpoch})
}

// GetLatestEpoch drains every completed entry from the head of the ring,
// caching the start epoch of the last one drained, and returns that cached
// value — the oldest in-flight operation's start epoch for this queue. This
// is exactly what the host must publish into its epoch GC thread handle
// before a reclamation pass: any object staged after this epoch might still
// be visible to a call this queue is currently tracking.
func (q *OperationQueue) GetLatestEpoch() uint64 {
	for {
		op, found := q.ring.PeekRef()
		if !found || !op.completed.Load() {
			break
		}
		q.ring.Dequeue()
		q.latestEpoch.Store(op.startEpoch)
	}
	return q.latestEpoch.Load()
}

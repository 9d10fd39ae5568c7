// Package epoch implements the epoch-based reclamation subsystem described
// in spec.md §4.B: one GC instance per object kind (htable's node and table
// types), each participating worker owning one ThreadHandle per kind, with
// per-thread staged-object rings drained once no registered thread can still
// observe the staged pointer.
//
// Grounded on original_source/src/epoch_gc.c and epoch_operation_queue.c
// (cachegrand's C implementation this spec was distilled from); the
// GC/ThreadHandle split and the fast/slow collection paths mirror that file
// almost function-for-function. Where the reference uses a spinlock, this
// package uses sync.Mutex — see DESIGN.md, Open Questions, item 3.
package epoch

import (
	"math"
	"sync"

	"github.com/Voskan/mpmc-index/internal/ring"
)

// Staged is the 128-bit "staged object" word of spec.md §3.1: the epoch the
// staging thread had published when it retired the object, plus the object
// pointer itself.
type Staged[T any] struct {
	Epoch  uint64
	Object *T
}

// DestructorFunc releases a batch of retired objects. Registered once per
// object kind at process start (spec.md §6:
// epoch_gc_register_object_type_destructor_cb).
type DestructorFunc[T any] func(batch []Staged[T])

// GC is one EpochGc instance, scoped to a single object kind.
type GC[T any] struct {
	tunables   Tunables
	destructor DestructorFunc[T]

	mu              sync.Mutex // stands in for the spec's "GC spinlock"
	threads         []*ThreadHandle[T]
	listChangeEpoch uint64 // monotonic stamp, bumped on every registration/unregistration

	collector *collectorLoop
}

// NewGC constructs an EpochGc for one object kind. destructor must not be
// nil: every staged object must eventually be released.
func NewGC[T any](destructor DestructorFunc[T], tunables Tunables) *GC[T] {
	if destructor == nil {
		panic("epoch: NewGC requires a non-nil destructor")
	}
	return &GC[T]{tunables: tunables, destructor: destructor}
}

// ThreadInit allocates a handle with one empty staged-objects ring and a
// published epoch of zero (spec.md §4.B "Registration").
func (g *GC[T]) ThreadInit() *ThreadHandle[T] {
	return &ThreadHandle[T]{
		gc:       g,
		ringList: []*ring.Ring[Staged[T]]{ring.New[Staged[T]](g.tunables.StagedObjectsRingSize)},
	}
}

// registerGlobal links handle into the GC's thread list under the GC's
// lock, stamping listChangeEpoch so collectors can notice list-composition
// changes (spec.md: "thread_register_global").
func (g *GC[T]) registerGlobal(h *ThreadHandle[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threads = append(g.threads, h)
	g.listChangeEpoch++
}

func (g *GC[T]) unregisterGlobal(h *ThreadHandle[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, t := range g.threads {
		if t == h {
			g.threads = append(g.threads[:i], g.threads[i+1:]...)
			break
		}
	}
	g.listChangeEpoch++
}

// horizon computes the reclamation horizon: the minimum published epoch
// across every handle currently linked in the GC's thread list (spec.md
// invariant 4/5). Terminated-but-not-yet-unregistered handles still count.
func (g *GC[T]) horizon() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.threads) == 0 {
		return math.MaxUint64
	}
	min := uint64(math.MaxUint64)
	for _, h := range g.threads {
		if e := h.epoch.Load(); e < min {
			min = e
		}
	}
	return min
}

// snapshotThreads returns a shallow copy of the currently registered handles,
// used by the background collector loop so it never holds g.mu while
// running (potentially slow) destructor callbacks.
func (g *GC[T]) snapshotThreads() []*ThreadHandle[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*ThreadHandle[T], len(g.threads))
	copy(out, g.threads)
	return out
}

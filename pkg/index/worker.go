package index

import (
	"sync"

	"github.com/Voskan/mpmc-index/internal/htable"
)

// Worker is a thread-context handle (spec.md Design Notes §9): each
// goroutine that calls Set/Get/Delete must own one, obtained from
// Index.Register and returned via Index.Unregister (or held for the
// goroutine's lifetime and released once, whichever the caller prefers).
// Workers are not safe for concurrent use by more than one goroutine at a
// time — exactly like the underlying htable.Worker they wrap.
type Worker struct {
	inner *htable.Worker
}

// Register allocates a new Worker bound to idx. Pair every Register with
// exactly one Unregister; forgetting to do so leaves the epoch GC unable
// to advance its reclamation horizon past this goroutine's last published
// epoch (spec.md invariant 5).
func (idx *Index[V]) Register() *Worker {
	return &Worker{inner: idx.table.Register()}
}

// Unregister retires w. Any goroutine still holding w must not use it
// afterward.
func (idx *Index[V]) Unregister(w *Worker) {
	idx.table.Unregister(w.inner)
}

// WorkerPool hands out Workers on demand and records every one it hands
// out (in a mutex-guarded slice) so Close can release them all together.
// It does not bind Workers to goroutines: every Get registers a new
// Worker, so a goroutine that calls Get twice holds two Workers.
//
// WorkerPool does not attempt to detect goroutine exit; callers that spin
// up and tear down many short-lived goroutines should call Register and
// Unregister directly instead of going through a pool.
type WorkerPool struct {
	idx interface {
		registerRaw() *htable.Worker
		unregisterRaw(*htable.Worker)
	}
	mu      sync.Mutex
	handles []*htable.Worker
}

// NewWorkerPool constructs a pool backed by idx. Get returns a fresh Worker
// every call; Close tears down every Worker ever handed out.
func NewWorkerPool[V any](idx *Index[V]) *WorkerPool {
	return &WorkerPool{idx: idx}
}

// Get hands back a new Worker, tracked so Close can release it.
func (p *WorkerPool) Get() *Worker {
	h := p.idx.registerRaw()
	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()
	return &Worker{inner: h}
}

// Close unregisters every Worker this pool has ever handed out.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()
	for _, h := range handles {
		p.idx.unregisterRaw(h)
	}
}

func (idx *Index[V]) registerRaw() *htable.Worker { return idx.table.Register() }
func (idx *Index[V]) unregisterRaw(h *htable.Worker) { idx.table.Unregister(h) }

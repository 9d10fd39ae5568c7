package epoch

import "github.com/Voskan/mpmc-index/internal/ring"

// Collect implements spec.md §4.B "Collection": compute the reclamation
// horizon, then reclaim staged objects whose epoch predates it, up to
// maxObjects, invoking the destructor in batches of at most
// tunables.DestructorBatchSize. Returns the number of objects reclaimed.
func (h *ThreadHandle[T]) Collect(maxObjects int) int {
	if maxObjects <= 0 {
		maxObjects = int(h.gc.tunables.DestructorBatchSize)
	}
	horizon := h.gc.horizon()

	batchCap := int(h.gc.tunables.DestructorBatchSize)
	if batchCap <= 0 {
		batchCap = 1
	}
	batch := make([]Staged[T], 0, batchCap)
	reclaimed := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		h.gc.destructor(batch)
		reclaimed += len(batch)
		batch = batch[:0]
	}

	h.mu.Lock()
	single := len(h.ringList) == 1
	h.mu.Unlock()

	if single {
		h.mu.Lock()
		r := h.ringList[0]
		h.mu.Unlock()

		for reclaimed+len(batch) < maxObjects {
			v, found := r.Peek()
			if !found || v.Epoch >= horizon {
				break
			}
			r.Dequeue()
			batch = append(batch, v)
			if len(batch) == batchCap {
				flush()
			}
		}
		flush()
		return reclaimed
	}

	h.mu.Lock()
	rings := make([]*ring.Ring[Staged[T]], len(h.ringList))
	copy(rings, h.ringList)
	h.mu.Unlock()

	drained := make(map[*ring.Ring[Staged[T]]]bool)
	for i, r := range rings {
		isTail := i == len(rings)-1
	inner:
		for reclaimed+len(batch) < maxObjects {
			v, found := r.Peek()
			if !found || v.Epoch >= horizon {
				break inner
			}
			r.Dequeue()
			batch = append(batch, v)
			if len(batch) == batchCap {
				flush()
			}
		}
		if !isTail && r.IsEmpty() {
			drained[r] = true
		}
	}
	flush()

	if len(drained) > 0 {
		h.mu.Lock()
		tail := h.ringList[len(h.ringList)-1]
		kept := h.ringList[:0]
		for _, r := range h.ringList {
			if r != tail && drained[r] && r.IsEmpty() {
				continue
			}
			kept = append(kept, r)
		}
		h.ringList = kept
		h.mu.Unlock()
	}

	return reclaimed
}

// CollectAll repeatedly calls Collect until a pass reclaims nothing,
// draining every object currently eligible for reclamation.
func (h *ThreadHandle[T]) CollectAll() int {
	total := 0
	for {
		n := h.Collect(int(h.gc.tunables.DestructorBatchSize))
		total += n
		if n == 0 {
			return total
		}
	}
}

// Package ring implements the fixed-capacity single-producer/single-consumer
// queue shared by the epoch GC's operation queues and staged-object lists.
//
// A Ring owns exactly one producer and one consumer; calling Enqueue from two
// goroutines concurrently, or Dequeue from two goroutines concurrently, is a
// misuse of the type and not guarded against (the same contract the teacher's
// internal/genring.Ring holds for generation rotation: "all exported methods
// assume external synchronisation except where atomic is explicitly used").
//
// © 2025 mpmc-index authors. MIT License.
package ring

import (
	"sync/atomic"

	"github.com/Voskan/mpmc-index/internal/unsafehelpers"
)

// Ring is a bounded SPSC queue of capacity-many T values, capacity always a
// power of two so that head/tail wrap with a mask instead of a modulo.
type Ring[T any] struct {
	mask uint64
	slot []T

	// head is advanced only by the consumer, tail only by the producer. Both
	// counters are monotonically increasing and never wrap: the physical slot
	// is counter&mask.
	head atomic.Uint64
	tail atomic.Uint64
}

// New rounds requestedCapacity up to the next power of two and allocates a
// ring able to hold that many elements.
func New[T any](requestedCapacity uint32) *Ring[T] {
	cap := nextPowerOfTwo(requestedCapacity)
	if !unsafehelpers.IsPowerOfTwo(uintptr(cap)) {
		panic("ring: capacity rounding produced a non-power-of-two value")
	}
	return &Ring[T]{
		mask: uint64(cap - 1),
		slot: make([]T, cap),
	}
}

func nextPowerOfTwo(n uint32) uint32 {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

// Capacity returns the (power-of-two) number of slots in the ring.
func (r *Ring[T]) Capacity() int { return len(r.slot) }

// Len returns the number of elements currently queued.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// IsEmpty reports whether the ring currently holds no elements.
func (r *Ring[T]) IsEmpty() bool { return r.Len() == 0 }

// IsFull reports whether the ring cannot accept another Enqueue.
func (r *Ring[T]) IsFull() bool { return r.Len() >= len(r.slot) }

// Peek returns the element at the head of the ring without dequeuing it.
// Safe to call from the consumer goroutine only.
func (r *Ring[T]) Peek() (value T, found bool) {
	tail := r.tail.Load() // acquire: synchronises-with the producer's tail store
	head := r.head.Load()
	if tail == head {
		return value, false
	}
	return r.slot[head&r.mask], true
}

// PeekRef is like Peek but returns a pointer into the ring's backing array
// instead of a copy. The pointer stays valid until the slot is reused, which
// cannot happen before the consumer itself calls Dequeue. Used where the
// element type carries its own atomic fields (see epoch.Operation) and a
// value copy would race with a concurrent writer.
func (r *Ring[T]) PeekRef() (value *T, found bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		return nil, false
	}
	return &r.slot[head&r.mask], true
}

// EnqueueRef is like Enqueue but returns a pointer into the ring's backing
// array for the slot just written. The backing array is allocated once at
// construction and never reallocated, so the pointer remains valid for the
// lifetime of the Ring. Used by the epoch operation queue, whose caller must
// be able to flip a single slot's "completed" bit after Enqueue returns
// without performing a second enqueue.
func (r *Ring[T]) EnqueueRef(value T) (ref *T, ok bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail-head >= uint64(len(r.slot)) {
		return nil, false
	}
	idx := tail & r.mask
	r.slot[idx] = value
	r.tail.Store(tail + 1)
	return &r.slot[idx], true
}

// Enqueue appends value to the tail of the ring. It fails (returns false)
// when the ring is full; the caller (per the epoch GC's staging contract)
// is expected to open a new ring rather than block.
func (r *Ring[T]) Enqueue(value T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail-head >= uint64(len(r.slot)) {
		return false
	}
	r.slot[tail&r.mask] = value
	r.tail.Store(tail + 1) // release: publishes slot[tail] to the consumer
	return true
}

// Dequeue removes and returns the element at the head of the ring. Must only
// be called by the single consumer goroutine.
func (r *Ring[T]) Dequeue() (value T, found bool) {
	tail := r.tail.Load() // acquire
	head := r.head.Load()
	if tail == head {
		return value, false
	}
	value = r.slot[head&r.mask]
	var zero T
	r.slot[head&r.mask] = zero // drop the reference so T=*X doesn't pin memory
	r.head.Store(head + 1) // release: frees the slot for the producer to reuse
	return value, true
}

// Package index is the public, host-facing API over internal/htable: a
// generic, GC-safe value store layered on the raw uintptr-valued MPMC hash
// index. Grounded on the teacher's pkg/cache.go (the top-level Cache[K,V]
// wrapper around shard[K,V]) and pkg/config.go/metrics.go for the ambient
// stack (functional options, structured logging, Prometheus metrics).
//
// htable.Table stores values as opaque uintptr words and never interprets
// them (spec.md: "ownership of value is opaque and not interpreted"). For
// a Go value V that must survive as long as Go's garbage collector can
// see it, Index boxes every V on the heap and stores the box's address as
// that uintptr, then anchors the box in a side table keyed by that same
// address so the GC always has a real *V reference to follow — a uintptr
// field alone never keeps its pointee reachable. htable.Hooks.
// OnValueInstalled/OnValueRetired give Index the exact install/retire
// pairing it needs to keep that anchor table correct: every value that
// becomes reachable from a live bucket fires exactly one Install, and
// every value that stops being reachable (tombstoned, replaced by a
// racing update, or superseded during a cooperative upsize) fires exactly
// one Retired — see DESIGN.md for the full argument.
package index

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Voskan/mpmc-index/internal/htable"
)

// Index is a concurrent, epoch-reclaimed map from []byte keys to values of
// type V, safe for any number of concurrent Set/Get/Delete calls from
// goroutines each holding their own Worker.
type Index[V any] struct {
	table   *htable.Table
	cfg     *config
	metrics metricsSink

	// anchors keeps every currently-installed boxed value reachable from
	// Go's garbage collector, keyed by the same address htable.Table
	// stores as the bucket's opaque uintptr. See the package doc comment.
	anchors sync.Map // uintptr -> *V

	closed atomic.Bool
	cancel context.CancelFunc
}

// New constructs an Index with bucketsInitial starting buckets, refusing
// to grow the underlying table past bucketsMax (both rounded up to the
// next power of two by internal/htable, per spec.md §6).
func New[V any](bucketsInitial, bucketsMax uint64, opts ...Option) (*Index[V], error) {
	if bucketsInitial == 0 {
		return nil, ErrInvalidBucketCount
	}
	if bucketsMax == 0 {
		return nil, ErrInvalidBucketCountMax
	}
	if bucketsMax < bucketsInitial {
		return nil, ErrBucketCountMaxTooSmall
	}

	cfg := defaultConfig()
	applyOptions(cfg, opts)

	idx := &Index[V]{cfg: cfg}
	idx.metrics = newMetricsSink(cfg.registry)

	hooks := htable.Hooks{
		OnUpsizeStart: func(fromBuckets, toBuckets uint64) {
			cfg.logger.Info("upsize started",
				zap.Uint64("from_buckets", fromBuckets),
				zap.Uint64("to_buckets", toBuckets))
			idx.metrics.incUpsize()
		},
		OnUpsizeComplete: func(buckets uint64) {
			cfg.logger.Info("upsize completed", zap.Uint64("buckets", buckets))
			idx.metrics.setBuckets(buckets)
		},
		OnReclaim: func(kind string, count int) {
			idx.metrics.addReclaimed(kind, count)
		},
		OnValueInstalled: func(value uintptr) {
			boxed := (*V)(unsafe.Pointer(value))
			idx.anchors.Store(value, boxed)
		},
		OnValueRetired: func(value uintptr) {
			idx.anchors.Delete(value)
		},
	}

	idx.table = htable.New(bucketsInitial, bucketsMax, cfg.tunables, hooks)

	if cfg.collectorInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		idx.cancel = cancel
		idx.table.StartBackgroundCollector(ctx, cfg.collectorInterval)
	}

	return idx, nil
}

// Set inserts key with value, or replaces the value of an existing live
// key. createdNew reports whether a new key was inserted (false means an
// existing key's value was replaced). Implements spec.md §4.C.6 op_set
// through internal/htable, with a Go-heap box for value so V is retained
// for exactly as long as the key stays live.
func (idx *Index[V]) Set(w *Worker, key []byte, value V) (createdNew bool, err error) {
	if idx.closed.Load() {
		return false, ErrClosed
	}

	// boxed stays reachable via this local for the whole call, so
	// internal/htable is free to construct and discard any number of
	// candidate nodes that reference ptr before the call returns; the Go
	// GC cannot collect boxed out from under those attempts because this
	// stack frame still references it. Once Set returns, idx.anchors (via
	// OnValueInstalled, fired synchronously inside the call below) is the
	// only thing keeping it alive if it won.
	boxed := new(V)
	*boxed = value
	ptr := uintptr(unsafe.Pointer(boxed))

	result, created, _, _ := idx.table.Set(w.inner, key, ptr)
	switch result {
	case htable.ResultTrue:
		if created {
			idx.metrics.incInsert()
		} else {
			idx.metrics.incUpdate()
		}
		return created, nil
	case htable.ResultTryLater:
		return false, ErrRetryExhausted
	default:
		return false, ErrTableFull
	}
}

// Get looks up key, implementing spec.md §4.C.7 op_get including the
// upsize.from fallback for keys mid-migration.
func (idx *Index[V]) Get(w *Worker, key []byte) (value V, ok bool) {
	if idx.closed.Load() {
		return value, false
	}
	ptr, found := idx.table.Get(w.inner, key)
	if !found {
		idx.metrics.incMiss()
		return value, false
	}
	idx.metrics.incHit()
	return *(*V)(unsafe.Pointer(ptr)), true
}

// Delete removes key if present, implementing spec.md §4.C.8 op_delete.
// It reports whether a live key was actually removed.
func (idx *Index[V]) Delete(w *Worker, key []byte) bool {
	if idx.closed.Load() {
		return false
	}
	removed := idx.table.Delete(w.inner, key) == htable.ResultTrue
	if removed {
		idx.metrics.incDelete()
	}
	return removed
}

// BucketsCount reports the live table's current bucket count.
func (idx *Index[V]) BucketsCount() uint64 { return idx.table.BucketsCount() }

// Upsizing reports whether a cooperative upsize is currently in progress.
func (idx *Index[V]) Upsizing() bool { return idx.table.UpsizeStatus() }

// Close stops the background epoch collector, if one was started, and
// releases the underlying table. Close does not unregister any Worker:
// callers must Unregister every Worker (and drain every WorkerPool) they
// obtained before calling Close, exactly as internal/htable requires.
func (idx *Index[V]) Close() {
	if !idx.closed.CompareAndSwap(false, true) {
		return
	}
	if idx.cancel != nil {
		idx.cancel()
	}
	idx.table.Close()
}

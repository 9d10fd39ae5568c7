package htable

import (
	"context"
	"hash/maphash"
	"sync/atomic"
	"time"

	"github.com/Voskan/mpmc-index/internal/epoch"
)

// Table is the spec's Hashtable: a pointer to the current Data plus the
// upsize state machine and the two epoch GCs (Node-kind, Table-kind) that
// back its reclamation.
type Table struct {
	data atomic.Pointer[table]

	bucketsCountMax uint64
	upsizeBlockSize uint32
	tunables        Tunables
	hooks           Hooks
	seed            maphash.Seed

	upsize upsizeInfo

	nodeGC  *epoch.GC[node]
	tableGC *epoch.GC[table]
}

// New constructs a Table with bucketsInitial starting buckets (rounded up
// to the next power of two), capped from growing past bucketsMax (also
// rounded up), per spec.md §6's hashtable_init.
func New(bucketsInitial, bucketsMax uint64, tunables Tunables, hooks Hooks) *Table {
	if tunables.LinearSearchRange == 0 {
		tunables.LinearSearchRange = 256
	}
	if tunables.UpsizeBlockSize == 0 {
		tunables.UpsizeBlockSize = 1024 * 16
	}
	t := &Table{
		bucketsCountMax: nextPow2U64(bucketsMax),
		upsizeBlockSize: tunables.UpsizeBlockSize,
		tunables:        tunables,
		hooks:           hooks,
		seed:            maphash.MakeSeed(),
	}
	t.nodeGC = epoch.NewGC(func(batch []epoch.Staged[node]) {
		if t.hooks.OnReclaim != nil {
			t.hooks.OnReclaim("node", len(batch))
		}
	}, tunables.Epoch)
	t.tableGC = epoch.NewGC(func(batch []epoch.Staged[table]) {
		if t.hooks.OnReclaim != nil {
			t.hooks.OnReclaim("table", len(batch))
		}
	}, tunables.Epoch)
	t.data.Store(newTable(bucketsInitial, tunables.LinearSearchRange))
	return t
}

// Close releases t's epoch GC collector goroutines, if started. Per
// spec.md §6 ("hashtable_free ... callers must have drained all threads
// from the GC first"), every Worker obtained via Register must already
// have been passed to Unregister.
func (t *Table) Close() {
	_ = t.nodeGC.StopCollector()
	_ = t.tableGC.StopCollector()
}

// StartBackgroundCollector launches one collector goroutine per object kind
// (node, table), each sweeping every registered Worker's handle of that
// kind on interval. pkg/index drives this from its own Option so Register
// callers never have to hand-roll a collection loop of their own.
func (t *Table) StartBackgroundCollector(ctx context.Context, interval time.Duration) {
	t.nodeGC.StartCollector(ctx, interval)
	t.tableGC.StartCollector(ctx, interval)
}

// StopBackgroundCollector stops both collector goroutines started by
// StartBackgroundCollector. A no-op if none is running.
func (t *Table) StopBackgroundCollector() {
	_ = t.nodeGC.StopCollector()
	_ = t.tableGC.StopCollector()
}

func (t *Table) valueInstalled(v uintptr) {
	if t.hooks.OnValueInstalled != nil {
		t.hooks.OnValueInstalled(v)
	}
}

func (t *Table) valueRetired(v uintptr) {
	if t.hooks.OnValueRetired != nil {
		t.hooks.OnValueRetired(v)
	}
}

// BucketsCount reports the current table's logical bucket count —
// exposed for tests and for pkg/index's size gauge.
func (t *Table) BucketsCount() uint64 {
	return t.data.Load().bucketsCount
}

// UpsizeStatus reports whether t is currently mid-upsize — exposed for
// tests and for pkg/index's Index.Upsizing.
func (t *Table) UpsizeStatus() (inProgress bool) {
	return upsizeStatus(t.upsize.status.Load()) != upsizeNotUpsizing
}

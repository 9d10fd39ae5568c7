package htable

import "sync/atomic"

// upsizeStatus mirrors spec.md §3.1's UpsizeInfo.status enum. Values are
// stored in upsizeInfo.status as int32 since sync/atomic has no typed
// enum atomic.
type upsizeStatus int32

const (
	upsizeNotUpsizing upsizeStatus = iota
	upsizePrepareForUpsize
	upsizeUpsizing
)

// upsizeInfo is spec.md §3.1's UpsizeInfo, every field an atomic so the
// preparation state machine (§4.D.1) can publish it field-by-field with
// the ordering the spec prescribes.
type upsizeInfo struct {
	from            atomic.Pointer[table]
	status          atomic.Int32
	totalBlocks     atomic.Int64
	remainingBlocks atomic.Int64
	blockSize       atomic.Int64
	threadsCount    atomic.Int32
}

// upsizeIsAllowed reports whether doubling data's bucket count would stay
// within bucketsCountMax (spec.md invariant 7).
func (t *Table) upsizeIsAllowed(data *table) bool {
	return data.bucketsCount*2 <= t.bucketsCountMax
}

// upsizePrepare implements spec.md §4.D.1. Only the thread that wins the
// NotUpsizing -> PrepareForUpsize CAS proceeds; every other caller
// returns immediately and retries its own operation, which will either
// see Upsizing now or find the slot it wanted.
func (t *Table) upsizePrepare(data *table) {
	if !t.upsize.status.CompareAndSwap(int32(upsizeNotUpsizing), int32(upsizePrepareForUpsize)) {
		return
	}

	preferredBlockSize := uint64(t.upsizeBlockSize)
	if preferredBlockSize == 0 {
		preferredBlockSize = 1024 * 16
	}
	totalBlocks := ceilDiv(data.bucketsCountReal, preferredBlockSize)
	if totalBlocks == 0 {
		totalBlocks = 1
	}
	blockSize := ceilDiv(data.bucketsCountReal, totalBlocks)

	// Doubles a power-of-two bucketsCount (spec.md §4.D.1 step 3:
	// "buckets_count + 1 before power-of-two rounding").
	newData := newTable(data.bucketsCount+1, t.tunables.LinearSearchRange)

	t.upsize.totalBlocks.Store(int64(totalBlocks))
	t.upsize.remainingBlocks.Store(int64(totalBlocks))
	t.upsize.blockSize.Store(int64(blockSize))
	t.upsize.from.Store(data)
	t.data.Store(newData)
	t.upsize.status.Store(int32(upsizeUpsizing))

	if t.hooks.OnUpsizeStart != nil {
		t.hooks.OnUpsizeStart(data.bucketsCount, newData.bucketsCount)
	}
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// upsizeHelpMigrateOneBlock implements spec.md §4.D.2: claim at most one
// migration block by atomically decrementing remainingBlocks, migrate
// every occupied bucket in it from the old table into the new one, then,
// if every block has been claimed and no other thread is still migrating,
// complete the upsize. Design Notes §9 resolves the "who helps migrate"
// question: writers help, readers merely consult upsize.from (see Get,
// Delete) — so only Set calls this.
func (t *Table) upsizeHelpMigrateOneBlock(w *Worker) {
	if upsizeStatus(t.upsize.status.Load()) != upsizeUpsizing {
		return
	}
	remaining := t.upsize.remainingBlocks.Add(-1)
	if remaining < 0 {
		return
	}
	blockNumber := t.upsize.totalBlocks.Load() - remaining - 1

	t.upsize.threadsCount.Add(1)

	op := w.beginNodeOp()
	defer w.endNodeOp(op)

	oldData := t.upsize.from.Load()
	if oldData == nil {
		t.upsize.threadsCount.Add(-1)
		return
	}
	newData := t.data.Load()

	blockSize := uint64(t.upsize.blockSize.Load())
	start := uint64(blockNumber) * blockSize
	end := start + blockSize
	if end > oldData.bucketsCountReal {
		end = oldData.bucketsCountReal
	}

	for idx := start; idx < end; idx++ {
		observed := oldData.buckets[idx].load()
		if observed.status == bucketEmpty || observed.status == bucketTombstone {
			continue
		}

		n := observed.node
		key := n.key()
		halfHash := halfHashOf(n.hash)

		if pr := findBucketAndKeyValue(newData, n.hash, halfHash, key, true); pr.found {
			// A concurrent op_set already placed this key in the new
			// table (block partitioning rules out another migrator
			// racing the same slot); our old value is superseded.
			t.valueRetired(n.value.Load())
			oldData.buckets[idx].store(emptyBucketWord)
			continue
		}

		ar := acquireEmptyBucketForInsert(newData, n.hash, halfHash, key, n.value.Load())
		if ar.result == resultNeedsResizing {
			// Migration is a cooperative helper path, not a
			// caller-facing API; a nested upsize here is a bug in the
			// sizing of the new table, not a recoverable condition
			// (spec.md §4.D.2 step 4 / §7 "Nested upsize: Fatal").
			panic("htable: nested upsize triggered during migration")
		}
		if !validateInsert(newData, n.hash, halfHash, key, ar.bucketIdx) {
			// Same race, caught at publish time instead of at the find
			// above: someone else's write won this key in the new
			// table while we were building our candidate node.
			t.valueRetired(n.value.Load())
			newData.buckets[ar.bucketIdx].store(ar.overwritten)
			w.nodeHandle.Stage(ar.ownedNode)
			oldData.buckets[idx].store(emptyBucketWord)
			continue
		}

		// The value's only live carrier changes from the old node to
		// ar.ownedNode, but it never became unreachable in between, so
		// no install/retire pair fires here.
		published := &bucketWord{halfHash: halfHash, status: bucketLive, node: ar.ownedNode}
		newData.buckets[ar.bucketIdx].store(published)
		oldData.buckets[idx].store(emptyBucketWord)
	}

	// Decrement before the completion check, not via defer: the last
	// thread to finish a block must not still be counting itself as
	// in-flight when it evaluates threadsCount, or the status never
	// transitions back to NotUpsizing (spec.md §8.2 scenario #4).
	t.upsize.threadsCount.Add(-1)

	if t.upsize.remainingBlocks.Load() <= 0 && t.upsize.threadsCount.Load() == 0 {
		if t.upsize.status.CompareAndSwap(int32(upsizeUpsizing), int32(upsizeNotUpsizing)) {
			tableOp := w.beginTableOp()
			w.tableHandle.Stage(oldData)
			w.endTableOp(tableOp)
			t.upsize.from.Store(nil)
			if t.hooks.OnUpsizeComplete != nil {
				t.hooks.OnUpsizeComplete(newData.bucketsCount)
			}
		}
	}
}

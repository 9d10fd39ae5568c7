package htable

// maxSetRetries bounds op_set's retry loop (spec.md §9: "A bounded retry
// count (3) prevents livelock when many threads contend for the same
// key").
const maxSetRetries = 3

// Set implements op_set (spec.md §4.C.6): find-and-update, or
// acquire-validate-publish insert, triggering/helping a cooperative
// upsize when the probe window is full.
func (t *Table) Set(w *Worker, key []byte, value uintptr) (result Result, createdNew, valueUpdated bool, previousValue uintptr) {
	op := w.beginNodeOp()
	defer w.endNodeOp(op)

	t.upsizeHelpMigrateOneBlock(w)

	hash := t.hashKey(key)
	halfHash := halfHashOf(hash)

	for attempt := 0; attempt < maxSetRetries; attempt++ {
		data := t.data.Load()

		if pr := findBucketAndKeyValue(data, hash, halfHash, key, true); pr.found {
			if pr.word.status == bucketTemporary {
				continue // invariant 3: a concurrent insert hasn't validated yet
			}
			old := pr.word.node.value.Load()
			if pr.word.node.value.CompareAndSwap(old, value) {
				t.valueInstalled(value)
				t.valueRetired(old)
				return ResultTrue, false, true, old
			}
			continue // lost the value race to another updater
		}

		if upsizeStatus(t.upsize.status.Load()) == upsizePrepareForUpsize {
			continue
		}

		ar := acquireEmptyBucketForInsert(data, hash, halfHash, key, value)
		if ar.result == resultNeedsResizing {
			if !t.upsizeIsAllowed(data) {
				return ResultFalse, false, false, 0
			}
			t.upsizePrepare(data)
			continue
		}

		if !validateInsert(data, hash, halfHash, key, ar.bucketIdx) {
			data.buckets[ar.bucketIdx].store(ar.overwritten)
			w.nodeHandle.Stage(ar.ownedNode)
			continue
		}

		published := &bucketWord{halfHash: halfHash, status: bucketLive, node: ar.ownedNode}
		data.buckets[ar.bucketIdx].store(published)
		t.valueInstalled(value)
		return ResultTrue, true, true, 0
	}
	return ResultTryLater, false, false, 0
}

// Get implements op_get (spec.md §4.C.7): a lookup in the current table,
// falling back to the pre-upsize table when one is still being migrated
// (spec.md §4.D.3 — readers must consult upsize.from or keys transiently
// vanish).
func (t *Table) Get(w *Worker, key []byte) (value uintptr, ok bool) {
	op := w.beginNodeOp()
	defer w.endNodeOp(op)

	hash := t.hashKey(key)
	halfHash := halfHashOf(hash)

	data := t.data.Load()
	if pr := findBucketAndKeyValue(data, hash, halfHash, key, false); pr.found {
		return pr.word.node.value.Load(), true
	}

	if upsizeStatus(t.upsize.status.Load()) != upsizeNotUpsizing {
		if from := t.upsize.from.Load(); from != nil {
			if pr := findBucketAndKeyValue(from, hash, halfHash, key, false); pr.found {
				return pr.word.node.value.Load(), true
			}
		}
	}
	return 0, false
}

// Delete implements op_delete (spec.md §4.C.8): CAS the found slot to a
// tombstone, staging the evicted node. Also consults upsize.from, same as
// Get.
func (t *Table) Delete(w *Worker, key []byte) Result {
	op := w.beginNodeOp()
	defer w.endNodeOp(op)

	hash := t.hashKey(key)
	halfHash := halfHashOf(hash)

	data := t.data.Load()
	pr := findBucketAndKeyValue(data, hash, halfHash, key, false)
	if !pr.found && upsizeStatus(t.upsize.status.Load()) != upsizeNotUpsizing {
		if from := t.upsize.from.Load(); from != nil {
			if altPr := findBucketAndKeyValue(from, hash, halfHash, key, false); altPr.found {
				data, pr = from, altPr
			}
		}
	}
	if !pr.found {
		return ResultFalse
	}

	tombstone := &bucketWord{halfHash: 0, status: bucketTombstone}
	if data.buckets[pr.bucketIdx].cas(pr.word, tombstone) {
		t.valueRetired(pr.word.node.value.Load())
		w.nodeHandle.Stage(pr.word.node)
		return ResultTrue
	}
	// CAS failure: a concurrent delete or update already won; report
	// ResultFalse, the same as a miss.
	return ResultFalse
}

package htable

// probeResult is find_bucket_and_key_value's return value (spec.md
// §4.C.3): whether the key was found, the bucket snapshot it was found
// under, and the physical index it occupies.
type probeResult struct {
	found     bool
	word      *bucketWord
	bucketIdx uint64
}

// findBucketAndKeyValue walks the probe window for hash, looking for key.
// allowTemporary controls whether a TEMPORARY-tagged match counts as
// found: op_set passes true (it needs to see in-flight inserts to decide
// whether to retry), op_get and op_delete pass false (invariant 3:
// temporary occupancy is invisible to readers).
func findBucketAndKeyValue(data *table, hash uint64, halfHash uint32, key []byte, allowTemporary bool) probeResult {
	start := data.bucketIndex(hash)
	for i := uint64(0); i < data.linearSearchRange; i++ {
		idx := start + i
		w := data.buckets[idx].load()

		if w.status == bucketEmpty {
			// No writer has ever advanced past this point (spec.md
			// §4.C.3 step 2): terminate.
			return probeResult{}
		}
		if w.status == bucketTombstone {
			continue
		}
		if w.halfHash != halfHash {
			continue
		}
		if w.status == bucketTemporary && !allowTemporary {
			continue
		}
		if w.node.keyEquals(key) {
			return probeResult{found: true, word: w, bucketIdx: idx}
		}
	}
	return probeResult{}
}

// acquireResult is acquire_empty_bucket_for_insert's return value
// (spec.md §4.C.4).
type acquireResult struct {
	result      Result
	bucketIdx   uint64
	overwritten *bucketWord
	ownedNode   *node
}

// acquireEmptyBucketForInsert walks the probe window looking for a
// never-written slot, lazily allocating one candidate node the first
// time it sees one (so the "key already exists" hot path never
// allocates), and CASes a TEMPORARY-tagged bucket into the first slot it
// wins.
func acquireEmptyBucketForInsert(data *table, hash uint64, halfHash uint32, key []byte, value uintptr) acquireResult {
	start := data.bucketIndex(hash)
	var n *node
	for i := uint64(0); i < data.linearSearchRange; i++ {
		idx := start + i
		observed := data.buckets[idx].load()
		if observed.status != bucketEmpty {
			continue
		}
		if n == nil {
			n = newNode(hash, key, value)
		}
		candidate := &bucketWord{halfHash: halfHash, status: bucketTemporary, node: n}
		for {
			if data.buckets[idx].cas(observed, candidate) {
				return acquireResult{result: ResultTrue, bucketIdx: idx, overwritten: observed, ownedNode: n}
			}
			// CAS lost the slot to another writer: re-read it, retry while
			// it is still empty, otherwise continue the probe (spec.md
			// §4.C.4 step 3).
			observed = data.buckets[idx].load()
			if observed.status != bucketEmpty {
				break
			}
		}
	}
	return acquireResult{result: resultNeedsResizing}
}

// validateInsert re-walks the probe window, rejecting the insert if any
// other occupied, non-temporary slot with a matching tag already holds
// the same key (spec.md §4.C.5) — a concurrent insert won the race.
func validateInsert(data *table, hash uint64, halfHash uint32, key []byte, newIdx uint64) bool {
	start := data.bucketIndex(hash)
	for i := uint64(0); i < data.linearSearchRange; i++ {
		idx := start + i
		if idx == newIdx {
			continue
		}
		w := data.buckets[idx].load()
		if w.status == bucketEmpty {
			break
		}
		if w.status == bucketTombstone {
			continue
		}
		if w.halfHash != halfHash {
			continue
		}
		if w.status == bucketTemporary {
			continue
		}
		if w.node.keyEquals(key) {
			return false
		}
	}
	return true
}

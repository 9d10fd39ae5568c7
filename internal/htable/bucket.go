package htable

import "sync/atomic"

// bucketStatus replaces the reference's low-bit pointer tags
// (TEMPORARY/TOMBSTONE/MIGRATING — spec.md §3.1) with an explicit field,
// since Go cannot safely steal bits from a GC-managed pointer. MIGRATING
// is not modeled: the reference marks it "reserved" and nothing in §4
// reads or writes it, so it is dropped rather than carried as dead state
// (DESIGN.md).
type bucketStatus uint8

const (
	// bucketEmpty is the "never written" state (spec.md invariant 2):
	// half_hash == 0 and no node. Probes terminate on it.
	bucketEmpty bucketStatus = iota
	// bucketTemporary is an insertion in flight, invisible to readers
	// that pass allowTemporary=false (invariant 3).
	bucketTemporary
	// bucketLive is a validated, readable node.
	bucketLive
	// bucketTombstone is a deletion marker; probing continues past it.
	bucketTombstone
)

// bucketWord is the double word of spec.md §3.1 — {half_hash, tagged
// pointer} — realized as a single immutable, allocate-once value so that
// every "double-word CAS" in the spec becomes one CompareAndSwap on the
// bucket's outer atomic.Pointer, swapping (halfHash, status, node)
// together as a unit. See DESIGN.md for why this satisfies Design Notes
// §9's "substitute a single 128-bit atomic type" allowance.
type bucketWord struct {
	halfHash uint32
	status   bucketStatus
	node     *node
}

// emptyBucketWord is shared by every never-written bucket across every
// table; CAS compares per-bucket storage locations, not this pointer's
// identity globally, so sharing it costs nothing and avoids one
// allocation per bucket at table construction.
var emptyBucketWord = &bucketWord{}

// bucket is one physical slot: an atomically swapped pointer to an
// immutable bucketWord.
type bucket struct {
	word atomic.Pointer[bucketWord]
}

func (b *bucket) init() { b.word.Store(emptyBucketWord) }

func (b *bucket) load() *bucketWord { return b.word.Load() }

func (b *bucket) cas(old, new *bucketWord) bool { return b.word.CompareAndSwap(old, new) }

// store is the "plain write" the spec allows for validation-rollback and
// migration-zero paths, justified there by the algorithm establishing
// this thread as the bucket's sole current writer (spec.md §5, "Shared
// resources").
func (b *bucket) store(w *bucketWord) { b.word.Store(w) }

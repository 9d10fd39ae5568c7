package htable

import "github.com/Voskan/mpmc-index/internal/unsafehelpers"

// table is the spec's Data: a fixed-size array of buckets plus the
// bookkeeping needed to map a hash to a probe-window start without bounds
// checks (spec.md §3.1/§4.C.2).
type table struct {
	bucketsCount      uint64
	bucketsCountMask  uint64
	bucketsCountReal  uint64
	linearSearchRange uint64
	buckets           []bucket
}

// newTable rounds bucketsCount up to the next power of two and allocates
// bucketsCountReal = bucketsCount + linearSearchRange physical slots, so a
// probe window starting anywhere in [0, bucketsCount) never wraps or needs
// a bounds check (spec.md §3.1).
func newTable(bucketsCount uint64, linearSearchRange uint64) *table {
	bucketsCount = nextPow2U64(bucketsCount)
	if !unsafehelpers.IsPowerOfTwo(uintptr(bucketsCount)) {
		panic("htable: bucketsCount rounding produced a non-power-of-two value")
	}
	if linearSearchRange == 0 {
		linearSearchRange = 256
	}
	real := bucketsCount + linearSearchRange
	t := &table{
		bucketsCount:      bucketsCount,
		bucketsCountMask:  bucketsCount - 1,
		bucketsCountReal:  real,
		linearSearchRange: linearSearchRange,
		buckets:           make([]bucket, real),
	}
	for i := range t.buckets {
		t.buckets[i].init()
	}
	return t
}

func nextPow2U64(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// bucketIndex computes the probe window's starting physical index for
// hash, per spec.md §4.C.1: the high 32 bits of the hash, masked.
func (t *table) bucketIndex(hash uint64) uint64 {
	return (hash >> 32) & t.bucketsCountMask
}

package htable

import "hash/maphash"

// halfHashOf extracts the bucket tag from a 64-bit hash (spec.md §4.C.1:
// half_hash = H & 0xFFFFFFFF).
func halfHashOf(hash uint64) uint32 { return uint32(hash) }

// hashKey computes the table's 64-bit key hash. The reference uses a
// fixed compile-time HASH_SEED (42); maphash.Seed is explicitly
// documented by the standard library as unsafe to fix or serialize across
// processes, so this table generates one random seed per construction
// instead — scoped to the table's lifetime, which is all the spec
// actually requires (a stable hash function for as long as the table
// exists). Grounded on pkg/shard.go's identical hash/maphash choice,
// generalized from a per-shard seed to a per-table seed.
func (t *Table) hashKey(key []byte) uint64 {
	return maphash.Bytes(t.seed, key)
}

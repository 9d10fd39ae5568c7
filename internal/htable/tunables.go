// Package htable implements the MPMC lock-free hash index (spec.md §4.C)
// and its cooperative concurrent upsize (§4.D) — components C and D, the
// two largest pieces of the system.
//
// Grounded on original_source/src/data_structures/hashtable_mpmc/hashtable_mpmc.c
// and .h (the cachegrand C implementation this package was distilled from),
// with the hash/entry layout style borrowed from the teacher's pkg/shard.go.
// Go has no native double-word CAS and no safe way to tag a GC-managed
// pointer's low bits, so every bucket is realized as an
// atomic.Pointer[bucketWord] over an immutable, allocate-once bucketWord —
// see bucket.go and DESIGN.md.
package htable

import "github.com/Voskan/mpmc-index/internal/epoch"

// Tunables bundles the compile-time constants spec.md §6 lists for the
// hash index proper (LINEAR_SEARCH_RANGE, UPSIZE_BLOCK_SIZE) plus the
// epoch GC tunables shared by the Node and Table object kinds.
//
// EmbeddedKeyCapacity is deliberately absent here: it sizes node's
// embedded byte array (node.go), which is a Go array length and therefore
// a compile-time constant, not a runtime-tunable field. See DESIGN.md.
type Tunables struct {
	// LinearSearchRange is the probe window width (spec.md §4.C.2).
	// Defaults to 256 (cachegrand's value) when zero.
	LinearSearchRange uint64

	// UpsizeBlockSize is the preferred migration block size (spec.md
	// §4.D.1). Defaults to 1024*16 when zero.
	UpsizeBlockSize uint32

	// Epoch configures the two epoch.GC instances this table owns (one
	// per object kind: node, table).
	Epoch epoch.Tunables
}

// DefaultTunables mirrors cachegrand's reference constants.
func DefaultTunables() Tunables {
	return Tunables{
		LinearSearchRange: 256,
		UpsizeBlockSize:   1024 * 16,
		Epoch:             epoch.DefaultTunables(),
	}
}

// Hooks lets a host observe slow-path events without htable depending on
// a logging library itself (spec.md §7's policy, carried into this
// package: "the cache never logs on the hot path"). pkg/index binds these
// to its zap logger and Prometheus counters; nil fields are simply not
// called.
type Hooks struct {
	OnUpsizeStart    func(fromBuckets, toBuckets uint64)
	OnUpsizeComplete func(buckets uint64)
	OnReclaim        func(kind string, count int)

	// OnValueInstalled fires exactly once for a value the moment it
	// becomes reachable from a live bucket (a fresh insert, or the
	// winning side of a value-update CAS). OnValueRetired fires exactly
	// once when a value stops being reachable from any live bucket (a
	// tombstone delete, the losing side of a value-update CAS, or a
	// migration superseded by a concurrent writer). A value that is
	// installed and later migrated to a new Data without ever becoming
	// unreachable fires neither hook again — see DESIGN.md's note on
	// pkg/index's value-boxing anchor table, the reason these two hooks
	// exist instead of a single OnReclaim.
	OnValueInstalled func(value uintptr)
	OnValueRetired   func(value uintptr)
}

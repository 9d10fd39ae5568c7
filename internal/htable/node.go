package htable

import (
	"bytes"
	"sync/atomic"
)

// embeddedKeyCapacity is the reference's recommended minimum (spec.md §6:
// "embedded-key capacity (>=15 bytes recommended)"). It sizes node's
// embedded array, so unlike LinearSearchRange it cannot be a runtime
// Tunables field without reflection-based variable-length arrays, which
// Go doesn't have.
const embeddedKeyCapacity = 15

// node is the Key-Value Node of spec.md §3.1: hash, opaque value, and a
// key that is either embedded inline or held as a heap-owned external
// slice, with an explicit flag (keyLen vs embeddedKeyCapacity) choosing
// which. value is atomic because op_set's update path CASes it in place
// (spec.md §4.C.6 step 1) while a concurrent get may be reading it.
type node struct {
	hash     uint64
	value    atomic.Uintptr
	keyLen   uint16
	embedded [embeddedKeyCapacity]byte
	external []byte
}

// newNode allocates a node owning a private copy of key — never the
// caller's slice directly, so htable's "index takes ownership of the key
// buffer" contract (spec.md §6) never outlives a slice the host might
// reuse.
func newNode(hash uint64, key []byte, value uintptr) *node {
	n := &node{hash: hash, keyLen: uint16(len(key))}
	n.value.Store(value)
	if len(key) <= embeddedKeyCapacity {
		copy(n.embedded[:], key)
	} else {
		n.external = append([]byte(nil), key...)
	}
	return n
}

// key returns the node's key bytes, embedded or external.
func (n *node) key() []byte {
	if int(n.keyLen) <= embeddedKeyCapacity {
		return n.embedded[:n.keyLen]
	}
	return n.external
}

// keyEquals reports whether n's key equals key, byte-wise (case-sensitive,
// spec.md §4.C.3 step 5).
func (n *node) keyEquals(key []byte) bool {
	if int(n.keyLen) != len(key) {
		return false
	}
	return bytes.Equal(n.key(), key)
}

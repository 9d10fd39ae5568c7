package index

import "errors"

// Sentinel errors returned by New and by Set.
// Grounded on the teacher's pkg/config.go sentinel set
// (errInvalidCap/errInvalidTTL/errInvalidShards): one exported error value
// per validated precondition, checked with errors.Is at the call site.
var (
	// ErrInvalidBucketCount is returned by New when bucketsInitial is 0.
	ErrInvalidBucketCount = errors.New("index: bucketsInitial must be > 0")

	// ErrInvalidBucketCountMax is returned by New when bucketsMax is 0.
	ErrInvalidBucketCountMax = errors.New("index: bucketsMax must be > 0")

	// ErrBucketCountMaxTooSmall is returned by New when bucketsMax is less
	// than bucketsInitial (compared as given, before any rounding).
	ErrBucketCountMaxTooSmall = errors.New("index: bucketsMax must be >= bucketsInitial")

	// ErrClosed is returned by Set once the Index has been Closed; Get and
	// Delete report false instead. Calling any operation after Close is a
	// caller bug, not a transient condition.
	ErrClosed = errors.New("index: use of Index after Close")

	// ErrTableFull is returned by Set when the probe window is exhausted
	// and growing further would exceed bucketsMax (spec.md invariant 7:
	// "op_set ... returns false" in this situation).
	ErrTableFull = errors.New("index: table full and at its configured maximum size")

	// ErrRetryExhausted is returned by Set when op_set's bounded retry
	// loop gives up under contention (spec.md §9's livelock guard).
	// Callers are expected to retry the call themselves.
	ErrRetryExhausted = errors.New("index: set retry budget exhausted, try again")
)

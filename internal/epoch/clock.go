package epoch

import "time"

// Now returns a monotonically non-decreasing epoch value, standing in for
// the reference's intrinsics_tsc() cycle counter (original_source/src/intrinsics.c).
// Epoch values are never interpreted as wall-clock time, only compared to
// each other, so any strictly monotonic per-process clock is an admissible
// substitute; time.Since measures against the monotonic clock reading that
// time.Now records, so the value is nanoseconds elapsed since epochBase.
// Ties between two rapid calls are harmless: the horizon
// computation only needs "is this staged object's epoch before every
// registered thread's published epoch", and grouping two back-to-back
// operations under the same epoch is still conservative.
func Now() uint64 {
	return uint64(time.Since(epochBase))
}

// epochBase is the monotonic reference point Now measures from.
var epochBase = time.Now()

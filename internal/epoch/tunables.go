package epoch

// Tunables bundles the compile-time constants spec.md §6 lists for the
// epoch GC. They are struct fields rather than Go constants so tests can
// shrink ring sizes and batch sizes without recompiling (teacher precedent:
// pkg/config.go exposes every knob through a struct built by defaultConfig).
type Tunables struct {
	// OperationQueueRingSize bounds how many in-flight operations a single
	// worker's operation queue may track before the oldest must complete.
	OperationQueueRingSize uint32

	// StagedObjectsRingSize bounds how many retired objects a single ring in
	// a thread handle's ring list may hold before a new ring is appended.
	StagedObjectsRingSize uint32

	// DestructorBatchSize is the maximum number of staged objects passed to
	// a single destructor callback invocation.
	DestructorBatchSize uint8
}

// DefaultTunables mirrors cachegrand's reference constants
// (EPOCH_OPERATION_QUEUE_RING_SIZE, EPOCH_GC_STAGED_OBJECTS_RING_SIZE,
// EPOCH_GC_STAGED_OBJECT_DESTRUCTOR_CB_BATCH_SIZE).
func DefaultTunables() Tunables {
	return Tunables{
		OperationQueueRingSize: 1024,
		StagedObjectsRingSize:  1024,
		DestructorBatchSize:    16,
	}
}

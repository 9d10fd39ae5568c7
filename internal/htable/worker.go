package htable

import "github.com/Voskan/mpmc-index/internal/epoch"

// Worker is the small thread-context struct Design Notes §9 recommends
// passing down every core call rather than reaching into thread-local
// storage: it bundles one GC thread handle and one operation queue per
// object kind (Node, Table). Obtained via Table.Register, released via
// Table.Unregister.
type Worker struct {
	nodeHandle  *epoch.ThreadHandle[node]
	tableHandle *epoch.ThreadHandle[table]
	nodeOps     *epoch.OperationQueue
	tableOps    *epoch.OperationQueue
}

func (w *Worker) beginNodeOp() *epoch.Operation {
	op, ok := w.nodeOps.Enqueue(epoch.Now())
	if !ok {
		panic("htable: node operation queue saturated — too many operations left open on this worker")
	}
	return op
}

func (w *Worker) endNodeOp(op *epoch.Operation) {
	epoch.MarkCompleted(op)
	w.nodeHandle.SetEpoch(w.nodeOps.GetLatestEpoch())
}

func (w *Worker) beginTableOp() *epoch.Operation {
	op, ok := w.tableOps.Enqueue(epoch.Now())
	if !ok {
		panic("htable: table operation queue saturated")
	}
	return op
}

func (w *Worker) endTableOp(op *epoch.Operation) {
	epoch.MarkCompleted(op)
	w.tableHandle.SetEpoch(w.tableOps.GetLatestEpoch())
}

// Register allocates a Worker bound to t's two epoch GCs (spec.md §3.3:
// "GC thread handles are created on worker registration").
func (t *Table) Register() *Worker {
	w := &Worker{
		nodeHandle:  t.nodeGC.ThreadInit(),
		tableHandle: t.tableGC.ThreadInit(),
		nodeOps:     epoch.NewOperationQueue(t.tunables.Epoch),
		tableOps:    epoch.NewOperationQueue(t.tunables.Epoch),
	}
	w.nodeHandle.RegisterGlobal()
	w.tableHandle.RegisterGlobal()
	return w
}

// Unregister terminates and frees w's GC handles. The caller must not use
// w again afterward, and must have no in-flight operations on it (spec.md
// §3.3: handles are "destroyed only after epoch_gc_thread_terminate has
// been observed and the handle's rings are drained").
func (t *Table) Unregister(w *Worker) {
	w.nodeHandle.Terminate()
	w.tableHandle.Terminate()
	w.nodeHandle.UnregisterGlobal()
	w.tableHandle.UnregisterGlobal()
	w.nodeHandle.CollectAll()
	w.tableHandle.CollectAll()
	w.nodeHandle.Free()
	w.tableHandle.Free()
}

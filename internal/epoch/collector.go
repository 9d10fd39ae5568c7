package epoch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// collectorLoop holds the lifecycle of a GC's optional background collector
// goroutine. Grounded on the teacher's direct dependency on
// golang.org/x/sync (pkg/loader.go imports the sibling singleflight
// package); errgroup gives the same structured-goroutine-lifecycle
// guarantee the teacher wants from that module, applied here to a concern
// the teacher doesn't have: periodic sweep of every registered handle.
type collectorLoop struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

// StartCollector launches one background goroutine that, every interval,
// snapshots the currently registered thread handles and calls CollectAll on
// each. It is optional: hosts that prefer to call Collect/CollectAll
// themselves (e.g. from within their own scheduler tick) need not use it.
// Calling StartCollector twice without an intervening StopCollector panics.
func (g *GC[T]) StartCollector(ctx context.Context, interval time.Duration) {
	if g.collector != nil {
		panic("epoch: StartCollector called while a collector is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			case <-ticker.C:
				for _, h := range g.snapshotThreads() {
					if h.Terminated() {
						continue
					}
					h.CollectAll()
				}
			}
		}
	})

	g.collector = &collectorLoop{cancel: cancel, group: eg}
}

// StopCollector cancels the background collector goroutine started by
// StartCollector and waits for it to exit. A no-op if no collector is
// running. Returns the goroutine's terminal error, which is
// context.Canceled on a normal stop.
func (g *GC[T]) StopCollector() error {
	if g.collector == nil {
		return nil
	}
	c := g.collector
	g.collector = nil
	c.cancel()
	return c.group.Wait()
}

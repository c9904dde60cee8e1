package exec

import (
	"context"
	"sync"
	"time"

	"github.com/horus-robotics/horus/profiler"
	"github.com/horus-robotics/horus/sys"
)

// backgroundPool runs Background-tier nodes on a fixed-size worker
// pool sized to CPU count minus the two hot threads
// (sys.BackgroundPoolSize). Nodes are distributed round-robin across workers at
// add time; each worker ticks its assigned nodes in sequence every
// cadence, so a single node's tick is still totally ordered against
// itself even though Background as a whole runs many nodes concurrently.
type backgroundPool struct {
	prof    *profiler.Profiler
	workers [][]Node
	next    int
}

func newBackgroundPool(prof *profiler.Profiler) *backgroundPool {
	n := sys.BackgroundPoolSize()
	return &backgroundPool{prof: prof, workers: make([][]Node, n)}
}

func (b *backgroundPool) add(n Node) {
	b.workers[b.next] = append(b.workers[b.next], n)
	b.next = (b.next + 1) % len(b.workers)
}

func (b *backgroundPool) count() int {
	n := 0
	for _, w := range b.workers {
		n += len(w)
	}
	return n
}

func (b *backgroundPool) run(ctx context.Context, cadence time.Duration) {
	var wg sync.WaitGroup
	for _, assigned := range b.workers {
		if len(assigned) == 0 {
			continue
		}
		assigned := assigned
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(cadence)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				queueDepth.WithLabelValues("Background").Set(float64(b.count()))
				for _, n := range assigned {
					if ctx.Err() != nil {
						return
					}
					tickOne(ctx, b.prof, n)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

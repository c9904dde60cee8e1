package exec

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/profiler"
)

// asyncPool runs AsyncIO-tier nodes each on their own task, one per
// node per cadence, in parallel across nodes.
// errgroup.WithContext gives a single
// cancellation signal shared by every in-flight tick without needing a
// hand-rolled WaitGroup + error channel.
type asyncPool struct {
	prof  *profiler.Profiler
	nodes []Node
}

func newAsyncPool(prof *profiler.Profiler) *asyncPool {
	return &asyncPool{prof: prof}
}

func (a *asyncPool) add(n Node) { a.nodes = append(a.nodes, n) }

func (a *asyncPool) run(ctx context.Context, cadence time.Duration) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		queueDepth.WithLabelValues("AsyncIO").Set(float64(len(a.nodes)))

		g, gctx := errgroup.WithContext(ctx)
		for _, n := range a.nodes {
			n := n
			g.Go(func() error {
				tickOne(gctx, a.prof, n)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			nlog.Warningf("exec: asyncio round returned error: %v", err)
		}
	}
}

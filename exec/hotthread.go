package exec

import (
	"context"
	"time"

	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/profiler"
	"github.com/horus-robotics/horus/tier"
)

// hotThread runs UltraFast and Fast nodes cooperatively, inline, on a
// single goroutine pinned for the executor's lifetime. UltraFast nodes
// are ticked before Fast nodes every cadence so a cheap deterministic
// node never waits behind a merely-fast one.
type hotThread struct {
	prof      *profiler.Profiler
	ultraFast []Node
	fast      []Node
}

func newHotThread(prof *profiler.Profiler) *hotThread {
	return &hotThread{prof: prof}
}

func (h *hotThread) add(n Node) {
	switch n.Tier() {
	case tier.UltraFast:
		h.ultraFast = append(h.ultraFast, n)
	default:
		h.fast = append(h.fast, n)
	}
}

// run ticks every UltraFast then every Fast node once per cadence,
// checking ctx for cancellation only at tick boundaries -- a hot-tier
// node never suspends mid-tick.
func (h *hotThread) run(ctx context.Context, cadence time.Duration) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		queueDepth.WithLabelValues("UltraFast").Set(float64(len(h.ultraFast)))
		queueDepth.WithLabelValues("Fast").Set(float64(len(h.fast)))

		for _, n := range h.ultraFast {
			if ctx.Err() != nil {
				return
			}
			tickOne(ctx, h.prof, n)
		}
		for _, n := range h.fast {
			if ctx.Err() != nil {
				return
			}
			tickOne(ctx, h.prof, n)
		}
	}
}

func tickOne(ctx context.Context, prof *profiler.Profiler, n Node) {
	start := time.Now()
	err := n.Tick(ctx)
	prof.Record(n.Name(), time.Since(start))
	if err != nil {
		tickErrors.WithLabelValues(n.Name()).Inc()
		nlog.Warningf("exec: node %q tick returned error: %v", n.Name(), err)
	}
}

// Package tier implements the execution-tier classifier: a pure
// function from profiler.NodeStats to one of the five execution tiers
// the exec package's scheduler contract understands.
package tier

import (
	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/profiler"
)

// Tier is one of UltraFast | Fast | AsyncIO | Isolated | Background.
type Tier int

const (
	UltraFast Tier = iota
	Fast
	AsyncIO
	Isolated
	Background
)

func (t Tier) String() string {
	switch t {
	case UltraFast:
		return "UltraFast"
	case Fast:
		return "Fast"
	case AsyncIO:
		return "AsyncIO"
	case Isolated:
		return "Isolated"
	case Background:
		return "Background"
	default:
		return "Unknown"
	}
}

// Classify applies the fixed-priority rule: fast-and-deterministic
// wins UltraFast, then I/O-heavy wins AsyncIO, then the Fast
// threshold, else Background. It is pure over NodeStats: identical
// input always yields identical output. Isolated is never assigned
// here -- it is applied out-of-band by a crash-rate policy the core
// doesn't observe.
func Classify(stats profiler.NodeStats) Tier {
	cfg := cmn.Rom.Get().Classifier
	avg := stats.AvgUs()

	switch {
	case avg < float64(cfg.UltraFastUs) && stats.IsDeterministic:
		return UltraFast
	case stats.IsIOHeavy:
		return AsyncIO
	case avg < float64(cfg.FastUs):
		return Fast
	default:
		return Background
	}
}

// Classifier re-runs Classify against a profiler.Profiler's current
// snapshot for every node it knows about, keeping the latest
// assignment per node (see Get). It does not report which nodes changed
// tier between runs.
type Classifier struct {
	p           *profiler.Profiler
	assignments map[string]Tier
}

func New(p *profiler.Profiler) *Classifier {
	return &Classifier{p: p, assignments: make(map[string]Tier)}
}

// Run re-classifies every node the profiler has samples for and
// returns the full current assignment map.
func (c *Classifier) Run() map[string]Tier {
	for _, name := range c.p.Names() {
		stats, ok := c.p.Stats(name)
		if !ok {
			continue
		}
		tier := classifyWithWarmup(name, stats)
		c.assignments[name] = tier
	}
	for t := UltraFast; t <= Background; t++ {
		tierNodeCount.WithLabelValues(t.String()).Set(tierCount(c.assignments, t))
	}
	return c.assignments
}

// Get returns the last-assigned tier for name, and whether it has ever
// been classified.
func (c *Classifier) Get(name string) (Tier, bool) {
	t, ok := c.assignments[name]
	return t, ok
}

// classifyWithWarmup assigns a node below the profiler's sample window
// to Fast -- a non-committal middle tier -- rather than letting the
// zero-value booleans on a cold NodeStats accidentally read as
// UltraFast.
func classifyWithWarmup(_ string, stats profiler.NodeStats) Tier {
	window := cmn.Rom.Get().Profiler.SampleWindow
	if window > 0 && int(stats.Count) < window {
		return Fast
	}
	return Classify(stats)
}

func tierCount(assignments map[string]Tier, want Tier) float64 {
	var n float64
	for _, t := range assignments {
		if t == want {
			n++
		}
	}
	return n
}

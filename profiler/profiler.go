// Package profiler implements the runtime profiler: online
// per-node latency statistics (count, mean, p99-ish spread, I/O-heavy
// flag) recorded by the executor after every tick and consumed by the
// tier classifier. All counters for one node are mutated only from the
// executor thread that ran it, except where multiple executor threads
// may record for the same node (e.g. an AsyncIO node re-tiered onto the
// hot path across runs); per-node state is therefore guarded by its own
// mutex rather than a single profiler-wide lock, so hot-thread nodes
// never contend with an unrelated AsyncIO node's recording.
package profiler

import (
	"math"
	"sync"
	"time"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/mono"
)

// NodeStats is a point-in-time snapshot of one node's tick statistics:
// {count, sum_us, sum_sq_us, min_us, max_us, last_k_samples,
// is_deterministic, is_io_heavy}.
type NodeStats struct {
	Count           int64
	SumUs           float64
	SumSqUs         float64
	MinUs           float64
	MaxUs           float64
	LastK           []float64 // oldest first, len <= sample window
	IsDeterministic bool
	IsIOHeavy       bool
	IOWaitFraction  float64 // host-level augmentation, see iowait_linux.go; 0 if unavailable
}

// AvgUs is the node's mean tick duration in microseconds.
func (s NodeStats) AvgUs() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.SumUs / float64(s.Count)
}

// StdDevUs is the population standard deviation of LastK, used by
// is_deterministic.
func (s NodeStats) StdDevUs() float64 {
	n := len(s.LastK)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, v := range s.LastK {
		mean += v
	}
	mean /= float64(n)
	var variance float64
	for _, v := range s.LastK {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}

type nodeState struct {
	mu      sync.Mutex
	count   int64
	sum     float64
	sumSq   float64
	min     float64
	max     float64
	window  []float64 // ring buffer, fixed capacity == Profiler.window
	writeAt int
	full    bool
	lastNs  int64

	// NodeInfo fields, see nodeinfo.go
	ipcUs       float64
	droppedMsgs int64
	logs        [logRingLen]string
	logAt       int
}

// Profiler holds the per-node statistics for every node the executor
// has recorded a tick for.
type Profiler struct {
	mu               sync.RWMutex
	nodes            map[string]*nodeState
	window           int
	ioThresholdUs    float64
	ioFraction       float64
	deterministicTol float64
}

// New builds a Profiler sized from the process-wide config's Profiler
// section (sample window, I/O-heavy threshold and fraction).
func New() *Profiler {
	cfg := cmn.Rom.Get().Profiler
	return &Profiler{
		nodes:            make(map[string]*nodeState),
		window:           cfg.SampleWindow,
		ioThresholdUs:    float64(cfg.IOHeavyThresUs),
		ioFraction:       cfg.IOHeavyFraction,
		deterministicTol: 0.10,
	}
}

func (p *Profiler) nodeFor(name string) *nodeState {
	p.mu.RLock()
	n, ok := p.nodes[name]
	p.mu.RUnlock()
	if ok {
		return n
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok = p.nodes[name]; ok {
		return n
	}
	n = &nodeState{min: math.Inf(1), max: math.Inf(-1), window: make([]float64, p.window)}
	p.nodes[name] = n
	return n
}

// Record is called by the executor after every tick.
func (p *Profiler) Record(name string, d time.Duration) {
	us := float64(d.Microseconds())
	n := p.nodeFor(name)

	n.mu.Lock()
	n.count++
	n.sum += us
	n.sumSq += us * us
	if us < n.min {
		n.min = us
	}
	if us > n.max {
		n.max = us
	}
	if len(n.window) > 0 {
		n.window[n.writeAt] = us
		n.writeAt = (n.writeAt + 1) % len(n.window)
		if n.writeAt == 0 {
			n.full = true
		}
	}
	n.lastNs = mono.NanoTime()
	n.mu.Unlock()

	tickLatencyUs.WithLabelValues(name).Observe(us)
}

// Stats returns a snapshot for name, or false if it has never been
// recorded.
func (p *Profiler) Stats(name string) (NodeStats, bool) {
	p.mu.RLock()
	n, ok := p.nodes[name]
	p.mu.RUnlock()
	if !ok {
		return NodeStats{}, false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var last []float64
	if n.full {
		last = append(last, n.window[n.writeAt:]...)
		last = append(last, n.window[:n.writeAt]...)
	} else {
		last = append(last, n.window[:n.writeAt]...)
	}

	s := NodeStats{
		Count:   n.count,
		SumUs:   n.sum,
		SumSqUs: n.sumSq,
		MinUs:   n.min,
		MaxUs:   n.max,
		LastK:   last,
	}
	if frac, ok := hostIOWaitFraction(); ok {
		s.IOWaitFraction = frac
	}

	// Warmup: both booleans stay false until the sample window has
	// filled, since variance and heavy-sample-ratio are meaningless
	// over a partial window.
	if len(last) < p.window || p.window == 0 {
		return s, true
	}

	mean := s.AvgUs()
	stddev := s.StdDevUs()
	s.IsDeterministic = mean == 0 || stddev < p.deterministicTol*mean

	var heavy int
	for _, v := range last {
		if v >= p.ioThresholdUs {
			heavy++
		}
	}
	fraction := float64(heavy) / float64(len(last))
	s.IsIOHeavy = fraction >= p.ioFraction && fraction < 1.0

	return s, true
}

// Names returns every node this profiler has recorded at least one
// sample for, for the classifier's full-graph re-run.
func (p *Profiler) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.nodes))
	for name := range p.nodes {
		names = append(names, name)
	}
	return names
}

package profiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tickLatencyUs is a process-wide histogram so an operator can scrape
// per-node tick latency without going through the profiler's own Stats
// snapshot API.
var tickLatencyUs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "horus",
	Subsystem: "profiler",
	Name:      "tick_latency_microseconds",
	Help:      "Per-node tick latency as recorded by the runtime profiler.",
	Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000, 50000},
}, []string{"node"})

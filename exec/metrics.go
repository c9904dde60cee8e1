package exec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "horus",
	Subsystem: "exec",
	Name:      "queue_depth",
	Help:      "Pending tick count per tier's scheduling queue.",
}, []string{"tier"})

var tickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "horus",
	Subsystem: "exec",
	Name:      "tick_errors_total",
	Help:      "Tick invocations that returned a non-nil error, by node.",
}, []string{"node"})

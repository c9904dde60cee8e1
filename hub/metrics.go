package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// laggedMessages counts messages a reader skipped because the writer
// overwrote them; Lagged itself is returned to the caller, this is the
// operator-facing side of the same event.
var laggedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "horus",
	Subsystem: "hub",
	Name:      "lagged_messages_total",
	Help:      "Messages skipped by a lagging reader because the writer overwrote them.",
}, []string{"topic"})

package tier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tierNodeCount is an operator-facing gauge: how many nodes are
// currently assigned to each tier.
var tierNodeCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "horus",
	Subsystem: "tier",
	Name:      "node_count",
	Help:      "Number of nodes currently assigned to each execution tier.",
}, []string{"tier"})

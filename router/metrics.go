package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "horus",
		Subsystem: "router",
		Name:      "conns_active",
		Help:      "Number of TCP connections currently in the Active state.",
	})
	packetsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "horus",
		Subsystem: "router",
		Name:      "packets_forwarded_total",
		Help:      "Packets successfully forwarded to a subscriber.",
	}, []string{"topic"})
	packetsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "horus",
		Subsystem: "router",
		Name:      "packets_dropped_total",
		Help:      "Packets dropped because a subscriber's outbound queue was saturated.",
	}, []string{"topic"})
)

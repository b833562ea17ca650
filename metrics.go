package ydoc

import "github.com/prometheus/client_golang/prometheus"

var TransactionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ydoc",
	Subsystem: "document",
	Name:      "transactions",
}, []string{"mode"})

var ConcurrentAccessCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ydoc",
	Subsystem: "document",
	Name:      "concurrent_access",
}, []string{"mode"})

var CommitCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "ydoc",
	Subsystem: "document",
	Name:      "commits",
})

var ConflictCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "ydoc",
	Subsystem: "document",
	Name:      "conflicts",
})

var UpdateBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ydoc",
	Subsystem: "document",
	Name:      "update_bytes",
	Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
}, []string{"source"})

var PendingStructs = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "ydoc",
	Subsystem: "document",
	Name:      "pending_structs",
})

// Collectors lists the document metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		TransactionCount,
		ConcurrentAccessCount,
		CommitCount,
		ConflictCount,
		UpdateBytes,
		PendingStructs,
	}
}

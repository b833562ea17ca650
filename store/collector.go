package store

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

type gauge struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(m *pebble.Metrics) float64
}

// Collector exports the metrics of the pebble database under a store,
// plus the state vector cache occupancy.
type Collector struct {
	store  *Store
	gauges []gauge
	cached *prometheus.Desc
}

func newGauge(name, help string, kind prometheus.ValueType, value func(m *pebble.Metrics) float64) gauge {
	return gauge{
		desc:  prometheus.NewDesc(prometheus.BuildFQName("ydoc", "store", name), help, nil, nil),
		kind:  kind,
		value: value,
	}
}

func NewCollector(s *Store) *Collector {
	return &Collector{
		store: s,
		gauges: []gauge{
			newGauge("compactions_total", "Compactions performed by pebble",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.Count) }),
			newGauge("compaction_debt_bytes", "Estimated bytes left to compact",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.EstimatedDebt) }),
			newGauge("compaction_in_progress_bytes", "Bytes being compacted",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.InProgressBytes) }),
			newGauge("memtable_size_bytes", "Size of the memtables",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.Size) }),
			newGauge("memtables", "Number of memtables",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.Count) }),
			newGauge("wal_files", "Live WAL files",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.Files) }),
			newGauge("wal_size_bytes", "Size of live WAL data",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.Size) }),
			newGauge("wal_bytes_in_total", "Logical bytes written to the WAL",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesIn) }),
			newGauge("wal_bytes_written_total", "Physical bytes written to the WAL",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesWritten) }),
		},
		cached: prometheus.NewDesc(prometheus.BuildFQName("ydoc", "store", "cached_vectors"),
			"State vectors held decoded in memory", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
	ch <- c.cached
}

// Collect reports nothing but the cache once the store is closed.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.cached, prometheus.GaugeValue, float64(c.store.vectors.Len()))
	c.store.lock.RLock()
	var m *pebble.Metrics
	if c.store.db != nil {
		m = c.store.db.Metrics()
	}
	c.store.lock.RUnlock()
	if m == nil {
		return
	}
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, g.kind, g.value(m))
	}
}

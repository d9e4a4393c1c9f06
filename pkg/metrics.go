package dfsblockcache

// metrics.go is a thin abstraction over Prometheus so the block cache can be
// used with or without metrics. When the caller passes a *prometheus.Registry
// via WithMetrics, labeled collectors are created and registered; otherwise a
// no-op sink is used and the hot path never pays for a label lookup.
//
// Metrics are exported per (table name, extension) pair, mirroring the
// Stats counters in stats.go.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts away the concrete backend (Prometheus vs noop).
type metricsSink interface {
	incHit(table string, ext ExtTag)
	incMiss(table string, ext ExtTag)
	incEvict(table string, ext ExtTag)
	setLiveBytes(table string, ext ExtTag, value int64)
}

type noopMetrics struct{}

func (noopMetrics) incHit(string, ExtTag)              {}
func (noopMetrics) incMiss(string, ExtTag)             {}
func (noopMetrics) incEvict(string, ExtTag)            {}
func (noopMetrics) setLiveBytes(string, ExtTag, int64) {}

type promMetrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
	liveBytes *prometheus.GaugeVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	labels := []string{"table", "ext"}
	pm := &promMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dfsblockcache",
			Name:      "hits_total",
			Help:      "Number of block cache hits.",
		}, labels),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dfsblockcache",
			Name:      "misses_total",
			Help:      "Number of block cache misses.",
		}, labels),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dfsblockcache",
			Name:      "evictions_total",
			Help:      "Number of entries ghosted by the clock evictor.",
		}, labels),
		liveBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dfsblockcache",
			Name:      "live_bytes",
			Help:      "Bytes currently charged against the table's budget.",
		}, labels),
	}
	reg.MustRegister(pm.hits, pm.misses, pm.evictions, pm.liveBytes)
	return pm
}

func (m *promMetrics) incHit(table string, ext ExtTag) {
	m.hits.WithLabelValues(table, ext.String()).Inc()
}
func (m *promMetrics) incMiss(table string, ext ExtTag) {
	m.misses.WithLabelValues(table, ext.String()).Inc()
}
func (m *promMetrics) incEvict(table string, ext ExtTag) {
	m.evictions.WithLabelValues(table, ext.String()).Inc()
}
func (m *promMetrics) setLiveBytes(table string, ext ExtTag, value int64) {
	m.liveBytes.WithLabelValues(table, ext.String()).Set(float64(value))
}

// newMetricsSink picks the backend: noop if reg is nil, Prometheus otherwise.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}

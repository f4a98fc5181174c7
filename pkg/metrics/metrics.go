// Package metrics defines the Prometheus collectors the admin surface
// exposes: request counts/latency for the GETFILE pipeline and a
// segment pool occupancy gauge, following the naming conventions
// dittofs's own metrics packages use for their NFS/S3 counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every collector this binary registers, so cmd/*
// packages only need one object to plumb into the admin router.
type Registry struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BytesServed     prometheus.Counter
	SegmentsFree    prometheus.GaugeFunc
}

// NewRegistry constructs and registers every collector against reg.
// segmentsFree is polled lazily by the GaugeFunc, so callers pass a
// closure reading the live segment pool rather than a value.
func NewRegistry(reg prometheus.Registerer, segmentsFree func() float64) *Registry {
	m := &Registry{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gfproxy",
			Name:      "requests_total",
			Help:      "Total GETFILE requests handled, by status.",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gfproxy",
			Name:      "request_duration_seconds",
			Help:      "GETFILE request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		BytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gfproxy",
			Name:      "bytes_served_total",
			Help:      "Total bytes streamed to GETFILE clients.",
		}),
	}
	m.SegmentsFree = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "gfproxy",
		Name:      "segments_free",
		Help:      "Number of shared-memory segments currently free.",
	}, segmentsFree)

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.BytesServed, m.SegmentsFree)
	return m
}

// ObserveRequest records one completed request's outcome and latency.
func (m *Registry) ObserveRequest(status string, seconds float64, bytes int) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.WithLabelValues(status).Observe(seconds)
	if bytes > 0 {
		m.BytesServed.Add(float64(bytes))
	}
}

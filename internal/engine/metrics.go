package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the broker-wide counters and histograms that produce,
// consume, and retention cleanup update. Register it once against the process's registry and
// hand the *Metrics to Load.
type Metrics struct {
	RecordsProduced *prometheus.CounterVec
	RecordsConsumed *prometheus.CounterVec
	ProduceErrors   *prometheus.CounterVec
	ProduceLatency  *prometheus.HistogramVec
	SegmentsEvicted *prometheus.CounterVec
}

// NewMetrics builds a fresh Metrics and registers it against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	labels := []string{"topic", "partition"}
	m := &Metrics{
		RecordsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyq_records_produced_total",
			Help: "Number of records successfully appended.",
		}, labels),
		RecordsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyq_records_consumed_total",
			Help: "Number of records returned to consumers.",
		}, labels),
		ProduceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyq_produce_errors_total",
			Help: "Number of produce requests that failed.",
		}, []string{"topic"}),
		ProduceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flyq_produce_latency_seconds",
			Help:    "Time spent appending a record to its partition.",
			Buckets: prometheus.DefBuckets,
		}, labels),
		SegmentsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyq_segments_evicted_total",
			Help: "Number of segments removed by retention cleanup.",
		}, []string{"topic", "partition"}),
	}
	registerer.MustRegister(m.RecordsProduced, m.RecordsConsumed, m.ProduceErrors, m.ProduceLatency, m.SegmentsEvicted)
	return m
}

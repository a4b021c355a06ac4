// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Ingress metrics
	CandidatesReceived *prometheus.CounterVec
	CandidatesDropped  *prometheus.GaugeVec
	ChannelReconnects  *prometheus.GaugeVec
	ChannelSilence     *prometheus.GaugeVec

	// Supervisor metrics
	QueueDepth      prometheus.Gauge
	DecodeOutcomes  *prometheus.CounterVec
	DedupDuplicates prometheus.Counter

	// Classifier metrics
	ClassifierDrops *prometheus.CounterVec

	// Emission metrics
	EmissionsTotal  *prometheus.CounterVec
	EmissionLatency prometheus.Histogram
	EmittedTokens   prometheus.Gauge

	// RPC pool metrics
	PoolEndpointsHealthy prometheus.Gauge
	PoolCallErrors       *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance backed by its own registry, so
// tests can construct as many as they need.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whale_copy"
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CandidatesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "candidates_received_total",
			Help:      "Total number of candidates delivered by each channel",
		}, []string{"channel"}),
		CandidatesDropped: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "candidates_dropped",
			Help:      "Cumulative candidates dropped on sink overflow by channel, mirrored from channel health",
		}, []string{"channel"}),
		ChannelReconnects: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "channel_reconnects",
			Help:      "Cumulative stream reconnects by channel, mirrored from channel health",
		}, []string{"channel"}),
		ChannelSilence: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "channel_silence_seconds",
			Help:      "Seconds since the last message on each channel",
		}, []string{"channel"}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "queue_depth",
			Help:      "Current depth of the ingress-to-supervisor queue",
		}),
		DecodeOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "decode_outcomes_total",
			Help:      "Total number of decode attempts by outcome",
		}, []string{"outcome"}),
		DedupDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "dedup_duplicates_total",
			Help:      "Total number of candidates dropped as duplicates",
		}),

		ClassifierDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "drops_total",
			Help:      "Total number of candidates dropped by classification rule",
		}, []string{"rule"}),

		EmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "total",
			Help:      "Total number of emissions by platform and outcome",
		}, []string{"platform", "status"}),
		EmissionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "latency_seconds",
			Help:      "Signal-to-emission latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		EmittedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "emitted_tokens",
			Help:      "Current size of the persistent emitted-token set",
		}),

		PoolEndpointsHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpcpool",
			Name:      "endpoints_healthy",
			Help:      "Number of RPC endpoints not currently in disable cooldown",
		}),
		PoolCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpcpool",
			Name:      "call_errors_total",
			Help:      "Total number of RPC call errors by endpoint",
		}, []string{"endpoint"}),
	}
}

// Handler returns the HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

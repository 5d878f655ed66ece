// Package metrics provides Prometheus metrics collection for the prediction
// service: decision strategy counts, confidence distributions, per-predictor
// weights and the health of the feed and persistence layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Decision metrics
	Decisions          *prometheus.CounterVec // decisions by strategy
	DecisionConfidence prometheus.Histogram   // final confidence distribution
	RoundLatency       prometheus.Histogram   // predict round duration

	// Learning metrics
	LearnUpdates     prometheus.Counter   // weight updates applied
	PredictorWeights *prometheus.GaugeVec // current weight per predictor

	// Fault metrics
	ProviderFaults    prometheus.Counter // provider errors/panics recovered
	PersistenceErrors prometheus.Counter // failed state upserts

	// Feed metrics
	EventsReceived prometheus.Counter // draw events ingested
	FeedErrors     prometheus.Counter // feed poll/stream errors
	WSReconnects   prometheus.Counter // feed WebSocket reconnections
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Total number of ensemble decisions by strategy",
		}, []string{"strategy"}),
		DecisionConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "decision_confidence",
			Help:    "Distribution of final decision confidence values",
			Buckets: prometheus.LinearBuckets(50, 5, 11),
		}),
		RoundLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "round_latency_seconds",
			Help:    "Duration of one predict round in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		LearnUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "learn_updates_total",
			Help: "Total number of predictor weight updates applied",
		}),
		PredictorWeights: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "predictor_weight",
			Help: "Current adaptive weight per predictor",
		}, []string{"predictor"}),
		ProviderFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "provider_faults_total",
			Help: "Total number of provider faults recovered with the neutral signal",
		}),
		PersistenceErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "persistence_errors_total",
			Help: "Total number of failed predictor state upserts",
		}),
		EventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "events_received_total",
			Help: "Total number of draw events ingested from the feed",
		}),
		FeedErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_errors_total",
			Help: "Total number of feed poll or stream errors",
		}),
		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_reconnects_total",
			Help: "Total number of feed WebSocket reconnections",
		}),
	}
}

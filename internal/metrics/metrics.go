// Package metrics instruments ingestion, persistence, ranking and
// evaluation with Prometheus collectors.
//
// Collectors live on an explicit registry rather than the default one, so
// tests and batch runs get isolated counters. Batch commands dump the
// registry with WriteTextfile for the node-exporter textfile collector.
//
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "simgraph"

type Metrics struct {
	reg *prometheus.Registry

	DecksProcessed *prometheus.CounterVec
	GraphNodes     prometheus.Gauge
	GraphEdges     prometheus.Gauge
	BackendOps     *prometheus.HistogramVec
	BackendErrors  *prometheus.CounterVec

	RankDuration      *prometheus.HistogramVec
	SignalUnavailable *prometheus.CounterVec

	EvalQueries *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		DecksProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decks_processed_total",
				Help:      "Deck records seen by ingestion, by outcome",
			},
			[]string{"outcome"}, // "ingested", "duplicate", "skipped"
		),
		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Cards in the co-occurrence graph",
		}),
		GraphEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Card pairs with at least one co-occurrence",
		}),
		BackendOps: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_operation_duration_seconds",
				Help:      "Duration of graph persistence operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		BackendErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Failed graph persistence operations",
			},
			[]string{"backend", "operation"},
		),
		RankDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rank_duration_seconds",
				Help:      "Time to produce one fused ranking",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"aggregator"},
		),
		SignalUnavailable: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signal_unavailable_total",
				Help:      "Rankings where a weighted signal had no data for the query",
			},
			[]string{"signal"},
		),
		EvalQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eval_queries_total",
				Help:      "Test-set queries by evaluation status",
			},
			[]string{"status"}, // "evaluated", "not_evaluated"
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) DeckOutcome(outcome string) {
	if m == nil {
		return
	}
	m.DecksProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GraphSize(nodes, edges int) {
	if m == nil {
		return
	}
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

// ObserveBackend records the duration of a persistence call and counts it
// as failed when err is non-nil.
func (m *Metrics) ObserveBackend(backend, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.BackendOps.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.BackendErrors.WithLabelValues(backend, op).Inc()
	}
}

func (m *Metrics) ObserveRank(aggregator string, start time.Time) {
	if m == nil {
		return
	}
	m.RankDuration.WithLabelValues(aggregator).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Unavailable(signal string) {
	if m == nil {
		return
	}
	m.SignalUnavailable.WithLabelValues(signal).Inc()
}

func (m *Metrics) EvalQuery(evaluated bool) {
	if m == nil {
		return
	}
	status := "not_evaluated"
	if evaluated {
		status = "evaluated"
	}
	m.EvalQueries.WithLabelValues(status).Inc()
}

// WriteTextfile atomically writes the registry in the Prometheus text
// format. A nil receiver or empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

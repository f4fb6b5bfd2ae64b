package filters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Filter names and decisions used as metric labels.
const (
	filterRateLimit  = "rate_limit"
	filterExpression = "expression"

	decisionGranted = "granted"
	decisionDenied  = "denied"
	decisionError   = "error"
)

// Metrics contains Prometheus metrics for the filters. All methods are
// safe on a nil receiver.
type Metrics struct {
	decisionsTotal *prometheus.CounterVec
	clientsActive  prometheus.Gauge
	storeErrors    prometheus.Counter
}

// NewMetrics registers the filter metrics with registerer. A nil registerer
// uses the Prometheus default registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		decisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "filters",
				Name:      "decisions_total",
				Help:      "Total number of filter decisions by filter and decision",
			},
			[]string{"filter", "decision"},
		),
		clientsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "filters",
				Name:      "rate_limit_clients",
				Help:      "Number of client buckets held by rate limit filters",
			},
		),
		storeErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "filters",
				Name:      "rate_limit_store_errors_total",
				Help:      "Total number of Redis bucket failures answered by the local bucket",
			},
		),
	}
}

func (m *Metrics) observeDecision(filter, decision string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(filter, decision).Inc()
}

func (m *Metrics) addClients(delta int) {
	if m == nil {
		return
	}
	m.clientsActive.Add(float64(delta))
}

func (m *Metrics) incStoreErrors() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

func decisionOf(granted bool) string {
	if granted {
		return decisionGranted
	}
	return decisionDenied
}

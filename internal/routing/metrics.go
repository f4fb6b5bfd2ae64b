package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for routers.
type Metrics struct {
	nodes   *prometheus.GaugeVec
	matches *prometheus.CounterVec
}

// NewMetrics registers router metrics with registerer. A nil registerer
// uses the Prometheus default registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return newMetricsWithFactory(namespace, promauto.With(registerer))
}

func newMetricsWithFactory(namespace string, factory promauto.Factory) *Metrics {
	return &Metrics{
		nodes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "nodes",
				Help:      "Number of trie nodes per router",
			},
			[]string{"router"},
		),
		matches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "matches_total",
				Help:      "Total number of path matches by result",
			},
			[]string{"router", "result"},
		),
	}
}

func (m *Metrics) setNodes(router string, nodes int) {
	m.nodes.WithLabelValues(router).Set(float64(nodes))
}

func (m *Metrics) observeMatch(router, result string) {
	m.matches.WithLabelValues(router, result).Inc()
}

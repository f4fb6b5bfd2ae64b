package health

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for health checks. All methods are
// safe on a nil receiver.
type Metrics struct {
	probesTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics registers the health metrics with registerer. A nil
// registerer uses the Prometheus default registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	m := &Metrics{
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "probes_total",
				Help:      "Total number of health probes served by type",
			},
			[]string{"type"},
		),
		checkStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current health check status (1=healthy, 0.5=degraded, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}

	// Vec types only emit once a label set is used.
	for _, probe := range []string{"health", "liveness", "readiness"} {
		m.probesTotal.WithLabelValues(probe)
	}

	return m
}

func (m *Metrics) observeProbe(probe string) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(probe).Inc()
}

func (m *Metrics) observeCheck(name string, status Status) {
	if m == nil {
		return
	}

	value := 0.0
	switch status {
	case StatusHealthy:
		value = 1
	case StatusDegraded:
		value = 0.5
	}
	m.checkStatus.WithLabelValues(name).Set(value)
}

package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rafaelDom/TestJuridoc/internal/routing"
)

// Dispatch outcomes and step labels.
const (
	outcomeOK    = "ok"
	outcomeError = "error"

	resultGranted = "granted"
	resultDenied  = "denied"
)

// Metrics contains Prometheus metrics for the dispatcher and its routers.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	stepsTotal       *prometheus.CounterVec
	routing          *routing.Metrics
}

// NewMetrics registers dispatcher and router metrics with registerer. A nil
// registerer uses the Prometheus default registerer. Create it once per
// registerer and share it between rebuilt applications.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "application",
				Name:      "dispatch_total",
				Help:      "Total number of dispatched requests by outcome",
			},
			[]string{"outcome"},
		),
		dispatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "application",
				Name:      "dispatch_duration_seconds",
				Help:      "Request dispatch duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "application",
				Name:      "dispatch_steps_total",
				Help:      "Total number of filter and processor steps by result",
			},
			[]string{"phase", "result"},
		),
		routing: routing.NewMetrics(namespace, registerer),
	}
}

// Routing returns the router metrics.
func (m *Metrics) Routing() *routing.Metrics {
	if m == nil {
		return nil
	}
	return m.routing
}

func (m *Metrics) observeDispatch(err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
	m.dispatchDuration.Observe(duration.Seconds())
}

func (m *Metrics) observeStep(kind Kind, granted bool) {
	if m == nil {
		return
	}
	result := resultDenied
	if granted {
		result = resultGranted
	}
	m.stepsTotal.WithLabelValues(kind.String(), result).Inc()
}

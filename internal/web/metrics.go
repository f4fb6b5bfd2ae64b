package web

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Socket error types.
const (
	socketErrorUpgrade = "upgrade"
	socketErrorFrame   = "frame"
	socketErrorWrite   = "write"
)

// Metrics contains Prometheus metrics for the HTTP and WebSocket services.
// All methods are safe on a nil receiver.
type Metrics struct {
	requestsTotal         *prometheus.CounterVec
	requestDuration       *prometheus.HistogramVec
	recoveriesTotal       *prometheus.CounterVec
	connectionsTotal      prometheus.Counter
	connectionsActive     prometheus.Gauge
	messagesReceivedTotal prometheus.Counter
	messagesSentTotal     prometheus.Counter
	socketErrorsTotal     *prometheus.CounterVec
	connectionDuration    prometheus.Histogram
}

// NewMetrics registers the web metrics with registerer. A nil registerer
// uses the Prometheus default registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		recoveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "exception_dispatch_total",
				Help:      "Total number of failed dispatches answered through the exception path",
			},
			[]string{"service"},
		),
		connectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "connections_total",
				Help:      "Total number of WebSocket connections established",
			},
		),
		connectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "connections_active",
				Help:      "Number of currently active WebSocket connections",
			},
		),
		messagesReceivedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "messages_received_total",
				Help:      "Total number of WebSocket frames received from clients",
			},
		),
		messagesSentTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "messages_sent_total",
				Help:      "Total number of WebSocket frames sent to clients",
			},
		),
		socketErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "errors_total",
				Help:      "Total number of WebSocket errors by type",
			},
			[]string{"error_type"},
		),
		connectionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "connection_duration_seconds",
				Help:      "Duration of WebSocket connections in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
			},
		),
	}
}

func (m *Metrics) observeRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) observeRecovery(service string) {
	if m == nil {
		return
	}
	m.recoveriesTotal.WithLabelValues(service).Inc()
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) connectionClosed(duration time.Duration) {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
	m.connectionDuration.Observe(duration.Seconds())
}

func (m *Metrics) messageReceived() {
	if m == nil {
		return
	}
	m.messagesReceivedTotal.Inc()
}

func (m *Metrics) messageSent() {
	if m == nil {
		return
	}
	m.messagesSentTotal.Inc()
}

func (m *Metrics) socketError(errorType string) {
	if m == nil {
		return
	}
	m.socketErrorsTotal.WithLabelValues(errorType).Inc()
}

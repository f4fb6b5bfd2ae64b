package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is the metric namespace used when none is configured.
const DefaultNamespace = "juridoc"

// Metrics owns the Prometheus registry shared by all dispatcher components.
// Domain collectors (router, dispatcher, services) register into it through
// Registerer.
type Metrics struct {
	namespace string
	buildInfo *prometheus.GaugeVec
	startTime prometheus.Gauge
	registry  *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the dispatcher",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the process in unix seconds",
		},
	)

	m.registry.MustRegister(
		m.buildInfo,
		m.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.startTime.SetToCurrentTime()

	return m
}

// Namespace returns the metric namespace.
func (m *Metrics) Namespace() string {
	return m.namespace
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Registerer returns the registerer domain collectors should use.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	Bind         string
	Port         int
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns a MetricsServerConfig with default values.
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Port:         9090,
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer serves the registry over HTTP together with /health and
// any handler added with Handle.
type MetricsServer struct {
	config   MetricsServerConfig
	metrics  *Metrics
	handlers map[string]http.Handler
	logger   Logger
	server   *http.Server
	addr     string
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewMetricsServer creates a new metrics server. Zero config fields are
// filled from DefaultMetricsServerConfig.
func NewMetricsServer(metrics *Metrics, cfg MetricsServerConfig, logger Logger) *MetricsServer {
	defaults := DefaultMetricsServerConfig()
	if cfg.Path == "" {
		cfg.Path = defaults.Path
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if logger == nil {
		logger = NopLogger()
	}

	return &MetricsServer{
		config:   cfg,
		metrics:  metrics,
		handlers: make(map[string]http.Handler),
		logger:   logger,
	}
}

// Handle serves handler on pattern. It must be called before Start and
// replaces the built-in /health endpoint when pattern is /health.
func (s *MetricsServer) Handle(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[pattern] = handler
}

// Start binds the listener and serves in the background.
func (s *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{
		ErrorLog:            &promErrorLogger{logger: s.logger},
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: 10,
		Timeout:             s.config.WriteTimeout,
		EnableOpenMetrics:   true,
	}))

	s.mu.Lock()
	for pattern, handler := range s.handlers {
		mux.Handle(pattern, handler)
	}
	_, custom := s.handlers["/health"]
	s.mu.Unlock()

	if !custom {
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("OK")); err != nil {
				s.logger.Debug("failed to write health response", Error(err))
			}
		})
	}

	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler:           mux,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}
	server := s.server
	s.mu.Unlock()

	s.logger.Info("metrics server started",
		String("address", s.addr),
		String("path", s.config.Path),
	)

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		server := s.server
		s.mu.Unlock()
		if server != nil {
			stopErr = server.Shutdown(ctx)
		}
	})
	return stopErr
}

// promErrorLogger adapts Logger to the promhttp.Logger interface.
type promErrorLogger struct {
	logger Logger
}

// Println implements promhttp.Logger.
func (l *promErrorLogger) Println(v ...interface{}) {
	l.logger.Error(fmt.Sprint(v...))
}

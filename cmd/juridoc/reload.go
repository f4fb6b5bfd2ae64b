package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rafaelDom/TestJuridoc/internal/config"
	"github.com/rafaelDom/TestJuridoc/internal/health"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
)

// Reload results used as metric labels.
const (
	reloadSuccess = "success"
	reloadError   = "error"
)

// reloadMetrics holds Prometheus metrics for configuration reloads.
type reloadMetrics struct {
	reloadTotal       *prometheus.CounterVec
	reloadDuration    prometheus.Histogram
	reloadLastSuccess prometheus.Gauge
}

func newReloadMetrics(m *observability.Metrics) *reloadMetrics {
	factory := promauto.With(m.Registerer())

	return &reloadMetrics{
		reloadTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: m.Namespace(),
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"result"},
		),
		reloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: m.Namespace(),
				Name:      "config_reload_duration_seconds",
				Help:      "Duration of configuration reload operations",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		reloadLastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: m.Namespace(),
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of the last successful configuration reload",
			},
		),
	}
}

func (m *reloadMetrics) observe(result string, duration time.Duration) {
	m.reloadTotal.WithLabelValues(result).Inc()
	m.reloadDuration.Observe(duration.Seconds())
	if result == reloadSuccess {
		m.reloadLastSuccess.SetToCurrentTime()
	}
}

// supervisor owns the running runtime and swaps it on reload.
type supervisor struct {
	deps    *dependencies
	metrics *reloadMetrics
	logger  observability.Logger

	mu      sync.Mutex
	current *runtime
	config  *config.Config
}

func newSupervisor(cfg *config.Config, deps *dependencies) (*supervisor, error) {
	rt, err := buildRuntime(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &supervisor{
		deps:    deps,
		metrics: newReloadMetrics(deps.metrics),
		logger:  deps.logger,
		current: rt,
		config:  cfg,
	}, nil
}

// start starts the current runtime.
func (s *supervisor) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.current.start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	return nil
}

// reload builds a runtime from cfg and replaces the current one. The
// server port is reused, so the old runtime stops before the new one
// starts. When the new runtime fails to start the old one is restarted.
func (s *supervisor) reload(ctx context.Context, cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	next, err := buildRuntime(cfg, s.deps)
	if err != nil {
		s.metrics.observe(reloadError, time.Since(start))
		return fmt.Errorf("failed to build application: %w", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout(s.config))
	defer cancel()

	previous := s.current
	if err := previous.stop(stopCtx); err != nil {
		s.logger.Warn("failed to stop previous application", observability.Error(err))
	}

	if err := next.start(ctx); err != nil {
		next.release()
		if restoreErr := previous.start(ctx); restoreErr != nil {
			s.logger.Error("failed to restore previous application", observability.Error(restoreErr))
		}
		s.metrics.observe(reloadError, time.Since(start))
		return fmt.Errorf("failed to start application: %w", err)
	}

	previous.release()
	s.current = next
	s.config = cfg
	s.metrics.observe(reloadSuccess, time.Since(start))

	s.logger.Info("application reloaded",
		observability.String("address", next.Addr()),
		observability.Duration("duration", time.Since(start)),
	)

	return nil
}

// stop stops and releases the current runtime.
func (s *supervisor) stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.current.stop(ctx)
	s.current.release()
	return err
}

// check reports whether the current runtime is serving.
func (s *supervisor) check() health.Check {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.app.Started() {
		return health.Check{Status: health.StatusHealthy}
	}
	return health.Check{
		Status:  health.StatusUnhealthy,
		Message: "application is " + s.current.app.State().String(),
	}
}

// addr returns the server address of the current runtime.
func (s *supervisor) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Addr()
}

// startConfigWatcher reloads the supervisor whenever the file at
// configPath changes. It returns nil when there is nothing to watch.
func startConfigWatcher(
	ctx context.Context,
	s *supervisor,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, func(cfg *config.Config) {
		logger.Info("configuration changed, reloading")
		if err := s.reload(ctx, cfg); err != nil {
			logger.Error("failed to reload configuration", observability.Error(err))
		}
	}, config.WithLogger(logger.Named("config")))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	return watcher
}

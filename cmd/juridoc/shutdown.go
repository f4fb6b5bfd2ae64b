package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rafaelDom/TestJuridoc/internal/config"
	"github.com/rafaelDom/TestJuridoc/internal/health"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
)

// run starts juridoc and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, configPath string, logger observability.Logger) error {
	metrics := initMetrics(cfg.Observability.Metrics)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	observability.SetOTelLogger(logger.Named("otel"))
	tracer, err := initTracer(cfg.Observability.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	deps := newDependencies(logger, metrics, tracer)

	s, err := newSupervisor(cfg, deps)
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		return err
	}

	if err := s.start(ctx); err != nil {
		s.current.release()
		_ = tracer.Shutdown(context.Background())
		return err
	}

	checker := health.NewChecker(version, health.WithMetrics(health.NewMetrics(metrics.Namespace(), metrics.Registerer())))
	checker.RegisterCheck("application", s.check)

	metricsServer := startMetricsServer(ctx, cfg.Observability.Metrics, metrics, checker, logger)
	watcher := startConfigWatcher(ctx, s, configPath, logger)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	waitForShutdown(cfg, s, watcher, metricsServer, tracer, logger)
	return nil
}

// waitForShutdown stops every component within the shutdown timeout.
func waitForShutdown(
	cfg *config.Config,
	s *supervisor,
	watcher *config.Watcher,
	metricsServer *observability.MetricsServer,
	tracer *observability.Tracer,
	logger observability.Logger,
) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := s.stop(shutdownCtx); err != nil {
		logger.Error("failed to stop application gracefully", observability.Error(err))
	}

	if metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("juridoc stopped")
}

// shutdownTimeout returns the configured shutdown timeout or its default.
func shutdownTimeout(cfg *config.Config) time.Duration {
	if timeout := cfg.Server.ShutdownTimeout.Duration(); timeout > 0 {
		return timeout
	}
	return config.DefaultShutdownTimeout
}

// initMetrics creates the process registry.
func initMetrics(cfg *config.MetricsConfig) *observability.Metrics {
	namespace := observability.DefaultNamespace
	if cfg != nil && cfg.Namespace != "" {
		namespace = cfg.Namespace
	}
	return observability.NewMetrics(namespace)
}

// initTracer initializes the tracer.
func initTracer(cfg *config.TracingConfig) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "juridoc",
		SamplingRate: 1.0,
	}

	if cfg != nil {
		tracerCfg.Enabled = cfg.Enabled
		tracerCfg.OTLPEndpoint = cfg.Endpoint
		if cfg.SamplingRate > 0 {
			tracerCfg.SamplingRate = cfg.SamplingRate
		}
		if cfg.ServiceName != "" {
			tracerCfg.ServiceName = cfg.ServiceName
		}
	}

	return observability.NewTracer(tracerCfg)
}

// startMetricsServer starts the metrics server, with the health endpoints
// of checker, if enabled.
func startMetricsServer(
	ctx context.Context,
	cfg *config.MetricsConfig,
	metrics *observability.Metrics,
	checker *health.Checker,
	logger observability.Logger,
) *observability.MetricsServer {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	serverCfg := observability.DefaultMetricsServerConfig()
	serverCfg.Bind = cfg.Bind
	if cfg.Port != 0 {
		serverCfg.Port = cfg.Port
	}
	if cfg.Path != "" {
		serverCfg.Path = cfg.Path
	}

	server := observability.NewMetricsServer(metrics, serverCfg, logger.Named("metrics"))
	if checker != nil {
		checker.Register(server)
	}
	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start metrics server", observability.Error(err))
		return nil
	}
	return server
}

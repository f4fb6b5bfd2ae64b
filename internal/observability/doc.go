// Package observability provides logging, metrics, and tracing
// functionality for the dispatcher and its services.
//
// Structured logging is done via zap, metrics are collected in a
// dedicated Prometheus registry that the routing and application
// packages register their collectors into, and dispatch spans are
// exported through OpenTelemetry with an optional OTLP gRPC exporter.
//
// # Logging
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request dispatched",
//	    observability.String("path", "/users/42"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
//	metrics := observability.NewMetrics("juridoc")
//	server := observability.NewMetricsServer(metrics, observability.MetricsServerConfig{Port: 9090}, logger)
//
// # Tracing
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{Enabled: true, ServiceName: "juridoc"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
package observability

// Package health provides the liveness and readiness endpoints served next
// to the metrics.
//
// Readiness aggregates registered checks: one unhealthy check makes the
// whole response unhealthy and answers 503.
//
//	checker := health.NewChecker(version, health.WithMetrics(metrics))
//	checker.RegisterCheck("application", func() health.Check {
//	    return health.Check{Status: health.StatusHealthy}
//	})
//	checker.Register(mux)
package health

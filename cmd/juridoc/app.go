package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/config"
	"github.com/rafaelDom/TestJuridoc/internal/filters"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
	"github.com/rafaelDom/TestJuridoc/internal/web"
)

// dependencies are created once per process and shared by every runtime
// built from a configuration. Collectors can only be registered once per
// registry, so reloads reuse them.
type dependencies struct {
	logger        observability.Logger
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	appMetrics    *application.Metrics
	webMetrics    *web.Metrics
	filterMetrics *filters.Metrics
}

func newDependencies(
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) *dependencies {
	namespace := metrics.Namespace()
	registerer := metrics.Registerer()

	return &dependencies{
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		appMetrics:    application.NewMetrics(namespace, registerer),
		webMetrics:    web.NewMetrics(namespace, registerer),
		filterMetrics: filters.NewMetrics(namespace, registerer),
	}
}

// stopper is implemented by handlers owning background goroutines.
type stopper interface {
	Stop()
}

// runtime is one dispatcher with its services, built from a configuration.
type runtime struct {
	app    *web.Main
	server *web.Server
	socket *web.Socket

	mu       sync.Mutex
	stoppers []stopper
}

// buildRuntime wires the filters, the handlers and the services described
// by cfg. Nothing is listening until start.
func buildRuntime(cfg *config.Config, deps *dependencies) (*runtime, error) {
	settings, err := routing.NewSettings(cfg.Routing.Separator, cfg.Routing.Variable)
	if err != nil {
		return nil, err
	}

	rt := &runtime{}

	app, err := web.NewMain(
		application.WithSettings(settings),
		application.WithInjector(rt.inject),
		application.WithLogger(deps.logger.Named("application")),
		application.WithMetrics(deps.appMetrics),
		application.WithTracer(deps.tracer.Tracer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	rt.app = app

	if err := rt.addFilters(cfg.Filters, deps); err != nil {
		rt.release()
		return nil, err
	}

	if err := rt.addHandlers(cfg.Files); err != nil {
		rt.release()
		return nil, err
	}

	if err := rt.addServices(cfg, deps); err != nil {
		rt.release()
		return nil, err
	}

	return rt, nil
}

// inject constructs instances through the default injector and keeps
// the ones that must be stopped with the runtime.
func (rt *runtime) inject(t *application.Type, args ...any) (any, error) {
	instance, err := application.DefaultInjector(t, args...)
	if err != nil {
		return nil, err
	}

	if s, ok := instance.(stopper); ok {
		rt.mu.Lock()
		rt.stoppers = append(rt.stoppers, s)
		rt.mu.Unlock()
	}

	return instance, nil
}

func (rt *runtime) addFilters(cfg config.FiltersConfig, deps *dependencies) error {
	opts := []any{
		filters.WithLogger(deps.logger.Named("filters")),
		filters.WithMetrics(deps.filterMetrics),
	}

	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		path := rl.Path
		if path == "" {
			path = "/"
		}
		settings := filters.RateLimitSettings{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
			PerClient:         rl.PerClient,
			ClientTTL:         rl.ClientTTL.Duration(),
		}
		if r := rl.Redis; r != nil {
			settings.Redis = &filters.RedisSettings{
				Address:          r.Address,
				Password:         r.Password,
				DB:               r.DB,
				Prefix:           r.Prefix,
				Timeout:          r.Timeout.Duration(),
				FailureThreshold: r.FailureThreshold,
				OpenTimeout:      r.OpenTimeout.Duration(),
			}
		}
		t := filters.RateLimitType(application.Action{Path: path})
		if err := rt.app.AddHandler(t, append([]any{settings}, opts...)...); err != nil {
			return fmt.Errorf("failed to add rate limit: %w", err)
		}
	}

	for i, expr := range cfg.Expressions {
		constraint, err := compileConstraints(expr.Constraints)
		if err != nil {
			return fmt.Errorf("filters.expressions[%d]: %w", i, err)
		}
		action := application.Action{
			Path:       expr.Path,
			Exact:      expr.Exact,
			Constraint: constraint,
		}
		settings := filters.ExpressionSettings{
			Expression: expr.Expression,
			Message:    expr.Message,
		}
		if err := rt.app.AddHandler(filters.ExpressionType(action), append([]any{settings}, opts...)...); err != nil {
			return fmt.Errorf("failed to add expression filter %s: %w", expr.Path, err)
		}
	}

	return nil
}

// addHandlers installs the file handler, or the JSON handler when files
// are disabled.
func (rt *runtime) addHandlers(cfg config.FilesConfig) error {
	if !cfg.Enabled {
		return rt.app.AddHandler(web.JSONHandlerType)
	}

	return rt.app.AddHandler(web.FileHandlerType, web.FileSettings{
		Directory: cfg.Directory,
		Index:     cfg.Index,
		Strict:    cfg.Strict,
		Types:     cfg.Types,
	})
}

func (rt *runtime) addServices(cfg *config.Config, deps *dependencies) error {
	rt.server = web.NewServer(web.ServerConfig{
		Bind:               cfg.Server.Bind,
		Port:               cfg.Server.Port,
		Debug:              cfg.Server.Debug,
		ReadTimeout:        cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:       cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:        cfg.Server.IdleTimeout.Duration(),
		MaxHeaderBytes:     cfg.Server.MaxHeaderBytes,
		MaxRequestBodySize: cfg.Server.MaxRequestBodySize,
	},
		web.WithServerLogger(deps.logger.Named("server")),
		web.WithServerMetrics(deps.webMetrics),
	)

	// The socket goes first so that Stop closes hijacked connections
	// before the server drains.
	if cfg.Socket.Enabled {
		rt.socket = web.NewSocket(web.SocketConfig{
			Path:           cfg.Socket.Path,
			Debug:          cfg.Server.Debug,
			ReadLimit:      cfg.Socket.ReadLimit,
			WriteTimeout:   cfg.Socket.WriteTimeout.Duration(),
			AllowedOrigins: cfg.Socket.AllowedOrigins,
		},
			web.WithSocketLogger(deps.logger.Named("socket")),
			web.WithSocketMetrics(deps.webMetrics),
		)
		rt.server.Mount(rt.socket.Path(), rt.socket)
		if err := rt.app.AddServiceInstance(rt.socket); err != nil {
			return err
		}
	}

	return rt.app.AddServiceInstance(rt.server)
}

// start starts every service of the runtime.
func (rt *runtime) start(ctx context.Context) error {
	return rt.app.Start(ctx)
}

// stop stops the services. A stopped runtime can be started again.
func (rt *runtime) stop(ctx context.Context) error {
	if err := rt.app.Stop(ctx); err != nil && !errors.Is(err, application.ErrNotStarted) {
		return err
	}
	return nil
}

// release stops the background work of the handlers. The runtime cannot
// be started afterwards.
func (rt *runtime) release() {
	rt.mu.Lock()
	stoppers := rt.stoppers
	rt.stoppers = nil
	rt.mu.Unlock()

	for _, s := range stoppers {
		s.Stop()
	}
}

// Addr returns the address of the HTTP server once started.
func (rt *runtime) Addr() string {
	return rt.server.Addr()
}

func compileConstraints(patterns map[string]string) (routing.Constraint, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	constraint := make(routing.Constraint, len(patterns))
	for name, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid constraint %s: %w", name, err)
		}
		constraint[name] = re
	}
	return constraint, nil
}

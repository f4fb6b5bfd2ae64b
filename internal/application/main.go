package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/observable"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// State represents the application state.
type State int32

const (
	// StateStopped indicates the application accepts handlers and services.
	StateStopped State = iota
	// StateStarting indicates services are being started.
	StateStarting
	// StateRunning indicates services feed the dispatcher.
	StateRunning
	// StateStopping indicates services are being stopped.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Router names used in logs and metrics.
const (
	filtersRouter    = "filters"
	processorsRouter = "processors"
)

// Main is the dispatcher.
type Main[I, O any] struct {
	settings   routing.Settings
	registry   *Registry
	injector   Injector
	logger     observability.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	hooks      []ProcessHook[I, O]
	filters    *routing.Router[*Request[I, O]]
	processors *routing.Router[*Request[I, O]]
	services   []Service[I, O]
	state      atomic.Int32
	mu         sync.Mutex

	receiveObserver *observable.Observer[*Request[I, O]]
	sendObserver    *observable.Observer[*Request[I, O]]
}

// options holds the settings applied by Option values.
type options struct {
	settings *routing.Settings
	registry *Registry
	injector Injector
	logger   observability.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	hooks    []any
}

// Option is a functional option for configuring the application.
type Option func(*options)

// WithSettings sets the path tokenizer settings.
func WithSettings(settings routing.Settings) Option {
	return func(o *options) {
		o.settings = &settings
	}
}

// WithRegistry sets the type registry.
func WithRegistry(registry *Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithInjector sets the instance constructor.
func WithInjector(injector Injector) Option {
	return func(o *options) {
		o.injector = injector
	}
}

// WithLogger sets the logger for the application.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics enables dispatcher and router metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithProcessHook appends a hook around processor invocation. Hooks added
// first run outermost.
func WithProcessHook[I, O any](hook ProcessHook[I, O]) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

// New creates a stopped application.
func New[I, O any](opts ...Option) (*Main[I, O], error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	settings := routing.DefaultSettings()
	if o.settings != nil {
		settings = *o.settings
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.injector == nil {
		o.injector = DefaultInjector
	}
	if o.logger == nil {
		o.logger = observability.NopLogger()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("application")
	}

	hooks := make([]ProcessHook[I, O], 0, len(o.hooks))
	for i, h := range o.hooks {
		hook, ok := h.(ProcessHook[I, O])
		if !ok || hook == nil {
			return nil, util.NewConfigError(fmt.Sprintf("hooks[%d]", i), "process hook does not match the application types")
		}
		hooks = append(hooks, hook)
	}

	filters, err := routing.NewRouter[*Request[I, O]](settings,
		routing.WithName(filtersRouter),
		routing.WithLogger(o.logger),
		routing.WithMetrics(o.metrics.Routing()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter router: %w", err)
	}

	processors, err := routing.NewRouter[*Request[I, O]](settings,
		routing.WithName(processorsRouter),
		routing.WithLogger(o.logger),
		routing.WithMetrics(o.metrics.Routing()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor router: %w", err)
	}

	a := &Main[I, O]{
		settings:   settings,
		registry:   o.registry,
		injector:   o.injector,
		logger:     o.logger,
		metrics:    o.metrics,
		tracer:     o.tracer,
		hooks:      hooks,
		filters:    filters,
		processors: processors,
	}

	a.receiveObserver = observable.NewObserver(a.Dispatch)
	a.sendObserver = observable.NewObserver(a.sent)
	a.state.Store(int32(StateStopped))

	return a, nil
}

// Settings returns the path tokenizer settings.
func (a *Main[I, O]) Settings() routing.Settings {
	return a.settings
}

// Registry returns the type registry.
func (a *Main[I, O]) Registry() *Registry {
	return a.registry
}

// State returns the current application state.
func (a *Main[I, O]) State() State {
	return State(a.state.Load())
}

// Started reports whether the application is running.
func (a *Main[I, O]) Started() bool {
	return a.State() == StateRunning
}

// AddHandler constructs one instance of t and routes its declared methods.
func (a *Main[I, O]) AddHandler(t *Type, args ...any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State() != StateStopped {
		return ErrAddWhileStarted
	}

	t, err := a.registry.resolve(t)
	if err != nil {
		return err
	}

	instance, err := a.injector(t, args...)
	if err != nil {
		return fmt.Errorf("failed to construct handler %s: %w", t.Name, err)
	}

	filters := make([]routing.Route[*Request[I, O]], 0, len(t.Routes))
	processors := make([]routing.Route[*Request[I, O]], 0, len(t.Routes))

	for _, d := range t.Routes {
		switch d.Kind {
		case KindFilter:
			fn, err := bindFilter[I, O](t, instance, d.Method)
			if err != nil {
				return err
			}
			filters = append(filters, routeOf(d.Action, KindFilter, a.filterObserver(fn)))
		case KindProcessor:
			fn, err := bindProcessor[I, O](t, instance, d.Method)
			if err != nil {
				return err
			}
			processors = append(processors, routeOf(d.Action, KindProcessor, a.processObserver(fn)))
		}
	}

	if err := a.filters.Add(filters...); err != nil {
		return fmt.Errorf("failed to add filters of %s: %w", t.Name, err)
	}
	if err := a.processors.Add(processors...); err != nil {
		return fmt.Errorf("failed to add processors of %s: %w", t.Name, err)
	}

	a.logger.Debug("handler added",
		observability.String("type", t.Name),
		observability.Int("filters", len(filters)),
		observability.Int("processors", len(processors)),
	)

	return nil
}

// AddService constructs t, which must implement Service, and keeps it for
// Start and Stop.
func (a *Main[I, O]) AddService(t *Type, args ...any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State() != StateStopped {
		return ErrAddWhileStarted
	}

	t, err := a.registry.resolve(t)
	if err != nil {
		return err
	}

	instance, err := a.injector(t, args...)
	if err != nil {
		return fmt.Errorf("failed to construct service %s: %w", t.Name, err)
	}

	service, ok := instance.(Service[I, O])
	if !ok {
		return util.NewConfigError("type."+t.Name, "type does not implement the service contract")
	}

	a.services = append(a.services, service)
	a.logger.Debug("service added", observability.String("type", t.Name))

	return nil
}

// AddServiceInstance keeps an already constructed service.
func (a *Main[I, O]) AddServiceInstance(service Service[I, O]) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State() != StateStopped {
		return ErrAddWhileStarted
	}
	if service == nil {
		return util.NewConfigError("service", "service is required")
	}

	a.services = append(a.services, service)
	return nil
}

// Start subscribes the dispatcher to every service and starts them. When a
// service fails to start, the services started before it are stopped again.
func (a *Main[I, O]) Start(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	a.mu.Lock()
	services := append([]Service[I, O](nil), a.services...)
	a.mu.Unlock()

	for i, service := range services {
		service.OnReceive().Subscribe(a.receiveObserver)
		service.OnSend().Subscribe(a.sendObserver)

		if err := service.Start(ctx); err != nil {
			a.detach(service)
			for j := i - 1; j >= 0; j-- {
				a.detach(services[j])
				if stopErr := services[j].Stop(ctx); stopErr != nil {
					a.logger.Warn("failed to stop service after start failure", observability.Error(stopErr))
				}
			}
			a.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start service: %w", err)
		}
	}

	a.state.Store(int32(StateRunning))
	a.logger.Info("application started", observability.Int("services", len(services)))

	return nil
}

// Stop unsubscribes the dispatcher from every service and stops them.
func (a *Main[I, O]) Stop(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrNotStarted
	}

	a.mu.Lock()
	services := append([]Service[I, O](nil), a.services...)
	a.mu.Unlock()

	var errs []error
	for _, service := range services {
		a.detach(service)
		if err := service.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.state.Store(int32(StateStopped))
	a.logger.Info("application stopped")

	if len(errs) > 0 {
		return fmt.Errorf("failed to stop services: %w", errors.Join(errs...))
	}
	return nil
}

func (a *Main[I, O]) detach(service Service[I, O]) {
	service.OnReceive().Unsubscribe(a.receiveObserver)
	service.OnSend().Unsubscribe(a.sendObserver)
}

func (a *Main[I, O]) sent(ctx context.Context, request *Request[I, O]) error {
	a.logger.WithContext(ctx).Debug("response sent", observability.String("path", request.Path()))
	return nil
}

func routeOf[I, O any](action Action, kind Kind, observer *observable.Observer[*Match[I, O]]) routing.Route[*Request[I, O]] {
	return routing.Route[*Request[I, O]]{
		Path:        action.Path,
		Exact:       action.exact(kind),
		Constraint:  action.Constraint,
		Environment: action.Environment,
		OnMatch:     observer,
	}
}

package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/observable"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// Dispatch runs request through the filter and processor pipelines. Each
// step matches the filters again, rebuilds the request environment with
// the environment given at construction taking precedence, runs one filter
// and then one processor. It returns when the processor pipeline is empty
// or a handler fails.
func (a *Main[I, O]) Dispatch(ctx context.Context, request *Request[I, O]) error {
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "application.dispatch",
		trace.WithAttributes(attribute.String("route.path", request.Path())),
	)
	defer span.End()
	ctx = observability.WithTraceContext(ctx, span)

	err := a.dispatch(ctx, request, span)

	a.metrics.observeDispatch(err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.WithContext(ctx).Error("dispatch failed",
			observability.String("path", request.Path()),
			observability.Error(err),
		)
		return util.NewDispatchError(request.Path(), err)
	}

	return nil
}

func (a *Main[I, O]) dispatch(ctx context.Context, request *Request[I, O], span trace.Span) error {
	processor := a.processors.Match(request.Path(), request)
	environment := request.Environment

	span.SetAttributes(
		attribute.String("route.remaining", processor.Remaining()),
		attribute.Bool("route.exact", processor.Exact()),
		attribute.Int("route.processors", processor.Len()),
	)

	for {
		filter := a.filters.Match(request.Path(), request)
		request.Environment = merge(processor.Variables(), environment)
		request.Granted = filter.Len() == 0

		if _, err := filter.Next(ctx); err != nil {
			return err
		}
		if _, err := processor.Next(ctx); err != nil {
			return err
		}
		if processor.Len() == 0 {
			return nil
		}
	}
}

// filterObserver stores the filter decision on the request and continues
// the filter chain when granted.
func (a *Main[I, O]) filterObserver(fn FilterFunc[I, O]) *observable.Observer[*Match[I, O]] {
	return observable.NewObserver(func(ctx context.Context, m *Match[I, O]) error {
		granted, err := fn(ctx, m)
		if err != nil {
			return err
		}

		m.Detail().Granted = granted
		a.metrics.observeStep(KindFilter, granted)

		if granted {
			_, err = m.Next(ctx)
		}
		return err
	})
}

// processObserver runs the hook chain around fn. The innermost call runs fn
// only when the step is granted.
func (a *Main[I, O]) processObserver(fn ProcessFunc[I, O]) *observable.Observer[*Match[I, O]] {
	process := ProcessFunc[I, O](func(ctx context.Context, m *Match[I, O]) error {
		granted := m.Detail().Granted
		a.metrics.observeStep(KindProcessor, granted)
		if !granted {
			return nil
		}
		return fn(ctx, m)
	})

	for i := len(a.hooks) - 1; i >= 0; i-- {
		process = a.hooks[i](process)
	}

	return observable.NewObserver(func(ctx context.Context, m *Match[I, O]) error {
		return process(ctx, m)
	})
}

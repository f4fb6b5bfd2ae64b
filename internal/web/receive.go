package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/observable"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
)

// receiver notifies the receive subject of a service and falls back to the
// exception path when dispatch fails.
type receiver struct {
	service string
	subject *observable.Subject[*Request]
	debug   bool
	logger  observability.Logger
	metrics *Metrics
}

// receive dispatches request. On failure it dispatches a request at
// ExceptionPath exactly once and returns it, so the caller always writes
// the output of the returned request. A dispatch aborted by the request
// context is not retried: the client is gone.
func (r *receiver) receive(ctx context.Context, request *Request) *Request {
	err := r.subject.NotifyAll(ctx, request)
	if err == nil {
		return request
	}

	logger := r.logger.WithContext(ctx)
	if cause := ctx.Err(); cause != nil && errors.Is(err, cause) {
		logger.Debug("dispatch aborted by context",
			observability.String("service", r.service),
			observability.String("path", request.Path()),
			observability.Error(err),
		)
		return request
	}

	logger.Warn("dispatch failed, dispatching exception",
		observability.String("service", r.service),
		observability.String("path", request.Path()),
		observability.Error(err),
	)
	r.metrics.observeRecovery(r.service)

	input := request.Input()
	fallback := NewRequest(ExceptionPath, &Input{
		Method:  input.Method,
		Address: input.Address,
		Headers: input.Headers,
	}, routing.Variables{VariableException: r.describe(err)})

	if err := r.subject.NotifyAll(ctx, fallback); err != nil {
		logger.Error("exception dispatch failed",
			observability.String("service", r.service),
			observability.Error(err),
		)
	}

	return fallback
}

// describe renders err for the exception variable. Debug builds carry the
// stack of the receiving goroutine.
func (r *receiver) describe(err error) string {
	if r.debug {
		return fmt.Sprintf("%+v\n%s", err, debug.Stack())
	}
	return err.Error()
}

// status returns the status to write for out.
func status(out *Output) (int, string) {
	if out.Status == 0 {
		return http.StatusNotImplemented, http.StatusText(http.StatusNotImplemented)
	}
	return out.Status, out.Message
}

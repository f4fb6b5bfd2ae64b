package application

import (
	"context"

	"github.com/rafaelDom/TestJuridoc/internal/observable"
)

// Service produces requests for the dispatcher.
type Service[I, O any] interface {
	// OnReceive is notified with every inbound request.
	OnReceive() *observable.Subject[*Request[I, O]]
	// OnSend is notified after a response was written.
	OnSend() *observable.Subject[*Request[I, O]]
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

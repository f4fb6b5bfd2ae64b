package observable

import "context"

// Pipeline is a Subject whose observers are removed as they are notified.
// The observer is removed before it runs, so a re-entrant notification from
// inside the observer moves on to the next one.
type Pipeline[T any] struct {
	Subject[T]
}

// NewPipeline creates an empty pipeline.
func NewPipeline[T any]() *Pipeline[T] {
	return &Pipeline[T]{}
}

// NotifyFirst removes the front observer and invokes it.
// It is a no-op when the pipeline is empty.
func (p *Pipeline[T]) NotifyFirst(ctx context.Context, value T) error {
	return p.shift().Notify(ctx, value)
}

// NotifyFirstSync is NotifyFirst with a background context.
func (p *Pipeline[T]) NotifyFirstSync(value T) error {
	return p.NotifyFirst(context.Background(), value)
}

// NotifyLast removes the back observer and invokes it.
// It is a no-op when the pipeline is empty.
func (p *Pipeline[T]) NotifyLast(ctx context.Context, value T) error {
	return p.pop().Notify(ctx, value)
}

// NotifyLastSync is NotifyLast with a background context.
func (p *Pipeline[T]) NotifyLastSync(value T) error {
	return p.NotifyLast(context.Background(), value)
}

func (p *Pipeline[T]) shift() *Observer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.observers) == 0 {
		return nil
	}
	o := p.observers[0]
	p.observers[0] = nil
	p.observers = p.observers[1:]
	return o
}

func (p *Pipeline[T]) pop() *Observer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.observers)
	if n == 0 {
		return nil
	}
	o := p.observers[n-1]
	p.observers[n-1] = nil
	p.observers = p.observers[:n-1]
	return o
}

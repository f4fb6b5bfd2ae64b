package observable

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// ObserverFunc is the callback wrapped by an Observer.
type ObserverFunc[T any] func(ctx context.Context, value T) error

// Observer is a subscribable callback. Observers are compared by pointer,
// so the same *Observer must be passed to Unsubscribe.
type Observer[T any] struct {
	fn ObserverFunc[T]
}

// NewObserver wraps fn into an Observer.
func NewObserver[T any](fn ObserverFunc[T]) *Observer[T] {
	return &Observer[T]{fn: fn}
}

// Notify invokes the observer callback. A nil observer is a no-op.
func (o *Observer[T]) Notify(ctx context.Context, value T) error {
	if o == nil || o.fn == nil {
		return nil
	}
	return o.fn(ctx, value)
}

// Subject is an ordered list of observers.
type Subject[T any] struct {
	mu        sync.Mutex
	observers []*Observer[T]
}

// NewSubject creates an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe appends observers in the given order. Nil observers are skipped.
func (s *Subject[T]) Subscribe(observers ...*Observer[T]) *Subject[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range observers {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
	return s
}

// SubscribeSubject appends the observers currently held by other. Later
// changes to other are not reflected in s.
func (s *Subject[T]) SubscribeSubject(other *Subject[T]) *Subject[T] {
	if other == nil {
		return s
	}
	return s.Subscribe(other.Observers()...)
}

// Unsubscribe removes the first occurrence of observer and reports whether
// it was found.
func (s *Subject[T]) Unsubscribe(observer *Observer[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of subscribed observers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Observers returns a copy of the observer list.
func (s *Subject[T]) Observers() []*Observer[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	observers := make([]*Observer[T], len(s.observers))
	copy(observers, s.observers)
	return observers
}

// NotifyAllSync invokes every observer on the calling goroutine and returns
// the first error.
func (s *Subject[T]) NotifyAllSync(value T) error {
	return s.NotifyAll(context.Background(), value)
}

// NotifyAll invokes every observer in registration order, each call
// completing before the next starts. The context is passed through to the
// observers untouched.
func (s *Subject[T]) NotifyAll(ctx context.Context, value T) error {
	for _, o := range s.Observers() {
		if err := o.Notify(ctx, value); err != nil {
			return err
		}
	}
	return nil
}

// NotifyStep returns a sequence that invokes one observer per step over a
// snapshot of the current observer list and yields its result. The sequence
// is single use: ranging it again yields nothing, call NotifyStep to restart.
func (s *Subject[T]) NotifyStep(ctx context.Context, value T) iter.Seq[error] {
	observers := s.Observers()
	var consumed atomic.Bool
	return func(yield func(error) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, o := range observers {
			if !yield(o.Notify(ctx, value)) {
				return
			}
		}
	}
}

package observable

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(calls *[]string, name string) *Observer[int] {
	return NewObserver(func(_ context.Context, _ int) error {
		*calls = append(*calls, name)
		return nil
	})
}

func TestSubject_Subscribe(t *testing.T) {
	t.Parallel()

	var calls []string
	s := NewSubject[int]()
	s.Subscribe(recorder(&calls, "a"), nil, recorder(&calls, "b")).Subscribe(recorder(&calls, "c"))

	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.NotifyAllSync(1))
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestSubject_SubscribeSubject_Snapshot(t *testing.T) {
	t.Parallel()

	var calls []string
	source := NewSubject[int]()
	source.Subscribe(recorder(&calls, "a"))

	target := NewSubject[int]()
	target.SubscribeSubject(source)
	source.Subscribe(recorder(&calls, "late"))

	assert.Equal(t, 1, target.Len())
	assert.Equal(t, 2, source.Len())

	require.NoError(t, target.NotifyAllSync(0))
	assert.Equal(t, []string{"a"}, calls)

	assert.Same(t, target, target.SubscribeSubject(nil))
}

func TestSubject_SubscribeSubject_Self(t *testing.T) {
	t.Parallel()

	var calls []string
	s := NewSubject[int]()
	s.Subscribe(recorder(&calls, "a"))
	s.SubscribeSubject(s)

	assert.Equal(t, 2, s.Len())
}

func TestSubject_Unsubscribe(t *testing.T) {
	t.Parallel()

	var calls []string
	a := recorder(&calls, "a")
	b := recorder(&calls, "b")
	s := NewSubject[int]()
	s.Subscribe(a, b, a)

	assert.True(t, s.Unsubscribe(a))
	assert.Equal(t, 2, s.Len())
	require.NoError(t, s.NotifyAllSync(0))
	assert.Equal(t, []string{"b", "a"}, calls)

	assert.True(t, s.Unsubscribe(a))
	assert.False(t, s.Unsubscribe(a))
	assert.False(t, s.Unsubscribe(NewObserver(func(context.Context, int) error { return nil })))
	assert.Equal(t, 1, s.Len())
}

func TestSubject_NotifyAll_StopsOnError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	var calls []string
	s := NewSubject[int]()
	s.Subscribe(
		recorder(&calls, "a"),
		NewObserver(func(context.Context, int) error { return errBoom }),
		recorder(&calls, "c"),
	)

	err := s.NotifyAll(context.Background(), 1)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"a"}, calls)
}

func TestSubject_NotifyAll_Sequential(t *testing.T) {
	t.Parallel()

	var active, overlaps int32
	s := NewSubject[int]()
	for range 10 {
		s.Subscribe(NewObserver(func(context.Context, int) error {
			if atomic.AddInt32(&active, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			defer atomic.AddInt32(&active, -1)
			return nil
		}))
	}

	require.NoError(t, s.NotifyAll(context.Background(), 0))
	assert.Zero(t, overlaps)
}

func TestSubject_NotifyAll_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	s := NewSubject[int]()
	s.Subscribe(recorder(&calls, "a"), recorder(&calls, "b"))

	require.NoError(t, s.NotifyAll(ctx, 0))
	assert.Equal(t, []string{"a", "b"}, calls, "cancellation is left to the observers")
}

func TestSubject_NotifyAll_ObserverSeesContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	s := NewSubject[int]()
	s.Subscribe(
		NewObserver(func(ctx context.Context, _ int) error { return ctx.Err() }),
		recorder(&calls, "b"),
	)

	assert.ErrorIs(t, s.NotifyAll(ctx, 0), context.Canceled)
	assert.Empty(t, calls)
}

func TestSubject_NotifyAll_ReentrantSubscribe(t *testing.T) {
	t.Parallel()

	var calls []string
	s := NewSubject[int]()
	s.Subscribe(NewObserver(func(context.Context, int) error {
		calls = append(calls, "a")
		s.Subscribe(recorder(&calls, "added"))
		return nil
	}))

	require.NoError(t, s.NotifyAllSync(0))
	assert.Equal(t, []string{"a"}, calls)
	assert.Equal(t, 2, s.Len())
}

func TestSubject_NotifyStep(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	var calls []string
	s := NewSubject[int]()
	s.Subscribe(
		recorder(&calls, "a"),
		NewObserver(func(context.Context, int) error { return errBoom }),
		recorder(&calls, "c"),
	)

	var results []error
	for err := range s.NotifyStep(context.Background(), 0) {
		results = append(results, err)
		if err != nil {
			break
		}
	}

	require.Len(t, results, 2)
	assert.NoError(t, results[0])
	assert.ErrorIs(t, results[1], errBoom)
	assert.Equal(t, []string{"a"}, calls)

	count := 0
	for range s.NotifyStep(context.Background(), 0) {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestSubject_NotifyStep_SingleUse(t *testing.T) {
	t.Parallel()

	var calls []string
	s := NewSubject[int]()
	s.Subscribe(recorder(&calls, "a"))

	steps := s.NotifyStep(context.Background(), 0)
	for err := range steps {
		require.NoError(t, err)
	}
	for range steps {
		t.Fatal("a consumed sequence must not yield again")
	}

	assert.Equal(t, []string{"a"}, calls)
}

func TestObserver_NilNotify(t *testing.T) {
	t.Parallel()

	var o *Observer[int]
	assert.NoError(t, o.Notify(context.Background(), 1))
	assert.NoError(t, NewObserver[int](nil).Notify(context.Background(), 1))
}

package observable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_NotifyFirst_SingleConsumption(t *testing.T) {
	t.Parallel()

	var calls []string
	p := NewPipeline[int]()
	p.Subscribe(recorder(&calls, "a"), recorder(&calls, "b"), recorder(&calls, "c"))

	for range 3 {
		require.NoError(t, p.NotifyFirst(context.Background(), 0))
	}

	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Zero(t, p.Len())

	require.NoError(t, p.NotifyFirst(context.Background(), 0))
	require.NoError(t, p.NotifyFirstSync(0))
	assert.Len(t, calls, 3)
}

func TestPipeline_NotifyLast(t *testing.T) {
	t.Parallel()

	var calls []string
	p := NewPipeline[int]()
	p.Subscribe(recorder(&calls, "a"), recorder(&calls, "b"))

	require.NoError(t, p.NotifyLastSync(0))
	require.NoError(t, p.NotifyLast(context.Background(), 0))
	require.NoError(t, p.NotifyLast(context.Background(), 0))

	assert.Equal(t, []string{"b", "a"}, calls)
	assert.Zero(t, p.Len())
}

func TestPipeline_ReentrantNotifyFirst(t *testing.T) {
	t.Parallel()

	var calls []string
	p := NewPipeline[int]()
	p.Subscribe(
		NewObserver(func(ctx context.Context, v int) error {
			calls = append(calls, "a")
			return p.NotifyFirst(ctx, v)
		}),
		recorder(&calls, "b"),
		recorder(&calls, "c"),
	)

	require.NoError(t, p.NotifyFirstSync(0))

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, 1, p.Len())
}

func TestPipeline_NotifyFirst_Error(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	p := NewPipeline[int]()
	p.Subscribe(NewObserver(func(context.Context, int) error { return errBoom }))

	assert.ErrorIs(t, p.NotifyFirstSync(0), errBoom)
	assert.Zero(t, p.Len())
}

func TestPipeline_SourceSubjectUntouched(t *testing.T) {
	t.Parallel()

	var calls []string
	stored := NewSubject[int]()
	stored.Subscribe(recorder(&calls, "a"), recorder(&calls, "b"))

	p := NewPipeline[int]()
	p.SubscribeSubject(stored)
	require.NoError(t, p.NotifyFirstSync(0))
	require.NoError(t, p.NotifyFirstSync(0))

	assert.Zero(t, p.Len())
	assert.Equal(t, 2, stored.Len())
}

package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelDom/TestJuridoc/internal/observable"
)

func newTestMatch(variables []Variables, observers ...*observable.Observer[*Match[string]]) *Match[string] {
	pipeline := observable.NewPipeline[*Match[string]]()
	pipeline.Subscribe(observers...)
	return NewMatch("/a", "", variables, "detail", pipeline)
}

func TestNewMatch_Defaults(t *testing.T) {
	t.Parallel()

	m := NewMatch[string]("/a", "/b", nil, "d", nil)

	assert.Equal(t, "/a", m.Path())
	assert.Equal(t, "/b", m.Remaining())
	assert.False(t, m.Exact())
	assert.Equal(t, Variables{}, m.Variables())
	assert.Zero(t, m.Len())

	next, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Same(t, m, next)
}

func TestMatch_VariablesQueue(t *testing.T) {
	t.Parallel()

	first := Variables{"n": 1}
	second := Variables{"n": 2}
	rec := &calls{}
	m := newTestMatch([]Variables{first, second}, rec.observer("a"), rec.observer("b"))

	assert.Equal(t, first, m.Variables())
	assert.Equal(t, 2, m.Len())

	_, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, rec.list[0].variables)
	assert.Equal(t, 1, m.Len())

	_, err = m.NextSync()
	require.NoError(t, err)
	assert.Equal(t, second, rec.list[1].variables)
	assert.Zero(t, m.Len())

	_, err = m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Variables{}, m.Variables())
	assert.Len(t, rec.list, 2)
}

func TestMatch_MoreHandlersThanSnapshots(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	m := newTestMatch([]Variables{{"k": "v"}}, rec.observer("a"), rec.observer("b"))

	_, err := m.Next(context.Background())
	require.NoError(t, err)
	_, err = m.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Variables{"k": "v"}, rec.list[0].variables)
	assert.Equal(t, Variables{}, rec.list[1].variables)
}

func TestMatch_RecursiveNext(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	chain := observable.NewObserver(func(ctx context.Context, m *Match[string]) error {
		rec.list = append(rec.list, call{name: "chain"})
		_, err := m.Next(ctx)
		return err
	})
	m := newTestMatch(nil, chain, rec.observer("b"), rec.observer("c"))

	_, err := m.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"chain", "b"}, rec.names())
	assert.Equal(t, 1, m.Len())
}

func TestMatch_NextError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	rec := &calls{}
	m := newTestMatch(nil,
		observable.NewObserver(func(context.Context, *Match[string]) error { return errBoom }),
		rec.observer("b"),
	)

	next, err := m.Next(context.Background())

	assert.ErrorIs(t, err, errBoom)
	assert.Same(t, m, next)
	assert.Equal(t, 1, m.Len())
	assert.Empty(t, rec.list)
}

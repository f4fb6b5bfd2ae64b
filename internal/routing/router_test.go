package routing

import (
	"context"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelDom/TestJuridoc/internal/observable"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// call records one handler invocation.
type call struct {
	name      string
	variables Variables
	exact     bool
}

type calls struct {
	list []call
}

func (c *calls) observer(name string) *observable.Observer[*Match[string]] {
	return observable.NewObserver(func(_ context.Context, m *Match[string]) error {
		c.list = append(c.list, call{name: name, variables: m.Variables(), exact: m.Exact()})
		return nil
	})
}

func (c *calls) names() []string {
	names := make([]string, 0, len(c.list))
	for _, cl := range c.list {
		names = append(names, cl.name)
	}
	return names
}

func newTestRouter(t *testing.T, opts ...Option) *Router[string] {
	t.Helper()

	router, err := NewRouter[string](DefaultSettings(), opts...)
	require.NoError(t, err)
	return router
}

func drain(t *testing.T, m *Match[string]) {
	t.Helper()

	for m.Len() > 0 {
		_, err := m.Next(context.Background())
		require.NoError(t, err)
	}
}

var digits = Constraint{"id": regexp.MustCompile(`\d+`)}

func TestNewRouter_InvalidSettings(t *testing.T) {
	t.Parallel()

	router, err := NewRouter[string](Settings{})

	assert.Nil(t, router)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
}

func TestRouter_ExactLiteral(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t, WithName("processors"))
	require.NoError(t, router.Add(Route[string]{Path: "/users/list", Exact: true, OnMatch: rec.observer("list")}))

	m := router.Match("/users/list", "detail")

	assert.True(t, m.Exact())
	assert.Equal(t, "/users/list", m.Path())
	assert.Empty(t, m.Remaining())
	assert.Equal(t, "detail", m.Detail())
	assert.Equal(t, 1, m.Len())

	drain(t, m)
	assert.Equal(t, []string{"list"}, rec.names())
	assert.Equal(t, "processors", router.Name())
}

func TestRouter_VariableBinding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		catchAll     bool
		path         string
		expectCalls  []string
		expectVars   Variables
		expectPath   string
		expectRemain string
	}{
		{
			name:        "digits bind",
			path:        "/user/42",
			expectCalls: []string{"user"},
			expectVars:  Variables{"id": "42"},
			expectPath:  "/user/42",
		},
		{
			name:         "letters fall back to catch-all",
			catchAll:     true,
			path:         "/user/abc",
			expectCalls:  []string{"root"},
			expectVars:   Variables{},
			expectPath:   "/",
			expectRemain: "/user/abc",
		},
		{
			name:         "letters without catch-all yield nothing",
			path:         "/user/abc",
			expectCalls:  []string{},
			expectPath:   "/",
			expectRemain: "/user/abc",
		},
		{
			name:        "segment in variable syntax binds its capture",
			path:        "/user/{42}",
			expectCalls: []string{"user"},
			expectVars:  Variables{"id": "42"},
			expectPath:  "/user42",
		},
		{
			name:         "partial digits do not bind",
			catchAll:     true,
			path:         "/user/4a2",
			expectCalls:  []string{"root"},
			expectVars:   Variables{},
			expectPath:   "/",
			expectRemain: "/user/4a2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &calls{}
			router := newTestRouter(t)
			require.NoError(t, router.Add(Route[string]{
				Path:       "/user/{id}",
				Exact:      true,
				Constraint: digits,
				OnMatch:    rec.observer("user"),
			}))
			if tt.catchAll {
				require.NoError(t, router.Add(Route[string]{Path: "/", OnMatch: rec.observer("root")}))
			}

			m := router.Match(tt.path, "")
			assert.Equal(t, tt.expectPath, m.Path())
			assert.Equal(t, tt.expectRemain, m.Remaining())

			drain(t, m)
			assert.Equal(t, tt.expectCalls, rec.names())
			if len(tt.expectCalls) > 0 {
				assert.Equal(t, tt.expectVars, rec.list[0].variables)
			}
		})
	}
}

func TestRouter_MissingConstraint(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)

	err := router.Add(Route[string]{Path: "/user/{id}/posts", OnMatch: rec.observer("user")})

	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
	assert.Contains(t, err.Error(), `constraint rules for the variable "id" was not found`)
	assert.Zero(t, router.Len())
}

func TestRouter_NilHandler(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	err := router.Add(Route[string]{Path: "/a"})

	assert.ErrorIs(t, err, util.ErrConfigInvalid)
	assert.Zero(t, router.Len())
}

func TestRouter_AddStopsAtFirstInvalidRoute(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)

	err := router.Add(
		Route[string]{Path: "/a", OnMatch: rec.observer("a")},
		Route[string]{Path: "/b/{id}", OnMatch: rec.observer("b")},
		Route[string]{Path: "/c", OnMatch: rec.observer("c")},
	)

	require.Error(t, err)
	assert.Equal(t, 1, router.Len())
	assert.Equal(t, 1, router.Match("/a", "").Len())
	assert.Zero(t, router.Match("/c", "").Len())
}

func TestRouter_NodeCount(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)

	require.NoError(t, router.Add(Route[string]{Path: "/a/b", OnMatch: rec.observer("1")}))
	assert.Equal(t, 2, router.Len())

	require.NoError(t, router.Add(Route[string]{Path: "/a/b", OnMatch: rec.observer("2")}))
	assert.Equal(t, 2, router.Len())

	require.NoError(t, router.Add(Route[string]{Path: "/a/c", OnMatch: rec.observer("3")}))
	assert.Equal(t, 3, router.Len())

	drain(t, router.Match("/a/b", ""))
	assert.Equal(t, []string{"1", "2"}, rec.names())
}

func TestRouter_SharedVariableNode(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	pattern := regexp.MustCompile(`^\d+$`)

	require.NoError(t, router.Add(
		Route[string]{Path: "/u/{id}", Constraint: Constraint{"id": pattern}, OnMatch: rec.observer("id")},
		Route[string]{Path: "/u/{uid}", Constraint: Constraint{"uid": pattern}, OnMatch: rec.observer("uid")},
	))

	assert.Equal(t, 2, router.Len())

	drain(t, router.Match("/u/5", ""))
	require.Len(t, rec.list, 2)
	assert.Equal(t, Variables{"id": "5"}, rec.list[0].variables)
}

func TestRouter_RegistrationMergeFirstWins(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)

	require.NoError(t, router.Add(
		Route[string]{Path: "/doc", Exact: true, Environment: Variables{"k": "first"}, OnMatch: rec.observer("1")},
		Route[string]{Path: "/doc", Exact: true, Environment: Variables{"k": "second", "other": 1}, OnMatch: rec.observer("2")},
	))

	m := router.Match("/doc", "")

	assert.Equal(t, Variables{"k": "first", "other": 1}, m.Variables())
}

func TestRouter_EnvironmentOverridesPathVariables(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(Route[string]{
		Path:        "/u/{id}",
		Exact:       true,
		Constraint:  digits,
		Environment: Variables{"id": "env", "role": "reader"},
		OnMatch:     rec.observer("u"),
	}))

	m := router.Match("/u/9", "")

	assert.Equal(t, Variables{"id": "env", "role": "reader"}, m.Variables())
}

func TestRouter_PartialMatch(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(
		Route[string]{Path: "/api", OnMatch: rec.observer("prefix")},
		Route[string]{Path: "/api", Exact: true, OnMatch: rec.observer("exact")},
	))

	m := router.Match("/api/v1/items", "")

	assert.Equal(t, "/api", m.Path())
	assert.Equal(t, "/v1/items", m.Remaining())
	assert.False(t, m.Exact())

	drain(t, m)
	assert.Equal(t, []string{"prefix"}, rec.names())
	assert.False(t, rec.list[0].exact)
}

func TestRouter_ExactOnlyEntryFallsBack(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(
		Route[string]{Path: "/api", Exact: true, OnMatch: rec.observer("exact")},
		Route[string]{Path: "/", OnMatch: rec.observer("root")},
	))

	m := router.Match("/api/v1", "")

	assert.Equal(t, "/", m.Path())
	assert.Equal(t, "/api/v1", m.Remaining())
	drain(t, m)
	assert.Equal(t, []string{"root"}, rec.names())
}

func TestRouter_ExactBeforeDefaultOnSameEntry(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(
		Route[string]{Path: "/a", Environment: Variables{"slot": "default"}, OnMatch: rec.observer("default")},
		Route[string]{Path: "/a", Exact: true, Environment: Variables{"slot": "exact"}, OnMatch: rec.observer("exact")},
	))

	drain(t, router.Match("/a", ""))

	assert.Equal(t, []string{"exact", "default"}, rec.names())
	assert.Equal(t, "exact", rec.list[0].variables["slot"])
	assert.Equal(t, "default", rec.list[1].variables["slot"])
}

func TestRouter_DiscoveryOrder(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(
		Route[string]{
			Path:       "/x/{name}",
			Exact:      true,
			Constraint: Constraint{"name": regexp.MustCompile(`^[a-z]+$`)},
			OnMatch:    rec.observer("variable"),
		},
		Route[string]{Path: "/x/new", Exact: true, OnMatch: rec.observer("literal")},
	))

	drain(t, router.Match("/x/new", ""))

	assert.Equal(t, []string{"variable", "literal"}, rec.names())
	assert.Equal(t, Variables{"name": "new"}, rec.list[0].variables)
	assert.Equal(t, Variables{"name": "new"}, rec.list[1].variables)
}

func TestRouter_RootPath(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(Route[string]{Path: "/", Exact: true, OnMatch: rec.observer("index")}))

	m := router.Match("/", "")

	assert.True(t, m.Exact())
	assert.Equal(t, "/", m.Path())
	assert.Equal(t, 1, m.Len())
}

func TestRouter_MatchDoesNotMutateStoredSubjects(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	require.NoError(t, router.Add(Route[string]{Path: "/a", Exact: true, OnMatch: rec.observer("a")}))

	drain(t, router.Match("/a", ""))
	drain(t, router.Match("/a", ""))

	assert.Equal(t, []string{"a", "a"}, rec.names())
}

func TestRouter_ClearIdempotence(t *testing.T) {
	t.Parallel()

	rec := &calls{}
	router := newTestRouter(t)
	routes := []Route[string]{
		{Path: "/user/{id}", Exact: true, Constraint: digits, OnMatch: rec.observer("user")},
		{Path: "/", OnMatch: rec.observer("root")},
	}

	require.NoError(t, router.Add(routes...))
	before := router.Match("/user/7", "")
	nodes := router.Len()

	router.Clear()
	assert.Zero(t, router.Len())
	assert.Zero(t, router.Match("/user/7", "").Len())

	require.NoError(t, router.Add(routes...))
	after := router.Match("/user/7", "")

	assert.Equal(t, nodes, router.Len())
	assert.Equal(t, before.Variables(), after.Variables())
	assert.Equal(t, before.Exact(), after.Exact())
	assert.Equal(t, before.Len(), after.Len())
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := NewMetrics("test", registry)
	rec := &calls{}
	router := newTestRouter(t, WithName("filters"), WithMetrics(metrics))

	require.NoError(t, router.Add(
		Route[string]{Path: "/a/b", Exact: true, OnMatch: rec.observer("ab")},
		Route[string]{Path: "/", OnMatch: rec.observer("root")},
	))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.nodes.WithLabelValues("filters")))

	router.Match("/a/b", "")
	router.Match("/zzz", "")
	router.Match("/zzz", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.matches.WithLabelValues("filters", resultExact)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.matches.WithLabelValues("filters", resultFallback)))

	router.Clear()
	router.Match("/zzz", "")
	assert.Zero(t, testutil.ToFloat64(metrics.nodes.WithLabelValues("filters")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.matches.WithLabelValues("filters", resultNone)))
}

func TestMatchResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, resultNone, matchResult(true, 0, ""))
	assert.Equal(t, resultFallback, matchResult(true, 1, "/x"))
	assert.Equal(t, resultExact, matchResult(false, 1, ""))
	assert.Equal(t, resultPartial, matchResult(false, 1, "/x"))
}

package filters

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
	"github.com/rafaelDom/TestJuridoc/internal/util"
	"github.com/rafaelDom/TestJuridoc/internal/web"
)

func TestNewExpression_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		expression string
	}{
		{name: "empty", expression: "  "},
		{name: "syntax error", expression: `method ==`},
		{name: "unknown variable", expression: `user == "admin"`},
		{name: "not a bool", expression: `1 + 1`},
		{name: "string result", expression: `path + "/"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewExpression(ExpressionSettings{Expression: tt.expression})
			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrConfigInvalid)
		})
	}
}

func TestExpression_Filter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		expression  string
		path        string
		input       web.Input
		environment routing.Variables
		wantStatus  int
	}{
		{
			name:       "method granted",
			expression: `method == "GET"`,
			path:       "/docs",
			input:      web.Input{Method: http.MethodGet},
			wantStatus: http.StatusOK,
		},
		{
			name:       "method denied",
			expression: `method == "GET"`,
			path:       "/docs",
			input:      web.Input{Method: http.MethodDelete},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "header",
			expression: `"x-token" in headers && headers["x-token"] == "secret"`,
			path:       "/",
			input:      web.Input{Method: http.MethodGet, Headers: http.Header{"X-Token": []string{"secret"}}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			expression: `"x-token" in headers && headers["x-token"] == "secret"`,
			path:       "/",
			input:      web.Input{Method: http.MethodGet},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "address in range",
			expression: `ip_in_range(address, "10.0.0.0/8")`,
			path:       "/",
			input:      web.Input{Method: http.MethodGet, Address: "10.1.2.3"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "address out of range",
			expression: `ip_in_range(address, "10.0.0.0/8")`,
			path:       "/",
			input:      web.Input{Method: http.MethodGet, Address: "192.168.0.1"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "path prefix",
			expression: `path.startsWith("/public/")`,
			path:       "/public/a.css",
			input:      web.Input{Method: http.MethodGet},
			wantStatus: http.StatusOK,
		},
		{
			name:        "caller environment",
			expression:  `has(environment.role) && environment.role == "admin"`,
			path:        "/",
			input:       web.Input{Method: http.MethodGet},
			environment: routing.Variables{"role": "admin"},
			wantStatus:  http.StatusOK,
		},
		{
			name:       "evaluation error denies",
			expression: `environment.role == "admin"`,
			path:       "/",
			input:      web.Input{Method: http.MethodGet},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, handler := newFilteredApp(t,
				ExpressionType(application.Action{Path: "/"}),
				ExpressionSettings{Expression: tt.expression},
			)

			input := tt.input
			out := dispatch(t, app, tt.path, &input, tt.environment)

			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantStatus == http.StatusOK, handler.calls == 1)
		})
	}
}

func TestExpression_RouteVariables(t *testing.T) {
	t.Parallel()

	app, handler := newFilteredApp(t,
		ExpressionType(application.Action{
			Path:       "/tenants/{tenant}",
			Constraint: routing.Constraint{"tenant": regexp.MustCompile(`^[a-z]+$`)},
		}),
		ExpressionSettings{Expression: `variables.tenant == "acme"`, Message: "tenant not allowed"},
	)

	out := dispatch(t, app, "/tenants/acme/files", &web.Input{Method: http.MethodGet}, nil)
	assert.Equal(t, http.StatusOK, out.Status)

	out = dispatch(t, app, "/tenants/other/files", &web.Input{Method: http.MethodGet}, nil)
	assert.Equal(t, http.StatusForbidden, out.Status)
	assert.JSONEq(t, `{"status":403,"message":"tenant not allowed"}`, string(out.Data))

	// Paths outside the filter route are not filtered.
	out = dispatch(t, app, "/about", &web.Input{Method: http.MethodGet}, nil)
	assert.Equal(t, http.StatusOK, out.Status)

	assert.Equal(t, 2, handler.calls)
}

func TestExpression_Metrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := NewMetrics("test", registry)

	app, _ := newFilteredApp(t,
		ExpressionType(application.Action{Path: "/"}),
		ExpressionSettings{Expression: `environment.role == "admin"`},
		WithMetrics(metrics),
	)

	dispatch(t, app, "/", &web.Input{Method: http.MethodGet}, routing.Variables{"role": "admin"})
	dispatch(t, app, "/", &web.Input{Method: http.MethodGet}, routing.Variables{"role": "guest"})
	dispatch(t, app, "/", &web.Input{Method: http.MethodGet}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisionsTotal.WithLabelValues(filterExpression, decisionGranted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisionsTotal.WithLabelValues(filterExpression, decisionDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisionsTotal.WithLabelValues(filterExpression, decisionError)))
}

func TestIPInRangeBinding(t *testing.T) {
	t.Parallel()

	env, err := newExpressionEnv()
	require.NoError(t, err)

	tests := []struct {
		expression string
		want       bool
	}{
		{expression: `ip_in_range("127.0.0.1", "127.0.0.0/8")`, want: true},
		{expression: `ip_in_range("::1", "::1/128")`, want: true},
		{expression: `ip_in_range("not-an-ip", "127.0.0.0/8")`, want: false},
		{expression: `ip_in_range("127.0.0.1", "bad-cidr")`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			t.Parallel()

			ast, issues := env.Compile(tt.expression)
			require.NoError(t, issues.Err())
			program, err := env.Program(ast)
			require.NoError(t, err)

			result, _, err := program.Eval(map[string]any{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value())
		})
	}
}

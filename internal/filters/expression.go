package filters

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
	"github.com/rafaelDom/TestJuridoc/internal/util"
	"github.com/rafaelDom/TestJuridoc/internal/web"
)

// ExpressionSettings configures the expression filter.
type ExpressionSettings struct {
	// Expression is a CEL expression yielding a bool. It sees path, method,
	// address, headers (lowercase names, first value), variables (of the
	// filter route) and environment (of the request).
	Expression string
	// Message is written with the 403 answer of denied requests.
	Message string
}

// Expression is the CEL filter.
type Expression struct {
	settings ExpressionSettings
	program  cel.Program
	logger   observability.Logger
	metrics  *Metrics
}

// ExpressionType describes an Expression filter routed by action. Its
// constructor takes ExpressionSettings followed by options.
func ExpressionType(action application.Action) *application.Type {
	return &application.Type{
		Name: "filters.Expression" + action.Path,
		New: func(args ...any) (any, error) {
			settings, opts, err := splitArgs[ExpressionSettings]("filters.expression", args)
			if err != nil {
				return nil, err
			}
			expression, err := NewExpression(settings, opts...)
			if err != nil {
				return nil, err
			}
			return expression, nil
		},
		Routes: []application.Declaration{
			application.Filter("Evaluate", action),
		},
	}
}

// NewExpression compiles the expression of settings.
func NewExpression(settings ExpressionSettings, opts ...Option) (*Expression, error) {
	if strings.TrimSpace(settings.Expression) == "" {
		return nil, util.NewConfigError("filters.expression", "expression is required")
	}

	env, err := newExpressionEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(settings.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, util.NewConfigErrorWithCause("filters.expression", "failed to compile expression", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, util.NewConfigError("filters.expression",
			fmt.Sprintf("expression must yield bool, got %s", out))
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("filters.expression", "failed to create program", err)
	}

	o := newOptions(opts)

	return &Expression{
		settings: settings,
		program:  program,
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// newExpressionEnv declares the request variables and helper functions.
func newExpressionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("path", cel.StringType),
		cel.Variable("method", cel.StringType),
		cel.Variable("address", cel.StringType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("variables", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("environment", cel.MapType(cel.StringType, cel.DynType)),
		cel.Function("ip_in_range",
			cel.Overload("ip_in_range_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(ipInRangeBinding),
			),
		),
	)
}

// ipInRangeBinding checks if an IP is in a CIDR range.
func ipInRangeBinding(ip, cidr ref.Val) ref.Val {
	ipStr, ok := ip.Value().(string)
	if !ok {
		return types.False
	}
	cidrStr, ok := cidr.Value().(string)
	if !ok {
		return types.False
	}

	parsedIP := net.ParseIP(ipStr)
	if parsedIP == nil {
		return types.False
	}

	_, network, err := net.ParseCIDR(cidrStr)
	if err != nil {
		return types.False
	}

	return types.Bool(network.Contains(parsedIP))
}

// Evaluate is the filter method. A request for which the expression does
// not yield true is answered with 403.
func (e *Expression) Evaluate(ctx context.Context, m *web.Match) (bool, error) {
	request := m.Detail()
	input := request.Input()

	activation := map[string]any{
		"path":        request.Path(),
		"method":      input.Method,
		"address":     input.Address,
		"headers":     headerValues(input.Headers),
		"variables":   plainValues(m.Variables()),
		"environment": plainValues(request.Environment),
	}

	granted := false
	result, _, err := e.program.Eval(activation)
	switch {
	case err != nil:
		e.metrics.observeDecision(filterExpression, decisionError)
		e.logger.WithContext(ctx).Warn("CEL evaluation error",
			observability.String("path", request.Path()),
			observability.Error(err),
		)
	default:
		granted, _ = result.Value().(bool)
		e.metrics.observeDecision(filterExpression, decisionOf(granted))
	}

	if granted {
		return true, nil
	}

	e.logger.WithContext(ctx).Debug("expression denied request",
		observability.String("path", request.Path()),
		observability.String("method", input.Method),
	)

	if err := web.SetStatusJSON(request.Output(), http.StatusForbidden, e.settings.Message); err != nil {
		return false, err
	}
	return false, nil
}

// headerValues flattens headers to their first value under lowercase names.
func headerValues(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			out[strings.ToLower(name)] = values[0]
		}
	}
	return out
}

// plainValues keeps the entries CEL can represent without a custom type
// provider.
func plainValues(vars routing.Variables) map[string]any {
	out := make(map[string]any, len(vars))
	for name, value := range vars {
		switch v := value.(type) {
		case string, bool, int, int64, float64, []string, []any:
			out[name] = v
		}
	}
	return out
}

package web

import (
	"context"
	"net/http"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
)

// Settings returns the path settings of the web back end: "/" separated
// paths with {name} variables.
func Settings() routing.Settings {
	return routing.DefaultSettings()
}

// NewMain creates an application with the web settings and the method
// guard installed as the outermost process hook. Options given by the
// caller are applied after the defaults.
func NewMain(opts ...application.Option) (*Main, error) {
	defaults := []application.Option{
		application.WithSettings(Settings()),
		application.WithProcessHook[*Input, *Output](Guard),
	}
	return application.New[*Input, *Output](append(defaults, opts...)...)
}

// Guard is the process hook of the web back end. An OPTIONS request on a
// route with an access variable is answered with 204 and the CORS headers.
// A request whose method is allowed by the methods variable reaches the
// processor. Any other request is passed to the next processor of the
// same match.
func Guard(next application.ProcessFunc[*Input, *Output]) application.ProcessFunc[*Input, *Output] {
	return func(ctx context.Context, m *Match) error {
		variables := m.Variables()
		request := m.Detail()
		input := request.Input()

		if input.Method == http.MethodOptions {
			if access, ok := AccessFrom(variables[VariableAccess]); ok {
				if access.Origin == "" {
					access.Origin = input.Headers.Get("Origin")
				}
				SetAccessControl(request.Output(), access)
				return SetStatus(request.Output(), http.StatusNoContent)
			}
		}

		if AllowsMethod(variables[VariableMethods], input.Method) {
			return next(ctx, m)
		}

		_, err := m.Next(ctx)
		return err
	}
}

// AllowsMethod reports whether methods admits method. methods is "*", a
// single method name or a list of names.
func AllowsMethod(methods any, method string) bool {
	switch v := methods.(type) {
	case string:
		return v == "*" || v == method
	case []string:
		for _, m := range v {
			if m == method {
				return true
			}
		}
	case []any:
		for _, m := range v {
			if s, ok := m.(string); ok && s == method {
				return true
			}
		}
	}
	return false
}

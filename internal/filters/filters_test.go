package filters

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
	"github.com/rafaelDom/TestJuridoc/internal/web"
)

// okHandler answers 200 on every path and counts its calls.
type okHandler struct {
	calls int
}

func (h *okHandler) Serve(_ context.Context, m *web.Match) error {
	h.calls++
	return web.SetStatus(m.Detail().Output(), http.StatusOK)
}

func okType(h *okHandler) *application.Type {
	return &application.Type{
		Name: "filters.test.ok",
		New:  func(...any) (any, error) { return h, nil },
		Routes: []application.Declaration{
			application.Processor("Serve", application.Action{
				Path:        "/",
				Exact:       application.Exact(false),
				Environment: routing.Variables{web.VariableMethods: "*"},
			}),
		},
	}
}

func newFilteredApp(t *testing.T, filter *application.Type, args ...any) (*web.Main, *okHandler) {
	t.Helper()

	app, err := web.NewMain()
	require.NoError(t, err)

	handler := &okHandler{}
	require.NoError(t, app.AddHandler(filter, args...))
	require.NoError(t, app.AddHandler(okType(handler)))

	return app, handler
}

func dispatch(t *testing.T, app *web.Main, path string, input *web.Input, env routing.Variables) *web.Output {
	t.Helper()

	request := web.NewRequest(path, input, env)
	require.NoError(t, app.Dispatch(context.Background(), request))
	return request.Output()
}

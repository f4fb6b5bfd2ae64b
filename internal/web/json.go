package web

import (
	"context"
	"net/http"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
)

// JSONHandler answers with JSON status bodies: 500 carrying the exception
// for failed dispatches and 501 for everything else.
type JSONHandler struct{}

// JSONHandlerType describes JSONHandler for the application registry.
var JSONHandlerType = &application.Type{
	Name: "web.JSONHandler",
	New: func(...any) (any, error) {
		return &JSONHandler{}, nil
	},
	Routes: []application.Declaration{
		application.Processor("ExceptionResponse", application.Action{
			Path:        ExceptionPath,
			Environment: routing.Variables{VariableMethods: "*"},
		}),
		application.Processor("DefaultResponse", application.Action{
			Path:  "/",
			Exact: application.Exact(false),
			Environment: routing.Variables{
				VariableMethods: "*",
				VariableAccess:  Access{},
			},
		}),
	},
}

// ExceptionResponse answers 500 with the exception as message.
func (h *JSONHandler) ExceptionResponse(_ context.Context, m *Match) error {
	request := m.Detail()
	return SetStatusJSON(request.Output(), http.StatusInternalServerError, exceptionOf(request))
}

// DefaultResponse answers 501.
func (h *JSONHandler) DefaultResponse(_ context.Context, m *Match) error {
	return SetStatusJSON(m.Detail().Output(), http.StatusNotImplemented, "")
}

package web

import (
	"net/http"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
)

// MethodMessage is the input method of requests built from WebSocket frames.
const MethodMessage = "MESSAGE"

// ExceptionPath is the path of the request dispatched after a failure.
const ExceptionPath = "!"

// Environment variable names read by the guard and the default handlers.
const (
	VariableMethods   = "methods"
	VariableAccess    = "access"
	VariableException = "exception"
)

// Input is the inbound part of a request.
type Input struct {
	Method  string
	Address string
	Headers http.Header
	Data    []byte
}

// Output is the response sink filled by handlers.
type Output struct {
	Status  int
	Message string
	Headers http.Header
	Data    []byte
}

// Request is an application request carrying web input and output.
type Request = application.Request[*Input, *Output]

// Match is the cursor handed to web handlers.
type Match = application.Match[*Input, *Output]

// Main is an application dispatching web requests.
type Main = application.Main[*Input, *Output]

// NewOutput returns an empty output.
func NewOutput() *Output {
	return &Output{Headers: make(http.Header)}
}

// NewRequest creates a request for path with a fresh output.
func NewRequest(path string, input *Input, environment routing.Variables) *Request {
	if input.Headers == nil {
		input.Headers = make(http.Header)
	}
	return application.NewRequest(path, input, NewOutput(), environment)
}

package application

import "github.com/rafaelDom/TestJuridoc/internal/routing"

// Request is the record dispatched through filters and processors. Path,
// input and output are fixed at construction.
type Request[I, O any] struct {
	path   string
	input  I
	output O

	// Environment holds the variables visible to the current step. It is
	// rebuilt before every step from the processor variables and the
	// environment given at construction.
	Environment routing.Variables

	// Granted reports whether the current step may run its processor.
	Granted bool
}

// NewRequest creates a request. A nil environment is replaced by an empty one.
func NewRequest[I, O any](path string, input I, output O, environment routing.Variables) *Request[I, O] {
	if environment == nil {
		environment = routing.Variables{}
	}
	return &Request[I, O]{
		path:        path,
		input:       input,
		output:      output,
		Environment: environment,
	}
}

// Path returns the request path.
func (r *Request[I, O]) Path() string {
	return r.path
}

// Input returns the request input.
func (r *Request[I, O]) Input() I {
	return r.input
}

// Output returns the request output sink.
func (r *Request[I, O]) Output() O {
	return r.output
}

// Match is the cursor handed to filter and processor methods.
type Match[I, O any] = routing.Match[*Request[I, O]]

// merge returns base overlaid by top.
func merge(base, top routing.Variables) routing.Variables {
	out := make(routing.Variables, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

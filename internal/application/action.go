package application

import "github.com/rafaelDom/TestJuridoc/internal/routing"

// Kind is the phase a declared method runs in.
type Kind int

const (
	// KindFilter methods decide whether a step is granted.
	KindFilter Kind = iota
	// KindProcessor methods handle granted steps.
	KindProcessor
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindProcessor:
		return "processor"
	default:
		return "unknown"
	}
}

// Action describes where a method is routed.
type Action struct {
	Path string
	// Exact overrides the default of the route kind: filters match by
	// prefix, processors exactly.
	Exact       *bool
	Constraint  routing.Constraint
	Environment routing.Variables
}

// exact resolves the exact flag for kind.
func (a Action) exact(kind Kind) bool {
	if a.Exact != nil {
		return *a.Exact
	}
	return kind == KindProcessor
}

// Declaration binds a method name to an action.
type Declaration struct {
	Kind   Kind
	Method string
	Action Action
}

// Filter declares a filter method.
func Filter(method string, action Action) Declaration {
	return Declaration{Kind: KindFilter, Method: method, Action: action}
}

// Processor declares a processor method.
func Processor(method string, action Action) Declaration {
	return Declaration{Kind: KindProcessor, Method: method, Action: action}
}

// Exact returns a pointer to v for Action.Exact.
func Exact(v bool) *bool {
	return &v
}

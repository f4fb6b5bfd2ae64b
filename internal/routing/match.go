package routing

import (
	"context"

	"github.com/rafaelDom/TestJuridoc/internal/observable"
)

// Match is the per-request cursor over a matched pipeline. It is owned by a
// single request and is not safe for concurrent use.
type Match[D any] struct {
	path      string
	remaining string
	queue     []Variables
	current   Variables
	detail    D
	pipeline  *observable.Pipeline[*Match[D]]
}

// NewMatch creates a cursor. The first snapshot of variables is current
// until the first call to Next.
func NewMatch[D any](
	path, remaining string,
	variables []Variables,
	detail D,
	pipeline *observable.Pipeline[*Match[D]],
) *Match[D] {
	if pipeline == nil {
		pipeline = observable.NewPipeline[*Match[D]]()
	}

	m := &Match[D]{
		path:      path,
		remaining: remaining,
		queue:     variables,
		detail:    detail,
		pipeline:  pipeline,
	}
	if len(variables) > 0 {
		m.current = variables[0]
	}
	return m
}

// Path returns the consumed part of the request path.
func (m *Match[D]) Path() string {
	return m.path
}

// Remaining returns the unconsumed part of the request path.
func (m *Match[D]) Remaining() string {
	return m.remaining
}

// Exact reports whether the whole request path was consumed.
func (m *Match[D]) Exact() bool {
	return m.remaining == ""
}

// Variables returns the current variable snapshot.
func (m *Match[D]) Variables() Variables {
	if m.current == nil {
		return Variables{}
	}
	return m.current
}

// Detail returns the payload given to Router.Match.
func (m *Match[D]) Detail() D {
	return m.detail
}

// Len returns the number of handlers not yet run.
func (m *Match[D]) Len() int {
	return m.pipeline.Len()
}

// Next makes the next snapshot current and runs exactly one handler with
// the cursor itself, so the handler may advance it further.
func (m *Match[D]) Next(ctx context.Context) (*Match[D], error) {
	m.advance()
	return m, m.pipeline.NotifyFirst(ctx, m)
}

// NextSync is Next with a background context.
func (m *Match[D]) NextSync() (*Match[D], error) {
	m.advance()
	return m, m.pipeline.NotifyFirstSync(m)
}

func (m *Match[D]) advance() {
	if len(m.queue) == 0 {
		m.current = nil
		return
	}
	m.current = m.queue[0]
	m.queue = m.queue[1:]
}

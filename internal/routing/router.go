package routing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/observable"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// Match results reported by the routing metrics.
const (
	resultExact    = "exact"
	resultPartial  = "partial"
	resultFallback = "fallback"
	resultNone     = "none"
)

// Route describes one handler registration.
type Route[D any] struct {
	Path        string
	Exact       bool
	Constraint  Constraint
	Environment Variables
	OnMatch     *observable.Observer[*Match[D]]
}

// Router is a segment trie of routes.
type Router[D any] struct {
	name     string
	settings Settings
	entries  *entrySet[D]
	counter  int
	logger   observability.Logger
	metrics  *Metrics
	mu       sync.RWMutex
}

// Option configures a Router.
type Option func(*routerOptions)

type routerOptions struct {
	name    string
	logger  observability.Logger
	metrics *Metrics
}

// WithName sets the router name used in logs and metric labels.
func WithName(name string) Option {
	return func(o *routerOptions) {
		o.name = name
	}
}

// WithLogger sets the router logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// WithMetrics enables router metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(o *routerOptions) {
		o.metrics = metrics
	}
}

// NewRouter creates an empty router.
func NewRouter[D any](settings Settings, opts ...Option) (*Router[D], error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := &routerOptions{name: "default"}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = observability.NopLogger()
	}

	return &Router[D]{
		name:     o.name,
		settings: settings,
		entries:  newEntrySet[D](),
		logger:   o.logger.With(observability.String("router", o.name)),
		metrics:  o.metrics,
	}, nil
}

// Name returns the router name.
func (r *Router[D]) Name() string {
	return r.name
}

// Settings returns the tokenizer settings.
func (r *Router[D]) Settings() Settings {
	return r.settings
}

// Len returns the number of trie nodes created since the last Clear.
func (r *Router[D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counter
}

// Add registers routes in order. It stops at the first invalid route;
// routes before it stay registered.
func (r *Router[D]) Add(routes ...Route[D]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, route := range routes {
		if err := r.add(route); err != nil {
			return fmt.Errorf("failed to add route %s: %w", route.Path, err)
		}
	}

	if r.metrics != nil {
		r.metrics.setNodes(r.name, r.counter)
	}
	return nil
}

func (r *Router[D]) add(route Route[D]) error {
	if route.OnMatch == nil {
		return util.NewConfigError("route.onMatch", "route handler must be callable")
	}

	tokens := r.settings.Split(route.Path)

	// Resolve every token before creating nodes so a failing route leaves
	// the trie untouched.
	keys := make([]entryKey, len(tokens))
	for i, token := range tokens {
		if strings.Contains(token, r.settings.Separator) {
			keys[i] = entryKey{token: token}
			continue
		}
		pattern, ok := route.Constraint[token]
		if !ok || pattern == nil {
			return util.NewConfigError(
				"route.constraint",
				fmt.Sprintf("constraint rules for the variable %q was not found", token),
			)
		}
		keys[i] = entryKey{variable: true, token: pattern.String()}
	}

	set := r.entries
	var current *entry[D]
	for i, key := range keys {
		e, ok := set.get(key)
		if !ok {
			if key.variable {
				e = newEntry[D](key, route.Constraint[tokens[i]], tokens[i])
			} else {
				e = newEntry[D](key, nil, "")
			}
			set.put(e)
			r.counter++
		}
		current = e
		set = e.children
	}

	if route.Exact {
		current.onExactMatch.Subscribe(route.OnMatch)
		mergeMissing(current.exactEnvironment, route.Environment)
	} else {
		current.onMatch.Subscribe(route.OnMatch)
		mergeMissing(current.defaultEnvironment, route.Environment)
	}

	r.logger.Debug("route added",
		observability.String("path", route.Path),
		observability.Bool("exact", route.Exact),
		observability.Int("nodes", r.counter),
	)

	return nil
}

// selection is the result of a trie search.
type selection[D any] struct {
	consumed  []string
	entries   []*entry[D]
	variables Variables
}

// collect walks the trie level by level. Tokens are consumed while at
// least one entry of the frontier matches; the rest is returned unconsumed.
func (r *Router[D]) collect(tokens []string) (*selection[D], []string) {
	sel := &selection[D]{variables: Variables{}}
	frontier := []*entrySet[D]{r.entries}

	for len(tokens) > 0 && len(frontier) > 0 {
		token := tokens[0]
		levelVariables := Variables{}
		var levelEntries []*entry[D]
		var next []*entrySet[D]

		for _, set := range frontier {
			for _, e := range set.search(token, r.settings.Separator, levelVariables) {
				levelEntries = append(levelEntries, e)
				next = append(next, e.children)
			}
		}

		frontier = next
		if len(levelEntries) > 0 {
			sel.entries = levelEntries
			mergeMissing(sel.variables, levelVariables)
			sel.consumed = append(sel.consumed, token)
			tokens = tokens[1:]
		}
	}

	return sel, tokens
}

// Match resolves path and returns a cursor over the matched handlers. The
// root separator entry is used when nothing was consumed or when none of
// the matched entries has a handler for the remaining path.
func (r *Router[D]) Match(path string, detail D) *Match[D] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := r.settings.Split(path)
	sel, unconsumed := r.collect(tokens)
	remaining := strings.Join(unconsumed, "")

	fallback := !sel.contributes(remaining)
	if fallback {
		sel = &selection[D]{consumed: []string{r.settings.Separator}, variables: Variables{}}
		remaining = strings.Join(tokens, "")
		if root, ok := r.entries.get(entryKey{token: r.settings.Separator}); ok {
			sel.entries = append(sel.entries, root)
		}
	}

	pipeline := observable.NewPipeline[*Match[D]]()
	var variables []Variables

	for _, e := range sel.entries {
		if remaining == "" && e.onExactMatch.Len() > 0 {
			pipeline.SubscribeSubject(e.onExactMatch)
			variables = append(variables, merge(sel.variables, e.exactEnvironment))
		}
		if e.onMatch.Len() > 0 {
			pipeline.SubscribeSubject(e.onMatch)
			variables = append(variables, merge(sel.variables, e.defaultEnvironment))
		}
	}

	if r.metrics != nil {
		r.metrics.observeMatch(r.name, matchResult(fallback, pipeline.Len(), remaining))
	}

	return NewMatch(strings.Join(sel.consumed, ""), remaining, variables, detail, pipeline)
}

func (s *selection[D]) contributes(remaining string) bool {
	for _, e := range s.entries {
		if e.contributes(remaining) {
			return true
		}
	}
	return false
}

func matchResult(fallback bool, handlers int, remaining string) string {
	switch {
	case handlers == 0:
		return resultNone
	case fallback:
		return resultFallback
	case remaining == "":
		return resultExact
	default:
		return resultPartial
	}
}

// Clear removes every route and resets the node counter.
func (r *Router[D]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = newEntrySet[D]()
	r.counter = 0

	if r.metrics != nil {
		r.metrics.setNodes(r.name, 0)
	}
}

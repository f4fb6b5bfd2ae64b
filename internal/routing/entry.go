package routing

import (
	"regexp"

	"github.com/rafaelDom/TestJuridoc/internal/observable"
)

// entryKey identifies a child entry. Literal children are keyed by their
// token, variable children by the pattern source.
type entryKey struct {
	variable bool
	token    string
}

// entry is a trie node.
type entry[D any] struct {
	key      entryKey
	pattern  *regexp.Regexp
	variable string
	children *entrySet[D]

	exactEnvironment   Variables
	defaultEnvironment Variables

	onExactMatch *observable.Subject[*Match[D]]
	onMatch      *observable.Subject[*Match[D]]
}

func newEntry[D any](key entryKey, pattern *regexp.Regexp, variable string) *entry[D] {
	return &entry[D]{
		key:                key,
		pattern:            pattern,
		variable:           variable,
		children:           newEntrySet[D](),
		exactEnvironment:   Variables{},
		defaultEnvironment: Variables{},
		onExactMatch:       observable.NewSubject[*Match[D]](),
		onMatch:            observable.NewSubject[*Match[D]](),
	}
}

// contributes reports whether the entry adds handlers to a match with the
// given remaining path.
func (e *entry[D]) contributes(remaining string) bool {
	return e.onMatch.Len() > 0 || (remaining == "" && e.onExactMatch.Len() > 0)
}

// entrySet keeps children in insertion order.
type entrySet[D any] struct {
	order   []*entry[D]
	entries map[entryKey]*entry[D]
}

func newEntrySet[D any]() *entrySet[D] {
	return &entrySet[D]{entries: make(map[entryKey]*entry[D])}
}

func (s *entrySet[D]) get(key entryKey) (*entry[D], bool) {
	e, ok := s.entries[key]
	return e, ok
}

func (s *entrySet[D]) put(e *entry[D]) {
	s.entries[e.key] = e
	s.order = append(s.order, e)
}

// search returns the children matching token in insertion order, binding
// variable children's names to the token value. The separator is stripped
// only when token carries it: a segment written in variable syntax is
// tokenized to its bare capture.
func (s *entrySet[D]) search(token, separator string, variables Variables) []*entry[D] {
	var matched []*entry[D]
	value := token
	if len(value) >= len(separator) && value[:len(separator)] == separator {
		value = value[len(separator):]
	}

	for _, e := range s.order {
		if e.pattern != nil {
			if matchesFully(e.pattern, value) {
				if _, exists := variables[e.variable]; !exists {
					variables[e.variable] = value
				}
				matched = append(matched, e)
			}
			continue
		}
		if e.key.token == token {
			matched = append(matched, e)
		}
	}

	return matched
}

// mergeMissing copies keys of src absent from dst. Keys already in dst win.
func mergeMissing(dst, src Variables) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

// merge returns a new bag holding base overlaid by top.
func merge(base, top Variables) Variables {
	out := make(Variables, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

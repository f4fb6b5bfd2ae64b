package routing

import (
	"regexp"
	"strings"

	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// Default settings used by the HTTP back end.
const (
	// DefaultSeparator separates path segments.
	DefaultSeparator = "/"

	// DefaultVariable is the syntax of a variable segment in a route template.
	DefaultVariable = `^\{([a-z_0-9]+)\}$`
)

// Variables is a bag of values bound to a request: path variables, route
// environments and the request environment.
type Variables map[string]any

// Constraint maps a variable name to the pattern its segment must match.
type Constraint map[string]*regexp.Regexp

// Settings configures how paths are tokenized.
type Settings struct {
	Separator string
	Variable  *regexp.Regexp
}

// DefaultSettings returns the separator "/" and the "{name}" variable syntax.
func DefaultSettings() Settings {
	return Settings{
		Separator: DefaultSeparator,
		Variable:  regexp.MustCompile(DefaultVariable),
	}
}

// NewSettings compiles the variable syntax and validates the result.
func NewSettings(separator, variable string) (Settings, error) {
	re, err := regexp.Compile(variable)
	if err != nil {
		return Settings{}, util.NewConfigErrorWithCause("routing.variable", "invalid variable pattern", err)
	}

	settings := Settings{Separator: separator, Variable: re}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks that the settings can tokenize a path.
func (s Settings) Validate() error {
	if s.Separator == "" {
		return util.NewConfigError("routing.separator", "separator is required")
	}
	if s.Variable == nil {
		return util.NewConfigError("routing.variable", "variable pattern is required")
	}
	return nil
}

// Split tokenizes path. Empty segments are skipped. A segment matching the
// variable syntax in full yields its first capture group (or the whole
// segment without one), any other segment yields separator+segment. A path
// without segments yields a single separator token.
func (s Settings) Split(path string) []string {
	tokens := make([]string, 0, strings.Count(path, s.Separator)+1)

	for _, segment := range strings.Split(path, s.Separator) {
		if segment == "" {
			continue
		}

		if loc := s.Variable.FindStringSubmatchIndex(segment); isFullMatch(loc, segment) {
			if len(loc) >= 4 && loc[2] >= 0 && loc[3] > loc[2] {
				tokens = append(tokens, segment[loc[2]:loc[3]])
			} else {
				tokens = append(tokens, segment)
			}
			continue
		}

		tokens = append(tokens, s.Separator+segment)
	}

	if len(tokens) == 0 {
		tokens = append(tokens, s.Separator)
	}

	return tokens
}

// isFullMatch reports whether the leftmost match spans the whole value.
func isFullMatch(loc []int, value string) bool {
	return loc != nil && loc[0] == 0 && loc[1] == len(value)
}

// matchesFully reports whether re's leftmost match covers value entirely.
func matchesFully(re *regexp.Regexp, value string) bool {
	return isFullMatch(re.FindStringIndex(value), value)
}

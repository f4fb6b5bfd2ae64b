package filters

import (
	"fmt"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// options holds the collaborators shared by the filters.
type options struct {
	logger  observability.Logger
	metrics *Metrics
}

// Option is a functional option for the filters.
type Option func(*options)

// WithLogger sets the logger of a filter.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics of a filter.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.NopLogger()
	}
	return o
}

// splitArgs separates the settings argument of a type constructor from the
// options following it.
func splitArgs[S any](field string, args []any) (S, []Option, error) {
	var settings S
	if len(args) == 0 {
		return settings, nil, util.NewConfigError(field, "settings are required")
	}

	switch s := args[0].(type) {
	case S:
		settings = s
	case *S:
		if s == nil {
			return settings, nil, util.NewConfigError(field, "settings are required")
		}
		settings = *s
	default:
		return settings, nil, util.NewConfigError(field, fmt.Sprintf("unexpected settings type %T", args[0]))
	}

	opts := make([]Option, 0, len(args)-1)
	for i, arg := range args[1:] {
		opt, ok := arg.(Option)
		if !ok {
			return settings, nil, util.NewConfigError(field, fmt.Sprintf("argument %d is not an option", i+1))
		}
		opts = append(opts, opt)
	}

	return settings, opts, nil
}

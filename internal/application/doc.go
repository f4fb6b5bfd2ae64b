// Package application provides the two-phase request dispatcher.
//
// A Main owns two routers. Filters are matched by prefix and decide
// whether the current step is granted; processors are matched exactly and
// produce the response. Dispatch interleaves them: on every step a fresh
// filter match runs, then one processor runs if the step was granted.
//
// Handler types are described with a Type that lists its Filter and
// Processor declarations. AddHandler constructs one instance per call
// through the Injector and binds each declared method by name:
//
//	var UsersType = &application.Type{
//	    Name: "users",
//	    New:  func(args ...any) (any, error) { return &Users{}, nil },
//	    Routes: []application.Declaration{
//	        application.Filter("Authorize", application.Action{Path: "/users"}),
//	        application.Processor("Get", application.Action{
//	            Path:       "/users/{id}",
//	            Constraint: routing.Constraint{"id": regexp.MustCompile(`^\d+$`)},
//	        }),
//	    },
//	}
//
// Filter methods have the signature
//
//	func(ctx context.Context, m *application.Match[I, O]) (bool, error)
//
// and processor methods
//
//	func(ctx context.Context, m *application.Match[I, O]) error
//
// Services feed requests into the dispatcher. Start subscribes the
// dispatcher to every service's OnReceive subject and starts the service.
package application

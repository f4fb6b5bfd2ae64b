package application

import "errors"

// Lifecycle errors.
var (
	// ErrAlreadyStarted is returned by Start when the application is running.
	ErrAlreadyStarted = errors.New("application is already initialized")

	// ErrNotStarted is returned by Stop when the application is stopped.
	ErrNotStarted = errors.New("application is not initialized")

	// ErrAddWhileStarted is returned when handlers or services are added to
	// a running application.
	ErrAddWhileStarted = errors.New("application must be stopped to add handlers or services")
)

package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input,
	// including unknown entity or relation types at the boundary.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransientStore marks a persistence failure that a traversal
	// records and routes around instead of aborting the whole pass.
	ErrTransientStore = errors.New("transient store failure")
	// ErrConfiguration marks broken startup configuration. Fatal at
	// boot, never returned from request paths.
	ErrConfiguration = errors.New("invalid configuration")
)

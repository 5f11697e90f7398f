package dispatch

import "errors"

var (
	// ErrInvalidAction marks a validation failure. Nothing was touched on the
	// host when an error wraps it.
	ErrInvalidAction = errors.New("invalid action")
	// ErrNotConfigured marks an action whose required collaborator was not
	// supplied, as opposed to one that failed at runtime.
	ErrNotConfigured = errors.New("collaborator not configured")
)

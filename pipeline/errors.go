package pipeline

import "errors"

var (
	// ErrModelRequired is returned when no model is provided.
	ErrModelRequired = errors.New("model required")

	// ErrSystemicFailure is returned when fatal model errors across files
	// suggest nothing will succeed, e.g. bad credentials.
	ErrSystemicFailure = errors.New("systemic model failure")
)

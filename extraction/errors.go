package extraction

import (
	"errors"
	"fmt"

	"github.com/poiesic/codemine/core"
)

var (
	// ErrGaveUp indicates retryable failures exhausted every attempt.
	ErrGaveUp = errors.New("gave up after retries")

	// ErrFatal indicates a failure that retrying cannot fix.
	ErrFatal = errors.New("fatal model error")

	// ErrCanceled indicates the caller's context ended the extraction.
	ErrCanceled = errors.New("extraction canceled")
)

// Error describes why a chunk could not be extracted.
type Error struct {
	Chunk    core.ChunkRef
	Attempts int
	Outcome  core.Outcome
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v after %d attempt(s): %v", e.Chunk, e.sentinel(), e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *Error) sentinel() error {
	switch e.Outcome {
	case core.OutcomeFatal:
		return ErrFatal
	case core.OutcomeCanceled:
		return ErrCanceled
	default:
		return ErrGaveUp
	}
}

// OutcomeOf returns the outcome recorded in err, or core.OutcomeTransient
// for errors that did not come from a Client.
func OutcomeOf(err error) core.Outcome {
	var e *Error
	if errors.As(err, &e) {
		return e.Outcome
	}
	return core.OutcomeTransient
}

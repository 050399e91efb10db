package repair

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparseable indicates the cleaned text is still not valid JSON.
	ErrUnparseable = errors.New("response is not valid JSON")

	// ErrSchemaInvalid indicates the JSON parsed but does not match the schema.
	ErrSchemaInvalid = errors.New("response does not match schema")
)

// Error is a repair failure. It matches its Kind with errors.Is and
// carries the text as it stood after the rule chain ran.
type Error struct {
	Kind    error
	Cleaned string
	Applied []string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

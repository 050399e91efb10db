package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorKind classifies a model failure for retry decisions.
type ErrorKind int

const (
	// KindTransient covers network errors, timeouts and 5xx responses. Retryable.
	KindTransient ErrorKind = iota
	// KindRateLimited means the service asked the caller to slow down. Retryable.
	KindRateLimited
	// KindFatal covers authentication, malformed requests and oversized input.
	// Retrying cannot help.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// Retryable reports whether a failure of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return k != KindFatal
}

// ErrEmptyResponse indicates the backend returned no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// ModelError is a classified model failure.
type ModelError struct {
	Kind       ErrorKind
	StatusCode int // HTTP status when known, otherwise 0
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s model error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s model error: %v", e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError wraps err with an explicit kind.
func NewModelError(kind ErrorKind, err error) *ModelError {
	return &ModelError{Kind: kind, Err: err}
}

// KindOf returns the kind of err. Errors that carry no *ModelError are
// classified from their message.
func KindOf(err error) ErrorKind {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Kind
	}
	return classify(err.Error()).Kind
}

// Classify wraps a backend error in a *ModelError. Already classified
// errors and nil are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var me *ModelError
	if errors.As(err, &me) {
		return err
	}
	c := classify(err.Error())
	c.Err = err
	return c
}

var statusPattern = regexp.MustCompile(`(?i)status(?:\s*code)?[:= ]+(\d{3})`)

var (
	rateLimitMarkers = []string{"rate limit", "rate_limit", "ratelimit", "too many requests", "429"}
	fatalMarkers     = []string{
		"invalid api key", "invalid_api_key", "incorrect api key", "unauthorized",
		"permission denied", "context_length_exceeded", "maximum context length",
		"model_not_found", "does not exist", "invalid_request_error",
	}
)

func classify(msg string) *ModelError {
	lower := strings.ToLower(msg)

	status := 0
	if m := statusPattern.FindStringSubmatch(lower); m != nil {
		status, _ = strconv.Atoi(m[1])
	}

	switch status {
	case 429:
		return &ModelError{Kind: KindRateLimited, StatusCode: status}
	case 400, 401, 403, 404, 413, 422:
		return &ModelError{Kind: KindFatal, StatusCode: status}
	}

	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return &ModelError{Kind: KindRateLimited, StatusCode: status}
		}
	}
	for _, marker := range fatalMarkers {
		if strings.Contains(lower, marker) {
			return &ModelError{Kind: KindFatal, StatusCode: status}
		}
	}
	return &ModelError{Kind: KindTransient, StatusCode: status}
}

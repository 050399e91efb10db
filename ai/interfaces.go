package ai

import "context"

// Request is a single prompt sent to a Model.
type Request struct {
	// System is the system instruction. May be empty.
	System string

	// Prompt is the user message.
	Prompt string

	// JSON asks the backend to constrain output to a JSON object when it can.
	JSON bool
}

// Model completes prompts. Implementations must be thread-safe for concurrent use.
type Model interface {
	// Complete sends req and returns the raw text of the first choice.
	// Errors should be classifiable with KindOf; implementations wrap
	// backend failures with Classify.
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
type Provider interface {
	// Model returns the completion service.
	// The returned Model is safe for concurrent use.
	Model() Model

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

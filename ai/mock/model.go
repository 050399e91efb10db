package mock

import (
	"context"
	"sync"

	"github.com/poiesic/codemine/ai"
)

// DefaultResponse is returned by MockModel when no behavior is injected.
// It is a valid extraction record.
const DefaultResponse = `{"overview":"mock overview","methods":[],"complexity":"low"}`

// Response is one scripted reply.
type Response struct {
	Text string
	Err  error
}

// MockModel is a test double for ai.Model.
// It allows custom behavior injection via function fields or a scripted
// sequence of responses, and is safe for concurrent use.
type MockModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, scripted responses are used, then DefaultResponse.
	CompleteFunc func(ctx context.Context, req ai.Request) (string, error)

	mu        sync.Mutex
	script    []Response
	requests  []ai.Request
	callCount int
}

// NewMockModel creates a mock model with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// WithCompleteFunc sets custom behavior for Complete.
func (m *MockModel) WithCompleteFunc(fn func(ctx context.Context, req ai.Request) (string, error)) *MockModel {
	m.CompleteFunc = fn
	return m
}

// WithResponses queues replies returned in order, one per call.
// Once the queue is exhausted DefaultResponse is returned.
func (m *MockModel) WithResponses(responses ...Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
	return m
}

// Complete records the request and returns the injected or scripted reply.
func (m *MockModel) Complete(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	fn := m.CompleteFunc
	var next *Response
	if fn == nil && len(m.script) > 0 {
		next = &m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if next != nil {
		return next.Text, next.Err
	}
	return DefaultResponse, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received.
func (m *MockModel) Requests() []ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears the call count, recorded requests, script and custom functions.
func (m *MockModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.script = nil
	m.CompleteFunc = nil
}

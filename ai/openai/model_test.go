package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/codemine/ai"
)

type fakeClient struct {
	response *llms.ContentResponse
	err      error

	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeClient) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	return f.response, f.err
}

func (f *fakeClient) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestModel_Complete(t *testing.T) {
	client := &fakeClient{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: `{"overview":"x"}`}},
	}}
	m := newModelWithClient(client, ai.NewConfig(ai.WithMaxTokens(512)))

	text, err := m.Complete(context.Background(), ai.Request{
		System: "be terse",
		Prompt: "describe this",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"overview":"x"}`, text)

	require.Len(t, client.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, client.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, client.messages[1].Role)
	assert.Equal(t, llms.TextPart("describe this"), client.messages[1].Parts[0])
	assert.True(t, client.options.JSONMode)
	assert.Equal(t, 0.0, client.options.Temperature)
	assert.Equal(t, 512, client.options.MaxTokens)
}

func TestModel_Complete_NoSystemPrompt(t *testing.T) {
	client := &fakeClient{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "ok"}},
	}}
	m := newModelWithClient(client, ai.DefaultConfig())

	_, err := m.Complete(context.Background(), ai.Request{Prompt: "hi"})
	require.NoError(t, err)
	require.Len(t, client.messages, 1)
	assert.False(t, client.options.JSONMode)
}

func TestModel_Complete_ClassifiesErrors(t *testing.T) {
	client := &fakeClient{err: errors.New("API returned unexpected status code: 429: Rate limit reached")}
	m := newModelWithClient(client, ai.DefaultConfig())

	_, err := m.Complete(context.Background(), ai.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, ai.KindRateLimited, ai.KindOf(err))
}

func TestModel_Complete_EmptyChoices(t *testing.T) {
	client := &fakeClient{response: &llms.ContentResponse{}}
	m := newModelWithClient(client, ai.DefaultConfig())

	_, err := m.Complete(context.Background(), ai.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	assert.Equal(t, ai.KindTransient, ai.KindOf(err))
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{Host: "http://localhost:11434"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model is required")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ai.DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, p.Model())
	assert.NoError(t, p.Close())
}

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/codemine/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model implements ai.Model on a langchaingo chat client.
type Model struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func newModel(config *ai.Config) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return newModelWithClient(client, config), nil
}

func newModelWithClient(client llms.Model, config *ai.Config) *Model {
	return &Model{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-model", "model", config.Model),
	}
}

// NewModel creates a Model for an OpenAI-compatible host.
func NewModel(config *ai.Config) (ai.Model, error) {
	return newModel(config)
}

// Complete sends one chat completion request. Backend errors are returned
// classified; an empty choice list is a transient failure.
func (m *Model) Complete(ctx context.Context, req ai.Request) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		content = append(content, llms.MessageContent{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(req.System),
			},
		})
	}
	content = append(content, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(req.Prompt),
		},
	})

	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}

	response, err := m.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		m.logger.Debug("failed to generate content", "err", err)
		return "", ai.Classify(err)
	}

	if len(response.Choices) < 1 {
		m.logger.Debug("no choices returned from model")
		return "", ai.NewModelError(ai.KindTransient, ai.ErrEmptyResponse)
	}

	return response.Choices[0].Content, nil
}

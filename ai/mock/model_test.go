package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/codemine/ai"
)

func TestMockModel_Default(t *testing.T) {
	m := NewMockModel()

	text, err := m.Complete(context.Background(), ai.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, text)
	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, []ai.Request{{Prompt: "p"}}, m.Requests())
}

func TestMockModel_Script(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel().WithResponses(
		Response{Err: boom},
		Response{Text: "second"},
	)

	_, err := m.Complete(context.Background(), ai.Request{})
	assert.ErrorIs(t, err, boom)

	text, err := m.Complete(context.Background(), ai.Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	text, err = m.Complete(context.Background(), ai.Request{})
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, text, "falls back once the script is exhausted")
}

func TestMockModel_CompleteFunc(t *testing.T) {
	m := NewMockModel().WithCompleteFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "echo:" + req.Prompt, nil
	})

	text, err := m.Complete(context.Background(), ai.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", text)
}

func TestMockModel_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockModel().Complete(ctx, ai.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockModel_Concurrent(t *testing.T) {
	m := NewMockModel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Complete(context.Background(), ai.Request{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.CallCount())
	assert.Len(t, m.Requests(), 50)
}

func TestMockModel_Reset(t *testing.T) {
	m := NewMockModel().WithResponses(Response{Text: "queued"})
	_, _ = m.Complete(context.Background(), ai.Request{})
	m.Reset()

	assert.Equal(t, 0, m.CallCount())
	assert.Empty(t, m.Requests())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	require.NotNil(t, p.Model())
	assert.Same(t, p.(*MockProvider).GetMockModel(), p.Model())
	assert.NoError(t, p.Close())
}

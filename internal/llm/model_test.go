package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerateJSON(t *testing.T) {
	fake := &fakeLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        `{"segments":[]}`,
		GenerationInfo: map[string]any{"PromptTokens": 120, "CompletionTokens": 45},
	}}}}
	m := NewModelFrom(fake, "gpt-test", 0.7, nil)

	gen, err := m.GenerateJSON(context.Background(), "system", "user")
	require.NoError(t, err)

	assert.Equal(t, `{"segments":[]}`, gen.Content)
	assert.Equal(t, int64(120), gen.InputTokens)
	assert.Equal(t, int64(45), gen.OutputTokens)
	assert.True(t, fake.opts.JSONMode)
	assert.Equal(t, 0.7, fake.opts.Temperature)
	require.Len(t, fake.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
}

func TestGenerateJSONErrors(t *testing.T) {
	m := NewModelFrom(&fakeLLM{err: errors.New("HTTP 401: invalid api key")}, "gpt-test", 0.7, nil)
	_, err := m.GenerateJSON(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrFatalAPI)

	m = NewModelFrom(&fakeLLM{resp: &llms.ContentResponse{}}, "gpt-test", 0.7, nil)
	_, err = m.GenerateJSON(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestTokenUsage(t *testing.T) {
	in, out := tokenUsage(map[string]any{"InputTokens": int64(10), "OutputTokens": 3.0})
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(3), out)

	in, out = tokenUsage(nil)
	assert.Zero(t, in)
	assert.Zero(t, out)
}

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("embed: %w", errors.New("credit balance too low")), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isFatalAPIError(tt.err)
			if got != tt.fatal {
				t.Errorf("isFatalAPIError(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	t.Run("wraps fatal error", func(t *testing.T) {
		err := errors.New("invalid api key provided")
		wrapped := wrapFatalError(err)
		if !errors.Is(wrapped, ErrFatalAPI) {
			t.Errorf("expected wrapped error to match ErrFatalAPI")
		}
	})

	t.Run("passes through non-fatal error", func(t *testing.T) {
		err := errors.New("network timeout")
		result := wrapFatalError(err)
		if errors.Is(result, ErrFatalAPI) {
			t.Errorf("non-fatal error should not be wrapped with ErrFatalAPI")
		}
		if result != err {
			t.Errorf("expected original error returned, got %v", result)
		}
	})

	t.Run("nil error", func(t *testing.T) {
		result := wrapFatalError(nil)
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generation is one completed LLM call.
type Generation struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm         llms.Model
	modelName   string
	temperature float64
	logger      *slog.Logger
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithFormat("json"),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		client, clientErr := newBedrockClient(ctx, cfg)
		if clientErr != nil {
			return nil, clientErr
		}
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewModelFrom(model, cfg.LLMModel, cfg.LLMTemperature, logger), nil
}

// NewModelFrom wraps an existing langchaingo model.
func NewModelFrom(model llms.Model, name string, temperature float64, logger *slog.Logger) *Model {
	return &Model{
		llm:         model,
		modelName:   name,
		temperature: temperature,
		logger:      config.Component(logger, "llm"),
	}
}

// GenerateJSON sends a system and user prompt and asks for a JSON object reply.
func (m *Model) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (Generation, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(m.temperature),
		llms.WithJSONMode(),
	)
	duration := time.Since(start)
	if err != nil {
		m.logger.Warn("generation failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return Generation{}, fmt.Errorf("generate json: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return Generation{}, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	m.logger.Debug("generation complete", "model", m.modelName, "duration_ms", duration.Milliseconds(),
		"input_tokens", in, "output_tokens", out)

	return Generation{
		Content:      choice.Content,
		InputTokens:  in,
		OutputTokens: out,
		Duration:     duration,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// tokenUsage reads token counts from provider-specific generation info keys.
func tokenUsage(info map[string]any) (input, output int64) {
	for _, k := range []string{"PromptTokens", "InputTokens", "input_tokens"} {
		if v, ok := asInt64(info[k]); ok {
			input = v
			break
		}
	}
	for _, k := range []string{"CompletionTokens", "OutputTokens", "output_tokens"} {
		if v, ok := asInt64(info[k]); ok {
			output = v
			break
		}
	}
	return input, output
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

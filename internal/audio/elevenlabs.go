// Package audio synthesizes speech and mixes segments into an episode.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/httpapi"
	"github.com/raphaelgruber/briefcast/internal/metrics"
)

// DefaultElevenLabsURL is the ElevenLabs REST endpoint.
const DefaultElevenLabsURL = "https://api.elevenlabs.io/v1"

var (
	// ErrRateLimited is returned when the TTS provider keeps answering 429.
	ErrRateLimited = httpapi.ErrRateLimited

	// ErrEmptyAudio is returned when the provider responds with no bytes.
	ErrEmptyAudio = errors.New("empty audio response")
)

// VoiceSettings tunes ElevenLabs voice rendering.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey   string
	model    string
	baseURL  string
	settings VoiceSettings
	client   *http.Client
	policy   httpapi.Policy
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// ElevenLabsOption configures an ElevenLabs client.
type ElevenLabsOption func(*ElevenLabs)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ElevenLabsOption { return func(e *ElevenLabs) { e.baseURL = u } }

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) ElevenLabsOption { return func(e *ElevenLabs) { e.client = c } }

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p httpapi.Policy) ElevenLabsOption { return func(e *ElevenLabs) { e.policy = p } }

// WithMetrics records synthesis timings.
func WithMetrics(c *metrics.Collector) ElevenLabsOption { return func(e *ElevenLabs) { e.metrics = c } }

// NewElevenLabs creates a synthesizer for model (e.g. "eleven_turbo_v2_5").
func NewElevenLabs(apiKey, model string, logger *slog.Logger, opts ...ElevenLabsOption) *ElevenLabs {
	e := &ElevenLabs{
		apiKey:   apiKey,
		model:    model,
		baseURL:  DefaultElevenLabsURL,
		settings: VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		client:   &http.Client{Timeout: 30 * time.Second},
		policy:   httpapi.DefaultPolicy,
		logger:   config.Component(logger, "elevenlabs"),
	}
	for _, o := range opts {
		o(e)
	}
	if e.policy.Notify == nil {
		e.policy.Notify = func(err error, next time.Duration) {
			e.logger.Warn("tts request failed, retrying", "error", err, "retry_in_ms", next.Milliseconds())
		}
	}
	return e
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize returns mp3 audio for text spoken by voiceID.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		return nil, errors.New("synthesize: voice id required")
	}

	payload, err := json.Marshal(ttsRequest{Text: text, ModelID: e.model, VoiceSettings: e.settings})
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, voiceID)

	start := time.Now()
	audio, err := httpapi.Do(ctx, e.client, "elevenlabs", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("xi-api-key", e.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		return req, nil
	}, e.policy)
	e.metrics.Since(metrics.OpTTS, start)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.logger.Error("ElevenLabs API rate limit exceeded")
		}
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	e.logger.Debug("synthesized segment", "chars", len(text), "bytes", len(audio),
		"duration_ms", time.Since(start).Milliseconds())
	return audio, nil
}

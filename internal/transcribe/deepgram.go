// Package transcribe converts downloaded audio into text with Deepgram.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/httpapi"
	"github.com/raphaelgruber/briefcast/internal/metrics"
)

// DefaultBaseURL is the Deepgram REST endpoint.
const DefaultBaseURL = "https://api.deepgram.com/v1"

// ErrNoTranscript is returned when the response has no alternatives.
var ErrNoTranscript = errors.New("no transcript in response")

// Deepgram transcribes prerecorded audio files.
type Deepgram struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	policy  httpapi.Policy
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option configures a Deepgram client.
type Option func(*Deepgram)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option { return func(d *Deepgram) { d.baseURL = u } }

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(d *Deepgram) { d.client = c } }

// WithPolicy sets the retry policy.
func WithPolicy(p httpapi.Policy) Option { return func(d *Deepgram) { d.policy = p } }

// WithMetrics records transcription timings.
func WithMetrics(c *metrics.Collector) Option { return func(d *Deepgram) { d.metrics = c } }

// NewDeepgram creates a transcriber using model (e.g. "nova-2").
func NewDeepgram(apiKey, model string, logger *slog.Logger, opts ...Option) *Deepgram {
	d := &Deepgram{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		policy:  httpapi.DefaultPolicy,
		logger:  config.Component(logger, "deepgram"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe uploads the file at audioPath and returns the transcript.
func (d *Deepgram) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	q := url.Values{}
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	endpoint := d.baseURL + "/listen?" + q.Encode()

	start := time.Now()
	body, err := httpapi.Do(ctx, d.client, "deepgram", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Token "+d.apiKey)
		req.Header.Set("Content-Type", "audio/mpeg")
		return req, nil
	}, d.policy)
	d.metrics.Since(metrics.OpTranscribe, start)
	if err != nil {
		d.logger.Error("transcription failed", "path", audioPath, "error", err)
		return "", fmt.Errorf("transcribe: %w", err)
	}

	var resp listenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", ErrNoTranscript
	}

	transcript := resp.Results.Channels[0].Alternatives[0].Transcript
	d.logger.Info("transcription complete", "path", audioPath, "chars", len(transcript),
		"duration_ms", time.Since(start).Milliseconds())
	return transcript, nil
}

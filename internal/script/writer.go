// Package script turns unique news items into an ordered podcast script.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/llm"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/models"
)

// ErrInvalidScript is returned when the model reply does not match the segment schema.
var ErrInvalidScript = errors.New("invalid script")

// Generator produces a JSON reply for a system and user prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (llm.Generation, error)
}

var _ Generator = (*llm.Model)(nil)

// Writer generates scripts with an LLM.
type Writer struct {
	gen     Generator
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewWriter creates a script writer. m may be nil.
func NewWriter(gen Generator, m *metrics.Collector, logger *slog.Logger) *Writer {
	return &Writer{gen: gen, metrics: m, logger: config.Component(logger, "script")}
}

// Generate writes the script for items in the given mode.
func (w *Writer) Generate(ctx context.Context, items []models.NewsItem, mode models.Mode) ([]models.ScriptSegment, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no news items", ErrInvalidScript)
	}

	system := SystemPrompt(mode, BuildContext(items))
	gen, err := w.gen.GenerateJSON(ctx, system, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}
	w.metrics.RecordLLMUsage(metrics.OpLLMGenerate, gen.Duration, gen.InputTokens, gen.OutputTokens)

	segments, err := Parse(gen.Content)
	if err != nil {
		w.logger.Warn("model returned unusable script", "error", err, "reply_chars", len(gen.Content))
		return nil, err
	}

	w.logger.Info("generated script", "mode", mode, "items", len(items), "segments", len(segments),
		"input_tokens", gen.InputTokens, "output_tokens", gen.OutputTokens)
	return segments, nil
}

type scriptReply struct {
	Segments []rawSegment `json:"segments"`
}

type rawSegment struct {
	Type string `json:"segment_type"`
	Text string `json:"text"`
}

// Parse decodes and validates a model reply. Markdown code fences are tolerated.
func Parse(reply string) ([]models.ScriptSegment, error) {
	body := stripFences(reply)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidScript)
	}

	var parsed scriptReply
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if len(parsed.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrInvalidScript)
	}

	segments := make([]models.ScriptSegment, 0, len(parsed.Segments))
	for i, raw := range parsed.Segments {
		seg := models.ScriptSegment{
			Type: models.SegmentType(strings.TrimSpace(raw.Type)),
			Text: strings.TrimSpace(raw.Text),
		}
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %w", ErrInvalidScript, i, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

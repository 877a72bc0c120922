// Package memory implements Story Memory, the embedding-based deduplication engine.
//
// A story is a duplicate when its nearest stored neighbour has cosine
// similarity strictly greater than the threshold. Stories are keyed by a hash
// of their URL, so storing the same URL twice keeps a single entry.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/models"
)

// DefaultThreshold is the similarity above which a story counts as already seen.
const DefaultThreshold = 0.85

var (
	// ErrEmbedding wraps failures from the embedding provider.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex wraps failures from the vector index.
	ErrIndex = errors.New("story index failed")
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the persistent vector store behind Story Memory.
// QueryNearestStories returns matches ordered nearest first.
type Index interface {
	QueryNearestStories(ctx context.Context, embedding []float32, k int) ([]models.StoryMatch, error)
	QueryUpsertStory(ctx context.Context, story models.Story) error
}

// Verdict is the outcome of a duplicate check.
type Verdict struct {
	// Item carries the computed embedding.
	Item       models.NewsItem
	Duplicate  bool
	Similarity float64
	// Match is the nearest stored story, nil when memory is empty.
	Match *models.StoryMatch
}

// StoryMemory checks and records stories against an Index.
type StoryMemory struct {
	embedder Embedder
	index    Index
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// Option configures a StoryMemory.
type Option func(*StoryMemory)

// WithMetrics records embed and index timings into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *StoryMemory) { m.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *StoryMemory) { m.logger = config.Component(l, "memory") }
}

// New creates a StoryMemory.
func New(embedder Embedder, index Index, opts ...Option) *StoryMemory {
	m := &StoryMemory{
		embedder: embedder,
		index:    index,
		logger:   config.Component(nil, "memory"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// IsDuplicate reports whether item is semantically redundant with a stored story.
// The returned item carries its embedding so a following AddStory does not recompute it.
func (m *StoryMemory) IsDuplicate(ctx context.Context, item models.NewsItem, threshold float64) (models.NewsItem, bool, error) {
	v, err := m.Check(ctx, item, threshold)
	if err != nil {
		return item, false, err
	}
	return v.Item, v.Duplicate, nil
}

// Check performs the duplicate test and reports the nearest match.
func (m *StoryMemory) Check(ctx context.Context, item models.NewsItem, threshold float64) (Verdict, error) {
	item, err := m.ensureEmbedding(ctx, item)
	if err != nil {
		return Verdict{Item: item}, err
	}

	start := time.Now()
	matches, err := m.index.QueryNearestStories(ctx, item.Embedding, 1)
	m.metrics.Since(metrics.OpIndexQuery, start)
	if err != nil {
		return Verdict{Item: item}, fmt.Errorf("%w: nearest for %s: %w", ErrIndex, item.URL, err)
	}

	v := Verdict{Item: item}
	if len(matches) == 0 {
		return v, nil
	}

	nearest := matches[0]
	v.Match = &nearest
	v.Similarity = nearest.Similarity()
	v.Duplicate = v.Similarity > threshold

	if v.Duplicate {
		m.logger.Info("duplicate detected",
			"title", item.Title,
			"similarity", fmt.Sprintf("%.2f%%", v.Similarity*100),
			"existing_title", nearest.Story.Title)
	}
	return v, nil
}

// AddStory stores item, computing its embedding only if absent.
// Storing the same URL again overwrites the single existing entry.
func (m *StoryMemory) AddStory(ctx context.Context, item models.NewsItem) (models.NewsItem, error) {
	item, err := m.ensureEmbedding(ctx, item)
	if err != nil {
		return item, err
	}

	start := time.Now()
	err = m.index.QueryUpsertStory(ctx, models.StoryFromItem(item))
	m.metrics.Since(metrics.OpIndexUpsert, start)
	if err != nil {
		return item, fmt.Errorf("%w: upsert %s: %w", ErrIndex, item.URL, err)
	}

	m.logger.Info("added story to memory", "title", item.Title, "id", item.StoryID())
	return item, nil
}

// Search returns the k stored stories nearest to free text.
func (m *StoryMemory) Search(ctx context.Context, text string, k int) ([]models.StoryMatch, error) {
	vec, err := m.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrEmbedding, err)
	}

	start := time.Now()
	matches, err := m.index.QueryNearestStories(ctx, vec, k)
	m.metrics.Since(metrics.OpIndexQuery, start)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrIndex, err)
	}
	return matches, nil
}

func (m *StoryMemory) ensureEmbedding(ctx context.Context, item models.NewsItem) (models.NewsItem, error) {
	if item.HasEmbedding() {
		return item, nil
	}
	if err := item.Validate(); err != nil {
		return item, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	vec, err := m.embed(ctx, item.ContentSummary)
	if err != nil {
		return item, fmt.Errorf("%w: %s: %w", ErrEmbedding, item.URL, err)
	}
	return item.WithEmbedding(vec), nil
}

func (m *StoryMemory) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := m.embedder.Embed(ctx, text)
	m.metrics.Since(metrics.OpEmbedding, start)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errors.New("empty embedding")
	}
	return vec, nil
}

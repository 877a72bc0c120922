package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors and counts calls.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingIndex struct{ err error }

func (f failingIndex) QueryNearestStories(context.Context, []float32, int) ([]models.StoryMatch, error) {
	return nil, f.err
}

func (f failingIndex) QueryUpsertStory(context.Context, models.Story) error { return f.err }

const (
	asxMining  = "ASX up 2% on mining rally"
	asxShares  = "Australian shares rise 2% led by miners"
	rbaHold    = "RBA holds cash rate steady"
	similarity = 0.91
)

// vectorAt returns a unit vector with cosine `cos` to (1,0,0).
func vectorAt(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos)), 0}
}

func newsItem(url, summary string) models.NewsItem {
	return models.NewsItem{
		SourceID:       "rss_test",
		Title:          summary,
		URL:            url,
		PublishedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ContentSummary: summary,
	}
}

func setup() (*StoryMemory, *fakeEmbedder, *MemIndex) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		asxMining: vectorAt(1),
		asxShares: vectorAt(similarity),
		rbaHold:   {0, 0, 1},
	}}
	idx := NewMemIndex()
	return New(emb, idx, WithMetrics(metrics.NewCollector())), emb, idx
}

func TestEmptyMemoryIsNeverDuplicate(t *testing.T) {
	for _, threshold := range []float64{-1, 0, 0.5, DefaultThreshold, 1} {
		mem, _, _ := setup()
		item, dup, err := mem.IsDuplicate(context.Background(), newsItem("https://a", asxMining), threshold)
		require.NoError(t, err)
		assert.False(t, dup, "threshold %v", threshold)
		assert.True(t, item.HasEmbedding())
	}
}

func TestAddStoryIdempotent(t *testing.T) {
	mem, _, idx := setup()
	ctx := context.Background()

	item := newsItem("https://news.example/asx", asxMining)
	_, err := mem.AddStory(ctx, item)
	require.NoError(t, err)
	_, err = mem.AddStory(ctx, item)
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
}

func TestParaphraseIsDuplicate(t *testing.T) {
	mem, _, _ := setup()
	ctx := context.Background()

	_, err := mem.AddStory(ctx, newsItem("https://outlet-a/asx", asxMining))
	require.NoError(t, err)

	v, err := mem.Check(ctx, newsItem("https://outlet-b/asx", asxShares), DefaultThreshold)
	require.NoError(t, err)
	assert.True(t, v.Duplicate)
	assert.InDelta(t, similarity, v.Similarity, 1e-4)
	require.NotNil(t, v.Match)
	assert.Equal(t, asxMining, v.Match.Story.Title)

	v, err = mem.Check(ctx, newsItem("https://outlet-c/rba", rbaHold), DefaultThreshold)
	require.NoError(t, err)
	assert.False(t, v.Duplicate)
}

func TestThresholdIsStrict(t *testing.T) {
	mem, _, _ := setup()
	ctx := context.Background()

	_, err := mem.AddStory(ctx, newsItem("https://a", asxMining))
	require.NoError(t, err)

	probe := newsItem("https://b", asxShares)
	v, err := mem.Check(ctx, probe, DefaultThreshold)
	require.NoError(t, err)
	s := v.Similarity

	const eps = 1e-6
	tests := []struct {
		name      string
		threshold float64
		want      bool
	}{
		{"just below similarity", s - eps, true},
		{"equal to similarity", s, false},
		{"just above similarity", s + eps, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dup, err := mem.IsDuplicate(ctx, v.Item, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dup)
		})
	}
}

func TestEmbeddingComputedOnce(t *testing.T) {
	mem, emb, idx := setup()
	ctx := context.Background()

	item, dup, err := mem.IsDuplicate(ctx, newsItem("https://a", asxMining), DefaultThreshold)
	require.NoError(t, err)
	require.False(t, dup)

	_, err = mem.AddStory(ctx, item)
	require.NoError(t, err)

	assert.Equal(t, 1, emb.Calls())
	assert.Equal(t, 1, idx.Len())
}

func TestPrecomputedEmbeddingSkipsProvider(t *testing.T) {
	mem, emb, _ := setup()
	item := newsItem("https://a", asxMining).WithEmbedding(vectorAt(1))

	_, _, err := mem.IsDuplicate(context.Background(), item, DefaultThreshold)
	require.NoError(t, err)
	assert.Zero(t, emb.Calls())
}

func TestCheckDoesNotMutateInput(t *testing.T) {
	mem, _, _ := setup()
	item := newsItem("https://a", asxMining)

	out, _, err := mem.IsDuplicate(context.Background(), item, DefaultThreshold)
	require.NoError(t, err)
	assert.False(t, item.HasEmbedding())
	assert.True(t, out.HasEmbedding())
}

func TestEmbeddingFailureIsHard(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("provider down")}
	mem := New(emb, NewMemIndex())

	_, dup, err := mem.IsDuplicate(context.Background(), newsItem("https://a", asxMining), DefaultThreshold)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.False(t, dup)

	_, err = mem.AddStory(context.Background(), newsItem("https://a", asxMining))
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestInvalidItemRejected(t *testing.T) {
	mem, emb, _ := setup()
	_, _, err := mem.IsDuplicate(context.Background(), newsItem("https://a", ""), DefaultThreshold)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, models.ErrInvalidNewsItem)
	assert.Zero(t, emb.Calls())
}

func TestIndexFailureIsHard(t *testing.T) {
	cause := errors.New("connection refused")
	mem := New(&fakeEmbedder{}, failingIndex{err: cause})

	_, _, err := mem.IsDuplicate(context.Background(), newsItem("https://a", asxMining), DefaultThreshold)
	assert.ErrorIs(t, err, ErrIndex)
	assert.ErrorIs(t, err, cause)

	_, err = mem.AddStory(context.Background(), newsItem("https://a", asxMining))
	assert.ErrorIs(t, err, ErrIndex)
}

func TestSearch(t *testing.T) {
	mem, _, _ := setup()
	ctx := context.Background()

	for _, it := range []models.NewsItem{
		newsItem("https://a", asxMining),
		newsItem("https://c", rbaHold),
	} {
		_, err := mem.AddStory(ctx, it)
		require.NoError(t, err)
	}

	matches, err := mem.Search(ctx, asxShares, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, asxMining, matches[0].Story.Title)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
}

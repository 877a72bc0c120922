package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/raphaelgruber/briefcast/internal/models"
)

// MemIndex is an in-process Index using exact cosine distance.
// Contents are lost when the process exits.
type MemIndex struct {
	mu      sync.RWMutex
	stories map[string]models.Story
}

var _ Index = (*MemIndex)(nil)

// NewMemIndex creates an empty in-process index.
func NewMemIndex() *MemIndex {
	return &MemIndex{stories: make(map[string]models.Story)}
}

// QueryNearestStories returns up to k stories ordered by ascending cosine distance.
func (x *MemIndex) QueryNearestStories(_ context.Context, embedding []float32, k int) ([]models.StoryMatch, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]models.StoryMatch, 0, len(x.stories))
	for _, s := range x.stories {
		matches = append(matches, models.StoryMatch{Story: s, Distance: CosineDistance(embedding, s.Embedding)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// QueryUpsertStory stores or replaces a story by key.
func (x *MemIndex) QueryUpsertStory(_ context.Context, story models.Story) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.stories[story.Key()] = story
	return nil
}

// Len returns the number of stored stories.
func (x *MemIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.stories)
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1.
func CosineDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

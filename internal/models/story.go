package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// StoryID returns the deterministic Story Memory key for a URL:
// the lowercase hex MD5 of the URL bytes.
func StoryID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Story is a persisted Story Memory entry.
type Story struct {
	ID             surrealmodels.RecordID `json:"id"`
	SourceID       string                 `json:"source_id"`
	Title          string                 `json:"title"`
	URL            string                 `json:"url"`
	PublishedAt    time.Time              `json:"published_at"`
	ContentSummary string                 `json:"content"`
	Embedding      []float32              `json:"embedding,omitempty"`
	Created        time.Time              `json:"created,omitempty"`
}

// StoryFromItem builds the memory entry for an embedded news item.
func StoryFromItem(item NewsItem) Story {
	return Story{
		ID:             surrealmodels.RecordID{Table: "story", ID: item.StoryID()},
		SourceID:       item.SourceID,
		Title:          item.Title,
		URL:            item.URL,
		PublishedAt:    item.PublishedAt,
		ContentSummary: item.ContentSummary,
		Embedding:      item.Embedding,
	}
}

// Key returns the string part of the story's record ID.
func (s Story) Key() string {
	if k, err := RecordIDString(s.ID); err == nil {
		return k
	}
	return StoryID(s.URL)
}

// StoryMatch is a nearest-neighbour hit with its cosine distance.
type StoryMatch struct {
	Story    Story   `json:"story"`
	Distance float64 `json:"distance"`
}

// Similarity converts cosine distance into similarity.
func (m StoryMatch) Similarity() float64 {
	return 1 - m.Distance
}

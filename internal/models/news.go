// Package models defines the data structures shared by the briefcast pipeline.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidNewsItem is returned when an item lacks the fields needed for dedup.
var ErrInvalidNewsItem = errors.New("invalid news item")

// NewsItem is a single story produced by a content source.
// URL is the identity key; ContentSummary is what gets embedded and scripted.
type NewsItem struct {
	SourceID       string    `json:"source_id"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	PublishedAt    time.Time `json:"published_at"`
	ContentSummary string    `json:"content_summary"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

// Validate checks the fields required for deduplication.
func (n NewsItem) Validate() error {
	if strings.TrimSpace(n.URL) == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidNewsItem)
	}
	if strings.TrimSpace(n.ContentSummary) == "" {
		return fmt.Errorf("%w: empty content summary for %s", ErrInvalidNewsItem, n.URL)
	}
	return nil
}

// HasEmbedding reports whether a vector has already been computed.
func (n NewsItem) HasEmbedding() bool {
	return len(n.Embedding) > 0
}

// WithEmbedding returns a copy of the item carrying its own copy of vec.
func (n NewsItem) WithEmbedding(vec []float32) NewsItem {
	n.Embedding = slices.Clone(vec)
	return n
}

// StoryID derives the Story Memory key for the item.
func (n NewsItem) StoryID() string {
	return StoryID(n.URL)
}

// Mode selects the editorial emphasis of an episode.
type Mode string

// Supported modes.
const (
	ModeMorning   Mode = "morning"
	ModeAfternoon Mode = "afternoon"
)

// ErrUnknownMode is returned by ParseMode for unsupported values.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMorning, ModeAfternoon:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want morning or afternoon)", ErrUnknownMode, s)
	}
}

// Title returns the capitalised mode name, e.g. "Morning".
func (m Mode) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

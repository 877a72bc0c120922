package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// Episode is a mixed audio file ready for publication.
type Episode struct {
	Title       string
	Summary     string
	MediaPath   string
	Duration    time.Duration
	PublishedAt time.Time
	StoryCount  int
}

// NewEpisode builds the metadata for an episode covering storyCount stories.
func NewEpisode(mode Mode, storyCount int, mediaPath string, now time.Time) Episode {
	return Episode{
		Title:       fmt.Sprintf("Market Update - %s Edition", mode.Title()),
		Summary:     fmt.Sprintf("Automated market update covering %d stories.", storyCount),
		MediaPath:   mediaPath,
		PublishedAt: now,
		StoryCount:  storyCount,
	}
}

// EpisodeFileName returns the output file name for an episode created at t.
func EpisodeFileName(t time.Time) string {
	return fmt.Sprintf("episode_%s.mp3", t.Format("20060102_1504"))
}

// FileName returns the base name of the media file.
func (e Episode) FileName() string {
	return filepath.Base(e.MediaPath)
}

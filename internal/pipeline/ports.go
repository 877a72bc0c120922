package pipeline

import (
	"context"
	"time"

	"github.com/raphaelgruber/briefcast/internal/memory"
	"github.com/raphaelgruber/briefcast/internal/models"
)

// Source produces raw news items. It omits entries it cannot parse.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}

// Deduplicator decides whether items were already covered and records new ones.
type Deduplicator interface {
	Check(ctx context.Context, item models.NewsItem, threshold float64) (memory.Verdict, error)
	AddStory(ctx context.Context, item models.NewsItem) (models.NewsItem, error)
}

// ScriptWriter turns unique items into ordered script segments.
type ScriptWriter interface {
	Generate(ctx context.Context, items []models.NewsItem, mode models.Mode) ([]models.ScriptSegment, error)
}

// Synthesizer renders text as raw audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Mixer joins audio files in order into outputPath. An empty list is an error.
type Mixer interface {
	Mix(ctx context.Context, paths []string, outputPath string) (string, error)
}

// DurationProber is optionally implemented by a Mixer.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Publisher uploads an episode and returns the public feed URL.
type Publisher interface {
	Publish(ctx context.Context, ep models.Episode) (string, error)
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	QueryRecordRun(ctx context.Context, id string, run models.Run) error
}

var _ Deduplicator = (*memory.StoryMemory)(nil)

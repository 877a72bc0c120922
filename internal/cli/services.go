package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/briefcast/internal/audio"
	"github.com/raphaelgruber/briefcast/internal/db"
	"github.com/raphaelgruber/briefcast/internal/llm"
	"github.com/raphaelgruber/briefcast/internal/memory"
	"github.com/raphaelgruber/briefcast/internal/pipeline"
	"github.com/raphaelgruber/briefcast/internal/publish"
	"github.com/raphaelgruber/briefcast/internal/script"
	"github.com/raphaelgruber/briefcast/internal/shell"
	"github.com/raphaelgruber/briefcast/internal/source"
	"github.com/raphaelgruber/briefcast/internal/transcribe"
)

var (
	_ memory.Index            = (*db.Client)(nil)
	_ pipeline.RunRecorder    = (*db.Client)(nil)
	_ pipeline.Source         = (*source.RSS)(nil)
	_ pipeline.Source         = (*source.YouTube)(nil)
	_ pipeline.Source         = (*source.Static)(nil)
	_ pipeline.ScriptWriter   = (*script.Writer)(nil)
	_ pipeline.Synthesizer    = (*audio.ElevenLabs)(nil)
	_ pipeline.Mixer          = (*audio.FFmpeg)(nil)
	_ pipeline.DurationProber = (*audio.FFmpeg)(nil)
	_ pipeline.Publisher      = (*publish.Publisher)(nil)
	_ source.Transcriber      = (*transcribe.Deepgram)(nil)
)

// storyIndex returns SurrealDB, or an in-process index with --ephemeral.
func storyIndex() memory.Index {
	if dbClient != nil {
		return dbClient
	}
	return memory.NewMemIndex()
}

func newStoryMemory(ctx context.Context) (*memory.StoryMemory, error) {
	embedder, err := llm.NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return memory.New(embedder, storyIndex(),
		memory.WithMetrics(collector),
		memory.WithLogger(logger),
	), nil
}

// newSources builds the configured sources, or the sample source when sample is set.
func newSources(sample bool) []pipeline.Source {
	if sample {
		return []pipeline.Source{source.SampleFinance(time.Now())}
	}

	var sources []pipeline.Source
	if len(cfg.Sources.Feeds) > 0 {
		sources = append(sources, source.NewRSS(cfg.Sources.Feeds, nil, logger))
	}
	if len(cfg.Sources.YouTubeChannels) > 0 {
		dg := transcribe.NewDeepgram(cfg.DeepgramAPIKey, cfg.DeepgramModel, logger, transcribe.WithMetrics(collector))
		yt := source.NewYouTube(cfg.Sources.YouTubeChannels, source.NewYTDLP(cfg.YTDLPPath, shell.ExecRunner{}), dg, cfg.WorkDir, logger)
		sources = append(sources, yt)
	}
	return sources
}

// pipelineDeps wires every stage. Generation and publishing clients are created
// only when the run will reach them.
func pipelineDeps(ctx context.Context, sources []pipeline.Source, dryRun bool) (pipeline.Deps, error) {
	mem, err := newStoryMemory(ctx)
	if err != nil {
		return pipeline.Deps{}, err
	}

	model, err := llm.NewModel(ctx, cfg, logger)
	if err != nil {
		return pipeline.Deps{}, fmt.Errorf("init model: %w", err)
	}

	deps := pipeline.Deps{
		Sources: sources,
		Memory:  mem,
		Writer:  script.NewWriter(model, collector, logger),
		Metrics: collector,
		Logger:  logger,
	}
	if dbClient != nil {
		deps.Recorder = dbClient
	}
	if dryRun {
		return deps, nil
	}

	deps.Synthesizer = audio.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsModel, logger, audio.WithMetrics(collector))
	deps.Mixer = audio.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, shell.ExecRunner{}, collector, logger)

	s3Client, err := publish.NewS3Client(ctx, cfg)
	if err != nil {
		return pipeline.Deps{}, fmt.Errorf("init storage: %w", err)
	}
	deps.Publisher = publish.New(s3Client, publish.SettingsFromConfig(cfg), collector, logger)
	return deps, nil
}

func assetPath(name string) string {
	if cfg.AssetsDir == "" {
		return ""
	}
	return filepath.Join(cfg.AssetsDir, name)
}

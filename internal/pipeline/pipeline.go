// Package pipeline sequences a briefing run: ingest, dedup, generate,
// synthesize, mix and publish.
//
// Ingestion fans out across sources concurrently. Every later stage runs in
// order and aborts the run on failure with a *StageError. The per-run working
// directory is removed on every exit path; Story Memory writes made before a
// failure are kept.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/memory"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageIngest     Stage = "ingest"
	StageDedup      Stage = "dedup"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
	StageMix        Stage = "mix"
	StagePublish    Stage = "publish"
)

// StageError is a fatal failure of one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Status is the outcome of a run.
type Status string

// Run outcomes.
const (
	StatusPublished       Status = "published"
	StatusIngested        Status = "ingested"
	StatusDryRun          Status = "dry_run"
	StatusNoNews          Status = "no_news"
	StatusNoUniqueStories Status = "no_unique_stories"
	StatusFailed          Status = "failed"
)

// Result summarises a run.
type Result struct {
	RunID         string
	Mode          models.Mode
	Status        Status
	Ingested      int
	Unique        int
	Duplicates    int
	Dropped       int
	FailedSources int
	Items         []models.NewsItem
	Segments      []models.ScriptSegment
	EpisodePath   string
	Duration      time.Duration
	FeedURL       string
	WorkDir       string
	Started       time.Time
	Finished      time.Time
}

// Deps are the collaborators of a run. Recorder and Metrics may be nil.
type Deps struct {
	Sources     []Source
	Memory      Deduplicator
	Writer      ScriptWriter
	Synthesizer Synthesizer
	Mixer       Mixer
	Publisher   Publisher
	Recorder    RunRecorder
	Metrics     *metrics.Collector
	Logger      *slog.Logger
	Now         func() time.Time
}

// Options tune a run.
type Options struct {
	Threshold float64
	VoiceID   string
	// WorkDir is the parent of the per-run temp directory; empty uses the system default.
	WorkDir string
	// OutputDir keeps the mixed episode. Empty mixes into the temp directory.
	OutputDir string
	IntroPath string
	OutroPath string
	DryRun    bool
}

// Pipeline runs briefings.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New creates a Pipeline. A zero threshold falls back to memory.DefaultThreshold.
func New(deps Deps, opts Options) *Pipeline {
	if opts.Threshold <= 0 {
		opts.Threshold = memory.DefaultThreshold
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps, opts: opts, logger: config.Component(deps.Logger, "pipeline")}
}

// Run executes a full briefing for mode.
func (p *Pipeline) Run(ctx context.Context, mode models.Mode) (res *Result, err error) {
	res = p.newResult(mode)
	log := p.logger.With("run_id", res.RunID, "mode", mode)
	log.Info("starting pipeline", "dry_run", p.opts.DryRun, "threshold", p.opts.Threshold)

	defer func() { p.finish(ctx, log, res, err) }()

	workDir, err := os.MkdirTemp(p.opts.WorkDir, "briefcast-run-*")
	if err != nil {
		return res, fmt.Errorf("create work dir: %w", err)
	}
	res.WorkDir = workDir
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn("failed to clean up work dir", "dir", workDir, "error", rmErr)
			return
		}
		log.Debug("cleaned up work dir", "dir", workDir)
	}()

	if !p.collect(ctx, log, res, !p.opts.DryRun) {
		return res, nil
	}

	log.Info("--- generate ---", "stories", res.Unique)
	segments, err := p.deps.Writer.Generate(ctx, res.Items, mode)
	if err != nil {
		return res, &StageError{Stage: StageGenerate, Err: err}
	}
	res.Segments = segments

	if p.opts.DryRun {
		for i, s := range segments {
			log.Info("script segment", "index", i, "type", s.Type, "preview", s.Preview(80))
		}
		res.Status = StatusDryRun
		return res, nil
	}

	log.Info("--- synthesize ---", "segments", len(segments))
	paths, err := p.synthesize(ctx, log, workDir, res.Segments)
	if err != nil {
		return res, &StageError{Stage: StageSynthesize, Err: err}
	}

	log.Info("--- mix ---")
	outDir := p.opts.OutputDir
	if outDir == "" {
		outDir = workDir
	}
	started := p.deps.Now()
	episodePath, err := p.deps.Mixer.Mix(ctx, p.withAssets(log, paths), filepath.Join(outDir, models.EpisodeFileName(started)))
	if err != nil {
		return res, &StageError{Stage: StageMix, Err: err}
	}
	res.EpisodePath = episodePath
	res.Duration = p.probe(ctx, log, episodePath)

	log.Info("--- publish ---")
	ep := models.NewEpisode(mode, res.Unique, episodePath, started)
	ep.Duration = res.Duration
	feedURL, err := p.deps.Publisher.Publish(ctx, ep)
	if err != nil {
		return res, &StageError{Stage: StagePublish, Err: err}
	}
	res.FeedURL = feedURL
	res.Status = StatusPublished

	log.Info("episode published", "feed_url", feedURL, "episode", episodePath)
	return res, nil
}

// Ingest fetches and deduplicates without generating an episode. Unique items are persisted.
func (p *Pipeline) Ingest(ctx context.Context) (res *Result, err error) {
	res = p.newResult("")
	log := p.logger.With("run_id", res.RunID)
	defer func() { p.finish(ctx, log, res, err) }()

	if p.collect(ctx, log, res, true) {
		res.Status = StatusIngested
	}
	return res, nil
}

func (p *Pipeline) newResult(mode models.Mode) *Result {
	return &Result{
		RunID:   uuid.NewString(),
		Mode:    mode,
		Status:  StatusFailed,
		Started: p.deps.Now(),
	}
}

// collect runs ingest and dedup, filling res. It reports whether any unique items remain.
func (p *Pipeline) collect(ctx context.Context, log *slog.Logger, res *Result, persist bool) bool {
	log.Info("--- ingest ---", "sources", len(p.deps.Sources))
	items, failed := p.ingest(ctx, log)
	res.Ingested = len(items)
	res.FailedSources = failed

	if len(items) == 0 {
		log.Info("no news found, stopping")
		res.Status = StatusNoNews
		return false
	}

	log.Info("--- dedup ---", "items", len(items))
	unique, dups, dropped := p.dedup(ctx, log, items, persist)
	res.Items = unique
	res.Unique = len(unique)
	res.Duplicates = dups
	res.Dropped = dropped

	if len(unique) == 0 {
		log.Info("no unique stories, stopping", "duplicates", dups, "dropped", dropped)
		res.Status = StatusNoUniqueStories
		return false
	}
	return true
}

// ingest fetches every source concurrently and flattens results in source order.
// A failing source contributes no items.
func (p *Pipeline) ingest(ctx context.Context, log *slog.Logger) ([]models.NewsItem, int) {
	results := make([][]models.NewsItem, len(p.deps.Sources))
	failures := make([]bool, len(p.deps.Sources))

	var g errgroup.Group
	for i, src := range p.deps.Sources {
		g.Go(func() error {
			start := time.Now()
			items, err := src.Fetch(ctx)
			p.deps.Metrics.Since(metrics.OpSourceFetch, start)
			if err != nil {
				log.Warn("source failed", "source", src.Name(), "error", err)
				failures[i] = true
				return nil
			}
			log.Info("fetched source", "source", src.Name(), "items", len(items))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []models.NewsItem
	failed := 0
	for i, items := range results {
		if failures[i] {
			failed++
		}
		all = append(all, items...)
	}
	return all, failed
}

// dedup checks items one at a time so later items are compared with earlier ones.
func (p *Pipeline) dedup(ctx context.Context, log *slog.Logger, items []models.NewsItem, persist bool) (unique []models.NewsItem, dups, dropped int) {
	for _, item := range items {
		v, err := p.deps.Memory.Check(ctx, item, p.opts.Threshold)
		if err != nil {
			log.Warn("dropping item, duplicate check failed", "url", item.URL, "error", err)
			dropped++
			continue
		}
		if v.Duplicate {
			dups++
			continue
		}

		stored := v.Item
		if persist {
			stored, err = p.deps.Memory.AddStory(ctx, v.Item)
			if err != nil {
				log.Warn("dropping item, store failed", "url", item.URL, "error", err)
				dropped++
				continue
			}
		}
		unique = append(unique, stored)
	}
	log.Info("dedup complete", "unique", len(unique), "duplicates", dups, "dropped", dropped)
	return unique, dups, dropped
}

// synthesize renders segments in order, writing seg_<index>_<type>.mp3 files into dir.
func (p *Pipeline) synthesize(ctx context.Context, log *slog.Logger, dir string, segments []models.ScriptSegment) ([]string, error) {
	paths := make([]string, 0, len(segments))
	for i := range segments {
		seg := &segments[i]
		audio, err := p.deps.Synthesizer.Synthesize(ctx, seg.Text, p.opts.VoiceID)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i, seg.Type, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("seg_%d_%s.mp3", i, seg.Type))
		if err := os.WriteFile(path, audio, 0o600); err != nil {
			return nil, fmt.Errorf("write segment %d: %w", i, err)
		}
		seg.AudioPath = path
		paths = append(paths, path)
		log.Debug("synthesized segment", "index", i, "type", seg.Type, "bytes", len(audio))
	}
	return paths, nil
}

// withAssets wraps paths with the intro and outro assets that exist on disk.
func (p *Pipeline) withAssets(log *slog.Logger, paths []string) []string {
	out := make([]string, 0, len(paths)+2)
	if fileExists(p.opts.IntroPath) {
		out = append(out, p.opts.IntroPath)
	} else if p.opts.IntroPath != "" {
		log.Debug("intro asset not found", "path", p.opts.IntroPath)
	}
	out = append(out, paths...)
	if fileExists(p.opts.OutroPath) {
		out = append(out, p.opts.OutroPath)
	}
	return out
}

func (p *Pipeline) probe(ctx context.Context, log *slog.Logger, path string) time.Duration {
	prober, ok := p.deps.Mixer.(DurationProber)
	if !ok {
		return 0
	}
	d, err := prober.Duration(ctx, path)
	if err != nil {
		log.Warn("could not probe episode duration", "path", path, "error", err)
		return 0
	}
	return d
}

// finish stamps the result, logs the outcome and records the run.
func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, res *Result, err error) {
	res.Finished = p.deps.Now()
	if err != nil {
		res.Status = StatusFailed
		var se *StageError
		if errors.As(err, &se) {
			log.Error("pipeline failed", "stage", se.Stage, "error", se.Err)
		} else {
			log.Error("pipeline failed", "error", err)
		}
	} else {
		log.Info("pipeline finished", "status", res.Status,
			"ingested", res.Ingested, "unique", res.Unique, "duplicates", res.Duplicates)
	}

	if p.deps.Recorder == nil {
		return
	}
	run := models.Run{
		ID:         surrealmodels.RecordID{Table: "run", ID: res.RunID},
		Mode:       string(res.Mode),
		Status:     string(res.Status),
		Ingested:   res.Ingested,
		Unique:     res.Unique,
		Duplicates: res.Duplicates,
		Segments:   len(res.Segments),
		Started:    res.Started,
		Finished:   res.Finished,
	}
	if res.FeedURL != "" {
		run.FeedURL = &res.FeedURL
	}
	if err != nil {
		msg := err.Error()
		run.Error = &msg
	}
	if recErr := p.deps.Recorder.QueryRecordRun(context.WithoutCancel(ctx), res.RunID, run); recErr != nil {
		log.Warn("failed to record run", "error", recErr)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

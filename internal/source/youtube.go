package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/models"
	"github.com/raphaelgruber/briefcast/internal/shell"
)

// Video describes a downloaded upload.
type Video struct {
	ID         string
	Title      string
	URL        string
	ChannelID  string
	UploadedAt time.Time
	AudioPath  string
}

// Downloader fetches the audio of a channel's most recent upload into dir.
type Downloader interface {
	LatestAudio(ctx context.Context, channelURL, dir string) (Video, error)
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// YouTube turns each channel's latest upload into a transcript news item.
type YouTube struct {
	channels    []string
	downloader  Downloader
	transcriber Transcriber
	workDir     string
	now         Clock
	logger      *slog.Logger
}

var _ Source = (*YouTube)(nil)

// NewYouTube creates a YouTube source. Downloads land in a temporary
// directory under workDir (the system temp dir when empty).
func NewYouTube(channels []string, d Downloader, t Transcriber, workDir string, logger *slog.Logger) *YouTube {
	return &YouTube{
		channels:    channels,
		downloader:  d,
		transcriber: t,
		workDir:     workDir,
		now:         time.Now,
		logger:      config.Component(logger, "youtube"),
	}
}

// Name implements Source.
func (y *YouTube) Name() string { return "youtube" }

// Fetch downloads, transcribes, and removes the latest upload of every channel.
// A failing channel is skipped; an error is returned only when every channel failed.
func (y *YouTube) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	if len(y.channels) == 0 {
		return nil, nil
	}

	dir, err := os.MkdirTemp(y.workDir, "briefcast-yt-*")
	if err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var items []models.NewsItem
	var errs []error
	for _, channel := range y.channels {
		item, err := y.fetchChannel(ctx, channel, dir)
		if err != nil {
			y.logger.Warn("failed to process channel", "channel", channel, "error", err)
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}

	if len(errs) == len(y.channels) {
		return nil, fmt.Errorf("all %d channels failed: %w", len(errs), errors.Join(errs...))
	}
	return items, nil
}

func (y *YouTube) fetchChannel(ctx context.Context, channel, dir string) (models.NewsItem, error) {
	video, err := y.downloader.LatestAudio(ctx, channel, dir)
	if err != nil {
		return models.NewsItem{}, fmt.Errorf("download %s: %w", channel, err)
	}
	defer y.cleanup(video.AudioPath)

	y.logger.Info("transcribing", "video", video.ID, "title", video.Title)
	transcript, err := y.transcriber.Transcribe(ctx, video.AudioPath)
	if err != nil {
		return models.NewsItem{}, fmt.Errorf("transcribe %s: %w", video.ID, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return models.NewsItem{}, fmt.Errorf("transcribe %s: empty transcript", video.ID)
	}

	published := video.UploadedAt
	if published.IsZero() {
		published = y.now()
	}
	url := video.URL
	if url == "" {
		url = channel
	}
	title := video.Title
	if title == "" {
		title = "Unknown Title"
	}

	return models.NewsItem{
		SourceID:       "youtube_" + video.ChannelID,
		Title:          title,
		URL:            url,
		PublishedAt:    published,
		ContentSummary: transcript,
	}, nil
}

func (y *YouTube) cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		y.logger.Warn("failed to delete download", "path", path, "error", err)
	}
}

// YTDLP downloads audio with the yt-dlp command-line tool.
type YTDLP struct {
	bin    string
	runner shell.Runner
}

var _ Downloader = (*YTDLP)(nil)

// NewYTDLP creates a downloader invoking bin through runner.
func NewYTDLP(bin string, runner shell.Runner) *YTDLP {
	if bin == "" {
		bin = "yt-dlp"
	}
	if runner == nil {
		runner = shell.ExecRunner{}
	}
	return &YTDLP{bin: bin, runner: runner}
}

type ytInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	WebpageURL string `json:"webpage_url"`
	ChannelID  string `json:"channel_id"`
	UploadDate string `json:"upload_date"`
}

// LatestAudio downloads the newest upload as mp3 into dir.
func (d *YTDLP) LatestAudio(ctx context.Context, channelURL, dir string) (Video, error) {
	args := []string{
		"--format", "bestaudio/best",
		"--playlist-items", "1",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--force-overwrites",
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--dump-json", "--no-simulate",
		"--quiet", "--no-warnings",
		channelURL,
	}

	out, err := d.runner.Run(ctx, d.bin, args...)
	if err != nil {
		return Video{}, err
	}
	return parseYTInfo(out, dir)
}

// parseYTInfo reads the first JSON line printed by yt-dlp.
func parseYTInfo(out []byte, dir string) (Video, error) {
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return Video{}, errors.New("yt-dlp returned no video")
	}

	var info ytInfo
	if err := json.Unmarshal([]byte(line), &info); err != nil {
		return Video{}, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	if info.ID == "" {
		return Video{}, errors.New("yt-dlp output missing video id")
	}

	v := Video{
		ID:        info.ID,
		Title:     info.Title,
		URL:       info.WebpageURL,
		ChannelID: info.ChannelID,
		AudioPath: filepath.Join(dir, info.ID+".mp3"),
	}
	if t, err := time.Parse("20060102", info.UploadDate); err == nil {
		v.UploadedAt = t
	}
	return v, nil
}

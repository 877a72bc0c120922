package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/shell"
)

// ErrNoSegments is returned when Mix is called with an empty path list.
var ErrNoSegments = errors.New("no segments provided for mixing")

// LoudnessFilter normalises to -16 LUFS (EBU R128 podcast target).
const LoudnessFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

// FFmpeg concatenates audio files and normalises loudness with ffmpeg.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	runner  shell.Runner
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewFFmpeg creates a mixer. Empty binary names default to ffmpeg and ffprobe on PATH.
func NewFFmpeg(ffmpegBin, ffprobeBin string, runner shell.Runner, m *metrics.Collector, logger *slog.Logger) *FFmpeg {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	if runner == nil {
		runner = shell.ExecRunner{}
	}
	return &FFmpeg{
		ffmpeg:  ffmpegBin,
		ffprobe: ffprobeBin,
		runner:  runner,
		metrics: m,
		logger:  config.Component(logger, "mixer"),
	}
}

// Mix concatenates paths in order into outputPath as VBR mp3.
func (f *FFmpeg) Mix(ctx context.Context, paths []string, outputPath string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoSegments
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	listFile, err := writeConcatList(filepath.Dir(outputPath), paths)
	if err != nil {
		return "", err
	}
	defer os.Remove(listFile)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-af", LoudnessFilter,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}

	f.logger.Info("running ffmpeg mix", "segments", len(paths), "output", outputPath)
	start := time.Now()
	_, err = f.runner.Run(ctx, f.ffmpeg, args...)
	f.metrics.Since(metrics.OpMix, start)
	if err != nil {
		return "", fmt.Errorf("mix episode: %w", err)
	}

	f.logger.Info("mixed episode", "output", outputPath, "duration_ms", time.Since(start).Milliseconds())
	return outputPath, nil
}

// Duration probes the length of an audio file.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := f.runner.Run(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// writeConcatList writes an ffmpeg concat demuxer list into dir.
func writeConcatList(dir string, paths []string) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(filepath.ToSlash(abs)))
	}

	if _, err := f.WriteString(b.String()); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return f.Name(), nil
}

// escapeConcatPath quotes a single quote for the concat demuxer.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

package audio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raphaelgruber/briefcast/internal/httpapi"
	"github.com/raphaelgruber/briefcast/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = httpapi.Policy{MaxTries: 3, InitialInterval: time.Millisecond}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))

		var req ttsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eleven_turbo_v2_5", req.ModelID)
		assert.Equal(t, 0.5, req.VoiceSettings.Stability)
		assert.Equal(t, 0.75, req.VoiceSettings.SimilarityBoost)
		assert.Equal(t, "The market is up today.", req.Text)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xFF, 0xF3, 0x44, 0xC4})
	}))
	defer srv.Close()

	tts := NewElevenLabs("xi-key", "eleven_turbo_v2_5", nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	audio, err := tts.Synthesize(context.Background(), "The market is up today.", "voice-1")
	require.NoError(t, err)
	assert.Len(t, audio, 4)
}

func TestElevenLabsRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "too many", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tts := NewElevenLabs("k", "m", nil, WithBaseURL(srv.URL), WithRetryPolicy(fastRetry))
	_, err := tts.Synthesize(context.Background(), "hi", "v")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestElevenLabsClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer srv.Close()

	tts := NewElevenLabs("k", "m", nil, WithBaseURL(srv.URL), WithRetryPolicy(fastRetry))
	_, err := tts.Synthesize(context.Background(), "hi", "missing")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(1), calls.Load())
}

func TestElevenLabsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tts := NewElevenLabs("k", "m", nil, WithBaseURL(srv.URL))
	_, err := tts.Synthesize(context.Background(), "hi", "v")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestMixEmpty(t *testing.T) {
	called := false
	runner := shell.RunnerFunc(func(context.Context, string, ...string) ([]byte, error) {
		called = true
		return nil, nil
	})
	out := filepath.Join(t.TempDir(), "episode.mp3")

	m := NewFFmpeg("", "", runner, nil, nil)
	_, err := m.Mix(context.Background(), nil, out)

	assert.ErrorIs(t, err, ErrNoSegments)
	assert.False(t, called)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMixBuildsConcatCommand(t *testing.T) {
	dir := t.TempDir()
	var args []string
	var listContent string
	runner := shell.RunnerFunc(func(_ context.Context, name string, a ...string) ([]byte, error) {
		assert.Equal(t, "ffmpeg", name)
		args = a
		for i, v := range a {
			if v == "-i" {
				b, err := os.ReadFile(a[i+1])
				require.NoError(t, err)
				listContent = string(b)
			}
		}
		return nil, nil
	})

	segs := []string{filepath.Join(dir, "seg_0_intro.mp3"), filepath.Join(dir, "it's.mp3")}
	out := filepath.Join(dir, "out", "episode.mp3")

	m := NewFFmpeg("", "", runner, nil, nil)
	got, err := m.Mix(context.Background(), segs, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f concat -safe 0")
	assert.Contains(t, joined, "-af "+LoudnessFilter)
	assert.Contains(t, joined, "-c:a libmp3lame -q:a 2")
	assert.Equal(t, out, args[len(args)-1])

	lines := strings.Split(strings.TrimSpace(listContent), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "seg_0_intro.mp3")
	assert.Contains(t, lines[1], `it'\''s.mp3`)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Empty(t, entries, "concat list is removed")
}

func TestMixFailure(t *testing.T) {
	runner := shell.RunnerFunc(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("ffmpeg failed: exit status 1: Invalid data")
	})
	m := NewFFmpeg("", "", runner, nil, nil)
	_, err := m.Mix(context.Background(), []string{"a.mp3"}, filepath.Join(t.TempDir(), "e.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data")
}

func TestDuration(t *testing.T) {
	runner := shell.RunnerFunc(func(_ context.Context, name string, _ ...string) ([]byte, error) {
		assert.Equal(t, "ffprobe", name)
		return []byte("183.250000\n"), nil
	})
	m := NewFFmpeg("", "", runner, nil, nil)
	d, err := m.Duration(context.Background(), "episode.mp3")
	require.NoError(t, err)
	assert.Equal(t, 183250*time.Millisecond, d)
}

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/briefcast/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Market News</title>
  <link>https://news.example</link>
  <description>test</description>
  <item>
    <title>ASX up 2% on mining rally</title>
    <link>https://news.example/asx</link>
    <pubDate>Wed, 01 Jan 2025 12:00:00 +0000</pubDate>
    <description><![CDATA[<p>Miners <b>lifted</b> the   ASX.</p>]]></description>
  </item>
  <item>
    <title>RBA holds rates</title>
    <link>https://news.example/rba</link>
  </item>
  <item>
    <title>No link here</title>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/good.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSFetch(t *testing.T) {
	srv := feedServer(t)
	fixed := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	r := NewRSS([]string{srv.URL + "/good.xml", srv.URL + "/broken.xml"}, srv.Client(), nil)
	r.now = func() time.Time { return fixed }

	items, err := r.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "entry without link is omitted")

	first := items[0]
	assert.Equal(t, "rss_"+srv.URL+"/good.xml", first.SourceID)
	assert.Equal(t, "https://news.example/asx", first.URL)
	assert.Equal(t, "Miners lifted the ASX.", first.ContentSummary)
	assert.Equal(t, 2025, first.PublishedAt.Year())

	second := items[1]
	assert.Equal(t, "RBA holds rates", second.ContentSummary, "summary falls back to title")
	assert.Equal(t, fixed, second.PublishedAt, "date falls back to now")
}

func TestRSSAllFeedsFail(t *testing.T) {
	srv := feedServer(t)
	r := NewRSS([]string{srv.URL + "/broken.xml"}, srv.Client(), nil)

	_, err := r.Fetch(context.Background())
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Hello <a href='x'>world</a></p>\n\n<p>again</p>", "Hello world again"},
		{"<div>  spaced   out </div>", "spaced out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHTML(tt.in), tt.in)
	}
}

type fakeDownloader struct {
	videos map[string]Video
	err    map[string]error
}

func (f *fakeDownloader) LatestAudio(_ context.Context, channel, dir string) (Video, error) {
	if err := f.err[channel]; err != nil {
		return Video{}, err
	}
	v := f.videos[channel]
	v.AudioPath = filepath.Join(dir, v.ID+".mp3")
	if err := os.WriteFile(v.AudioPath, []byte("mp3"), 0o600); err != nil {
		return Video{}, err
	}
	return v, nil
}

type fakeTranscriber struct {
	seen []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.seen = append(f.seen, path)
	return "This is a transcript about the ASX market. B-H-P is up 2%.", nil
}

func TestYouTubeFetch(t *testing.T) {
	uploaded := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	dl := &fakeDownloader{
		videos: map[string]Video{
			"https://yt/@good": {ID: "abc", Title: "Weekly wrap", URL: "https://youtube.com/watch?v=abc", ChannelID: "UC1", UploadedAt: uploaded},
		},
		err: map[string]error{"https://yt/@bad": errors.New("private video")},
	}
	tr := &fakeTranscriber{}
	y := NewYouTube([]string{"https://yt/@good", "https://yt/@bad"}, dl, tr, t.TempDir(), nil)

	items, err := y.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "youtube_UC1", items[0].SourceID)
	assert.Equal(t, "Weekly wrap", items[0].Title)
	assert.Equal(t, uploaded, items[0].PublishedAt)
	assert.Contains(t, items[0].ContentSummary, "ASX")

	require.Len(t, tr.seen, 1)
	_, statErr := os.Stat(tr.seen[0])
	assert.True(t, os.IsNotExist(statErr), "downloaded audio is removed")
}

func TestYouTubeAllChannelsFail(t *testing.T) {
	dl := &fakeDownloader{err: map[string]error{"https://yt/@bad": errors.New("boom")}}
	y := NewYouTube([]string{"https://yt/@bad"}, dl, &fakeTranscriber{}, t.TempDir(), nil)

	_, err := y.Fetch(context.Background())
	assert.Error(t, err)
}

func TestYTDLPLatestAudio(t *testing.T) {
	var gotArgs []string
	runner := shell.RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(`{"id":"xyz","title":"Market chat","webpage_url":"https://youtube.com/watch?v=xyz","channel_id":"UC9","upload_date":"20250105"}` + "\n"), nil
	})

	d := NewYTDLP("", runner)
	v, err := d.LatestAudio(context.Background(), "https://www.youtube.com/@RaskAustralia", "/tmp/dl")
	require.NoError(t, err)

	assert.Equal(t, "yt-dlp", gotArgs[0])
	assert.Contains(t, strings.Join(gotArgs, " "), "--playlist-items 1")
	assert.Equal(t, "https://www.youtube.com/@RaskAustralia", gotArgs[len(gotArgs)-1])
	assert.Equal(t, filepath.Join("/tmp/dl", "xyz.mp3"), v.AudioPath)
	assert.Equal(t, "UC9", v.ChannelID)
	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), v.UploadedAt)
}

func TestParseYTInfoErrors(t *testing.T) {
	_, err := parseYTInfo([]byte(""), "/tmp")
	assert.Error(t, err)
	_, err = parseYTInfo([]byte("not json"), "/tmp")
	assert.Error(t, err)
	_, err = parseYTInfo([]byte(`{"title":"no id"}`), "/tmp")
	assert.Error(t, err)
}

func TestSampleFinance(t *testing.T) {
	now := time.Now()
	s := SampleFinance(now)
	items, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "sample", s.Name())

	items[0].Title = "mutated"
	again, _ := s.Fetch(context.Background())
	assert.NotEqual(t, "mutated", again[0].Title)
}

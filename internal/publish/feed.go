package publish

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// MaxFeedEpisodes bounds the number of items kept in the podcast feed.
const MaxFeedEpisodes = 100

const itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"

// Feed is the podcast channel stored next to the episodes.
type Feed struct {
	Title       string
	Link        string
	Description string
	Author      string
	Language    string
	Episodes    []FeedEpisode
}

// FeedEpisode is one enclosure in the feed.
type FeedEpisode struct {
	GUID        string
	Title       string
	Summary     string
	URL         string
	Length      int64
	Duration    time.Duration
	PublishedAt time.Time
}

// ParseFeed reads an existing RSS feed.
func ParseFeed(data []byte) (Feed, error) {
	parsed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return Feed{}, fmt.Errorf("parse feed: %w", err)
	}

	f := Feed{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}
	if parsed.ITunesExt != nil {
		f.Author = parsed.ITunesExt.Author
	}

	for _, it := range parsed.Items {
		if it == nil || len(it.Enclosures) == 0 {
			continue
		}
		enc := it.Enclosures[0]
		ep := FeedEpisode{
			GUID:    it.GUID,
			Title:   it.Title,
			Summary: it.Description,
			URL:     enc.URL,
		}
		if ep.GUID == "" {
			ep.GUID = enc.URL
		}
		if n, err := strconv.ParseInt(enc.Length, 10, 64); err == nil {
			ep.Length = n
		}
		if it.PublishedParsed != nil {
			ep.PublishedAt = *it.PublishedParsed
		}
		if it.ITunesExt != nil {
			ep.Duration = parseDuration(it.ITunesExt.Duration)
		}
		f.Episodes = append(f.Episodes, ep)
	}
	return f, nil
}

// Add inserts ep newest first, replacing an entry with the same GUID.
func (f *Feed) Add(ep FeedEpisode) {
	f.Episodes = slices.DeleteFunc(f.Episodes, func(e FeedEpisode) bool { return e.GUID == ep.GUID })
	f.Episodes = append(f.Episodes, ep)
	slices.SortStableFunc(f.Episodes, func(a, b FeedEpisode) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	if len(f.Episodes) > MaxFeedEpisodes {
		f.Episodes = f.Episodes[:MaxFeedEpisodes]
	}
}

type rssDoc struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Author      string    `xml:"itunes:author,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Description string       `xml:"description"`
	GUID        rssGUID      `xml:"guid"`
	PubDate     string       `xml:"pubDate"`
	Enclosure   rssEnclosure `xml:"enclosure"`
	Duration    string       `xml:"itunes:duration,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// Render writes the feed as RSS 2.0 with iTunes tags.
func (f Feed) Render() ([]byte, error) {
	doc := rssDoc{
		Version:  "2.0",
		ITunesNS: itunesNS,
		Channel: rssChannel{
			Title:       f.Title,
			Link:        f.Link,
			Description: f.Description,
			Language:    f.Language,
			Author:      f.Author,
		},
	}
	for _, ep := range f.Episodes {
		item := rssItem{
			Title:       ep.Title,
			Description: ep.Summary,
			GUID:        rssGUID{IsPermaLink: "false", Value: ep.GUID},
			PubDate:     ep.PublishedAt.UTC().Format(time.RFC1123Z),
			Enclosure:   rssEnclosure{URL: ep.URL, Length: ep.Length, Type: "audio/mpeg"},
		}
		if ep.Duration > 0 {
			item.Duration = formatDuration(ep.Duration)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// formatDuration renders d as HH:MM:SS.
func formatDuration(d time.Duration) string {
	s := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// parseDuration accepts HH:MM:SS, MM:SS or plain seconds.
func parseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var total int64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}

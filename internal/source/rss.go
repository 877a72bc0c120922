package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/models"
)

// RSS reads items from a list of RSS or Atom feeds.
type RSS struct {
	feeds  []string
	client *http.Client
	now    Clock
	logger *slog.Logger
}

var _ Source = (*RSS)(nil)

// NewRSS creates an RSS source. A nil client uses a 30s-timeout default.
func NewRSS(feeds []string, client *http.Client, logger *slog.Logger) *RSS {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RSS{
		feeds:  feeds,
		client: client,
		now:    time.Now,
		logger: config.Component(logger, "rss"),
	}
}

// Name implements Source.
func (r *RSS) Name() string { return "rss" }

// Fetch parses every feed. A feed that fails is logged and skipped;
// an error is returned only when every feed failed.
func (r *RSS) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	var items []models.NewsItem
	var errs []error

	for _, url := range r.feeds {
		feedItems, err := r.fetchFeed(ctx, url)
		if err != nil {
			r.logger.Warn("failed to fetch feed", "url", url, "error", err)
			errs = append(errs, err)
			continue
		}
		r.logger.Info("fetched feed", "url", url, "items", len(feedItems))
		items = append(items, feedItems...)
	}

	if len(r.feeds) > 0 && len(errs) == len(r.feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(errs), errors.Join(errs...))
	}
	return items, nil
}

func (r *RSS) fetchFeed(ctx context.Context, url string) ([]models.NewsItem, error) {
	fp := gofeed.NewParser()
	fp.Client = r.client

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if item, ok := r.toNewsItem(url, it); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *RSS) toNewsItem(feedURL string, it *gofeed.Item) (models.NewsItem, bool) {
	if it == nil || strings.TrimSpace(it.Link) == "" {
		return models.NewsItem{}, false
	}

	published := r.now()
	switch {
	case it.PublishedParsed != nil:
		published = *it.PublishedParsed
	case it.UpdatedParsed != nil:
		published = *it.UpdatedParsed
	}

	title := strings.TrimSpace(it.Title)
	summary := StripHTML(it.Description)
	if summary == "" {
		summary = StripHTML(it.Content)
	}
	if summary == "" {
		summary = title
	}
	if summary == "" {
		return models.NewsItem{}, false
	}

	return models.NewsItem{
		SourceID:       "rss_" + feedURL,
		Title:          title,
		URL:            strings.TrimSpace(it.Link),
		PublishedAt:    published,
		ContentSummary: summary,
	}, true
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

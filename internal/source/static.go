package source

import (
	"context"
	"slices"
	"time"

	"github.com/raphaelgruber/briefcast/internal/models"
)

// Static returns a fixed list of items. Useful for dry runs.
type Static struct {
	name  string
	items []models.NewsItem
}

var _ Source = (*Static)(nil)

// NewStatic creates a source that always yields items.
func NewStatic(name string, items []models.NewsItem) *Static {
	return &Static{name: name, items: items}
}

// Name implements Source.
func (s *Static) Name() string { return s.name }

// Fetch returns a copy of the configured items.
func (s *Static) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.items), nil
}

// SampleFinance returns two mock finance stories dated at now.
func SampleFinance(now time.Time) *Static {
	return NewStatic("sample", []models.NewsItem{
		{
			SourceID:       "mock_rask",
			Title:          "The Future of Lithium Mining in Australia",
			URL:            "https://example.com/lithium",
			PublishedAt:    now,
			ContentSummary: "Lithium demand is expected to triple by 2030 as EV adoption accelerates. ASX miners like Pilbara Minerals are well positioned.",
		},
		{
			SourceID:       "mock_motley",
			Title:          "3 Stocks to Watch this December",
			URL:            "https://example.com/stocks",
			PublishedAt:    now,
			ContentSummary: "Focusing on defensive healthcare stocks and high-yield retail as market volatility increases.",
		},
	})
}

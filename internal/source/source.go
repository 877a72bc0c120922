// Package source implements the content sources polled at the start of a run.
package source

import (
	"context"
	"time"

	"github.com/raphaelgruber/briefcast/internal/models"
)

// Source produces news items. Entries that cannot be parsed are omitted
// rather than failing the whole fetch.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}

// Clock returns the current time; sources use it to date undated items.
type Clock func() time.Time

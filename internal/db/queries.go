package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/briefcast/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// storyRow is a story plus the KNN distance computed by the query.
type storyRow struct {
	ID          surrealmodels.RecordID `json:"id"`
	SourceID    string                 `json:"source_id"`
	Title       string                 `json:"title"`
	URL         string                 `json:"url"`
	PublishedAt time.Time              `json:"published_at"`
	Content     string                 `json:"content"`
	Created     time.Time              `json:"created"`
	Distance    float64                `json:"distance"`
}

func (r storyRow) match() models.StoryMatch {
	return models.StoryMatch{
		Story: models.Story{
			ID:             r.ID,
			SourceID:       r.SourceID,
			Title:          r.Title,
			URL:            r.URL,
			PublishedAt:    r.PublishedAt,
			ContentSummary: r.Content,
			Created:        r.Created,
		},
		Distance: r.Distance,
	}
}

// QueryNearestStories returns the k stories closest to embedding by cosine distance,
// nearest first. An empty table yields an empty slice.
func (c *Client) QueryNearestStories(ctx context.Context, embedding []float32, k int) ([]models.StoryMatch, error) {
	if k <= 0 {
		k = 1
	}

	// HNSW with ef=40 for better recall
	sql := fmt.Sprintf(`
		SELECT id, source_id, title, url, published_at, content, created,
			vector::distance::knn() AS distance
		FROM story
		WHERE embedding <|%d,40|> $emb
		ORDER BY distance ASC
	`, k)

	results, err := surrealdb.Query[[]storyRow](ctx, c.db, sql, map[string]any{
		"emb": embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("nearest stories: %w", wrapQueryError(err))
	}

	matches := []models.StoryMatch{}
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			matches = append(matches, row.match())
		}
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// QueryUpsertStory writes a story keyed by its record ID.
// Writing the same URL twice leaves exactly one record.
func (c *Client) QueryUpsertStory(ctx context.Context, story models.Story) error {
	sql := `
		UPSERT type::record("story", $id) SET
			source_id = $source_id,
			title = $title,
			url = $url,
			published_at = $published_at,
			content = $content,
			embedding = $embedding
		RETURN NONE
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":           story.Key(),
		"source_id":    story.SourceID,
		"title":        story.Title,
		"url":          story.URL,
		"published_at": story.PublishedAt,
		"content":      story.ContentSummary,
		"embedding":    story.Embedding,
	})
	if err != nil {
		return fmt.Errorf("upsert story: %w", wrapQueryError(err))
	}
	return nil
}

// QueryGetStory fetches a story by key. Returns ErrNotFound if absent.
func (c *Client) QueryGetStory(ctx context.Context, id string) (*models.Story, error) {
	sql := `SELECT id, source_id, title, url, published_at, content, created
		FROM type::record("story", $id)`

	results, err := surrealdb.Query[[]storyRow](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get story: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get story %s: %w", id, ErrNotFound)
	}

	story := (*results)[0].Result[0].match().Story
	return &story, nil
}

// QueryListStories returns the most recently stored stories, newest first.
func (c *Client) QueryListStories(ctx context.Context, limit int) ([]models.Story, error) {
	sql := `SELECT id, source_id, title, url, published_at, content, created
		FROM story ORDER BY created DESC LIMIT $limit`

	results, err := surrealdb.Query[[]storyRow](ctx, c.db, sql, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", wrapQueryError(err))
	}

	stories := []models.Story{}
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			stories = append(stories, row.match().Story)
		}
	}
	return stories, nil
}

// QueryCountStories returns the number of stories in memory.
func (c *Client) QueryCountStories(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]struct{ C int }](ctx, c.db, `SELECT count() AS c FROM story GROUP ALL`, nil)
	if err != nil {
		return 0, fmt.Errorf("count stories: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}

// QueryDeleteStory removes a story by key.
// Returns the number of deleted records (0 if none found - idempotent).
func (c *Client) QueryDeleteStory(ctx context.Context, id string) (int, error) {
	sql := `DELETE type::record("story", $id) RETURN BEFORE`

	results, err := surrealdb.Query[[]storyRow](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete story: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// QueryRecordRun stores a pipeline run summary under the given run ID.
func (c *Client) QueryRecordRun(ctx context.Context, id string, run models.Run) error {
	sql := `
		UPSERT type::record("run", $id) SET
			mode = $mode,
			status = $status,
			ingested = $ingested,
			unique_count = $unique_count,
			duplicates = $duplicates,
			segments = $segments,
			feed_url = $feed_url,
			error = $error,
			started = $started,
			finished = time::now()
		RETURN NONE
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":           id,
		"mode":         run.Mode,
		"status":       run.Status,
		"ingested":     run.Ingested,
		"unique_count": run.Unique,
		"duplicates":   run.Duplicates,
		"segments":     run.Segments,
		"feed_url":     run.FeedURL,
		"error":        run.Error,
		"started":      run.Started,
	})
	if err != nil {
		return fmt.Errorf("record run: %w", wrapQueryError(err))
	}
	return nil
}

// QueryListRuns returns recent runs, newest first.
func (c *Client) QueryListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	sql := `SELECT * FROM run ORDER BY started DESC LIMIT $limit`

	results, err := surrealdb.Query[[]models.Run](ctx, c.db, sql, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Run{}, nil
	}
	return (*results)[0].Result, nil
}

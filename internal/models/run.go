package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Run is the persisted summary of one pipeline execution.
type Run struct {
	ID         surrealmodels.RecordID `json:"id"`
	Mode       string                 `json:"mode"`
	Status     string                 `json:"status"`
	Ingested   int                    `json:"ingested"`
	Unique     int                    `json:"unique_count"`
	Duplicates int                    `json:"duplicates"`
	Segments   int                    `json:"segments"`
	FeedURL    *string                `json:"feed_url,omitempty"`
	Error      *string                `json:"error,omitempty"`
	Started    time.Time              `json:"started"`
	Finished   time.Time              `json:"finished,omitempty"`
}

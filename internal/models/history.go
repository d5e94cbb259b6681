package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SearchStatus is the outcome of an orchestration run as recorded in history.
type SearchStatus string

const (
	SearchStatusCompleted SearchStatus = "COMPLETED"
	SearchStatusFailed    SearchStatus = "FAILED"
)

// SearchFilters is the options blob stored alongside a search-history row.
// It is serialized at the persistence boundary and must round-trip intact.
type SearchFilters struct {
	Sources            []string `json:"sources,omitempty"`
	Category           *string  `json:"category,omitempty"`
	MaxArticles        int      `json:"max_articles,omitempty"`
	RelevanceThreshold float64  `json:"relevance_threshold,omitempty"`
	BatchSize          int      `json:"batch_size,omitempty"`
	SortBy             string   `json:"sort_by,omitempty"`
}

// SearchHistory is the append-only audit log of orchestration runs: one row
// per run, written on success and on failure.
type SearchHistory struct {
	ID          surrealmodels.RecordID `json:"id"`
	SearchQuery string                 `json:"search_query"`
	KeywordID   *string                `json:"keyword_id,omitempty"`
	ResultCount int                    `json:"result_count"`
	SearchTime  float64                `json:"search_time"` // seconds
	Status      SearchStatus           `json:"status"`
	Filters     *SearchFilters         `json:"filters,omitempty"`
	ErrorMsg    *string                `json:"error_message,omitempty"`
	CreatedAt   time.Time              `json:"created_at,omitempty"`
}

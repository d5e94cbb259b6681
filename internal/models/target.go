package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CrawlTarget is a news source registered for crawling. The orchestrator
// updates LastCrawl, ItemsCollected and SuccessRate after each job; targets
// are only ever deleted by explicit admin action.
type CrawlTarget struct {
	ID             surrealmodels.RecordID `json:"id"`
	Name           string                 `json:"name"`
	URL            string                 `json:"url"`
	Type           string                 `json:"type"`
	Category       *string                `json:"category,omitempty"`
	Enabled        bool                   `json:"enabled"`
	LastCrawl      *time.Time             `json:"last_crawl,omitempty"`
	ItemsCollected int                    `json:"items_collected"`
	SuccessRate    float64                `json:"success_rate"` // 0-100
	CreatedAt      time.Time              `json:"created_at,omitempty"`
}

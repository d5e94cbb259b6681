// Package models defines the persisted data shapes for the newsflow pipeline.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ArticleStatus tracks how far an article has moved through processing.
type ArticleStatus string

const (
	ArticleStatusRaw       ArticleStatus = "RAW"
	ArticleStatusProcessed ArticleStatus = "PROCESSED"
	ArticleStatusFailed    ArticleStatus = "FAILED"
)

// Article is a single scraped news article. The URL is globally unique: a
// second crawl job that fetches the same URL must not create a second row.
type Article struct {
	ID             surrealmodels.RecordID `json:"id"`
	URL            string                 `json:"url"`
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	Author         *string                `json:"author,omitempty"`
	PublishedAt    *time.Time             `json:"published_at,omitempty"`
	ExtractedAt    time.Time              `json:"extracted_at"`
	ImageURL       *string                `json:"image_url,omitempty"`
	RelevanceScore *float64               `json:"relevance_score,omitempty"` // nil = unscored, not zero
	KeywordTags    []string               `json:"keyword_tags,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	Status         ArticleStatus          `json:"status"`
	CrawlJobID     string                 `json:"crawl_job_id"`
	CreatedAt      time.Time              `json:"created_at,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at,omitempty"`
}

// ArticleInput carries the fields the ingestion pipeline persists.
type ArticleInput struct {
	URL            string
	Title          string
	Content        string
	Author         *string
	PublishedAt    *time.Time
	ImageURL       *string
	RelevanceScore *float64
	KeywordTags    []string
	Tags           []string
	Status         ArticleStatus
	CrawlJobID     string
}

package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SummaryType selects the shape of an AI-generated summary.
type SummaryType string

const (
	SummaryShort        SummaryType = "SHORT"
	SummaryMedium       SummaryType = "MEDIUM"
	SummaryLong         SummaryType = "LONG"
	SummaryBulletPoints SummaryType = "BULLET_POINTS"
	SummaryKeywordsOnly SummaryType = "KEYWORDS_ONLY"
)

// Summary is an AI-generated summary owned by an article. An article can
// carry several summaries of different types and versions.
type Summary struct {
	ID        surrealmodels.RecordID `json:"id"`
	ArticleID string                 `json:"article_id"`
	Type      SummaryType            `json:"type"`
	Content   string                 `json:"content"`
	Quality   *float64               `json:"quality,omitempty"`
	Version   int                    `json:"version"`
	Model     *string                `json:"model,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
}

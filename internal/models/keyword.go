package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Keyword is a search keyword with usage tracking. The keyword string is
// unique; UseCount only ever goes up and is incremented atomically in the
// store, never via read-modify-write.
type Keyword struct {
	ID          surrealmodels.RecordID `json:"id"`
	Keyword     string                 `json:"keyword"`
	UseCount    int                    `json:"use_count"`
	IsFavorite  bool                   `json:"is_favorite"`
	Category    *string                `json:"category,omitempty"`
	Description *string                `json:"description,omitempty"`
	CreatedAt   time.Time              `json:"created_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at,omitempty"`
}

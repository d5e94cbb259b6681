package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CrawlStatus is the lifecycle state of a crawl job.
type CrawlStatus string

const (
	CrawlStatusPending    CrawlStatus = "PENDING"
	CrawlStatusInProgress CrawlStatus = "IN_PROGRESS"
	CrawlStatusCompleted  CrawlStatus = "COMPLETED"
	CrawlStatusFailed     CrawlStatus = "FAILED"
	CrawlStatusCancelled  CrawlStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state.
func (s CrawlStatus) Terminal() bool {
	switch s {
	case CrawlStatusCompleted, CrawlStatusFailed, CrawlStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces monotonic status transitions: a job never moves
// backwards and terminal states are never overwritten. Cancellation is only
// honored while the job is still pending or in progress.
func (s CrawlStatus) CanTransitionTo(next CrawlStatus) bool {
	if s == next {
		return false
	}
	if s.Terminal() {
		return false
	}
	switch next {
	case CrawlStatusInProgress:
		return s == CrawlStatusPending
	case CrawlStatusCompleted, CrawlStatusFailed:
		return s == CrawlStatusInProgress
	case CrawlStatusCancelled:
		return s == CrawlStatusPending || s == CrawlStatusInProgress
	}
	return false
}

// CrawlJob is one scraping run against a crawl target. Mutation is owned
// exclusively by the orchestrator. Invariant: ProcessedItems <= TotalItems
// once TotalItems is known.
type CrawlJob struct {
	ID             surrealmodels.RecordID `json:"id"`
	TargetID       *string                `json:"target_id,omitempty"`
	Status         CrawlStatus            `json:"status"`
	TotalItems     int                    `json:"total_items"`
	ProcessedItems int                    `json:"processed_items"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage   *string                `json:"error_message,omitempty"`
	CreatedAt      time.Time              `json:"created_at,omitempty"`
}

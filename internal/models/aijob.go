package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// AnalysisType names an AI text-analysis operation.
type AnalysisType string

const (
	AnalysisKeywordExtraction   AnalysisType = "KEYWORD_EXTRACTION"
	AnalysisTopicClassification AnalysisType = "TOPIC_CLASSIFICATION"
	AnalysisSentiment           AnalysisType = "SENTIMENT_ANALYSIS"
	AnalysisSummaryGeneration   AnalysisType = "SUMMARY_GENERATION"
)

// AnalysisStatus is the retry state machine of an AI analysis job:
// PENDING -> IN_PROGRESS -> COMPLETED, or back to PENDING on a retryable
// failure until RetryCount reaches MaxRetries, then FAILED.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "PENDING"
	AnalysisStatusInProgress AnalysisStatus = "IN_PROGRESS"
	AnalysisStatusCompleted  AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed     AnalysisStatus = "FAILED"
)

// AIAnalysisJob is a queued text-analysis task with bounded retries.
// MaxRetries = 0 means no retries: the first failure is final.
type AIAnalysisJob struct {
	ID           surrealmodels.RecordID `json:"id"`
	Type         AnalysisType           `json:"type"`
	Status       AnalysisStatus         `json:"status"`
	ArticleID    *string                `json:"article_id,omitempty"`
	InputContent string                 `json:"input_content"`
	Result       *string                `json:"result,omitempty"`
	Model        string                 `json:"model"`
	Priority     int                    `json:"priority"`
	RetryCount   int                    `json:"retry_count"`
	MaxRetries   int                    `json:"max_retries"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	TokenUsage   *int                   `json:"token_usage,omitempty"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at,omitempty"`
}

// AIUsageLog records one billed call to the text-analysis collaborator.
type AIUsageLog struct {
	ID               surrealmodels.RecordID `json:"id"`
	Operation        string                 `json:"operation"`
	Model            string                 `json:"model"`
	PromptTokens     int                    `json:"prompt_tokens"`
	CompletionTokens int                    `json:"completion_tokens"`
	TotalTokens      int                    `json:"total_tokens"`
	Cost             float64                `json:"cost"`
	Status           string                 `json:"status"`
	ErrorMessage     *string                `json:"error_message,omitempty"`
	CreatedAt        time.Time              `json:"created_at,omitempty"`
}

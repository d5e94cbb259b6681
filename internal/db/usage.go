package db

import (
	"context"
	"fmt"
	"time"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// InsertAIUsage appends one billed AI call to the usage log. Failed calls
// are logged too, with status "error" and a zero cost.
func (c *Client) InsertAIUsage(ctx context.Context, log models.AIUsageLog) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE ai_usage_log SET
			operation = $operation,
			model = $model,
			prompt_tokens = $prompt_tokens,
			completion_tokens = $completion_tokens,
			total_tokens = $total_tokens,
			cost = $cost,
			status = $status,
			error_message = $error_message
	`, map[string]any{
		"operation":         log.Operation,
		"model":             log.Model,
		"prompt_tokens":     log.PromptTokens,
		"completion_tokens": log.CompletionTokens,
		"total_tokens":      log.TotalTokens,
		"cost":              log.Cost,
		"status":            log.Status,
		"error_message":     log.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("insert ai usage: %w", err)
	}
	return nil
}

// UsageBucket is an aggregated slice of the usage log.
type UsageBucket struct {
	Key         string  `json:"key"`
	Calls       int     `json:"calls"`
	TotalTokens int     `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}

// UsageSummary aggregates the usage log since a point in time.
type UsageSummary struct {
	TotalCalls  int
	TotalTokens int
	TotalCost   float64
	ByModel     []UsageBucket
	ByOperation []UsageBucket
}

// QueryUsageSummary aggregates AI spend since the given time, grouped by
// model and by operation.
func (c *Client) QueryUsageSummary(ctx context.Context, since time.Time) (*UsageSummary, error) {
	byModel, err := c.usageBuckets(ctx, "model", since)
	if err != nil {
		return nil, err
	}
	byOperation, err := c.usageBuckets(ctx, "operation", since)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummary{ByModel: byModel, ByOperation: byOperation}
	for _, b := range byModel {
		summary.TotalCalls += b.Calls
		summary.TotalTokens += b.TotalTokens
		summary.TotalCost += b.TotalCost
	}
	return summary, nil
}

func (c *Client) usageBuckets(ctx context.Context, field string, since time.Time) ([]UsageBucket, error) {
	// field is one of "model"/"operation", never user input
	sql := fmt.Sprintf(`
		SELECT
			%s AS key,
			count() AS calls,
			math::sum(total_tokens) AS total_tokens,
			math::sum(cost) AS total_cost
		FROM ai_usage_log
		WHERE created_at >= $since
		GROUP BY key
		ORDER BY total_cost DESC
	`, field)

	results, err := surrealdb.Query[[]UsageBucket](ctx, c.db, sql, map[string]any{"since": since})
	if err != nil {
		return nil, fmt.Errorf("usage summary by %s: %w", field, err)
	}

	buckets := rows(results)
	if buckets == nil {
		return []UsageBucket{}, nil
	}
	return buckets, nil
}

// CreateAnalysisJob queues a new AI text-analysis task.
func (c *Client) CreateAnalysisJob(ctx context.Context, job models.AIAnalysisJob) (*models.AIAnalysisJob, error) {
	results, err := surrealdb.Query[[]models.AIAnalysisJob](ctx, c.db, `
		CREATE ai_analysis_job SET
			type = $type,
			status = 'PENDING',
			article_id = $article_id,
			input_content = $input_content,
			model = $model,
			priority = $priority,
			retry_count = 0,
			max_retries = $max_retries
		RETURN AFTER
	`, map[string]any{
		"type":          job.Type,
		"article_id":    job.ArticleID,
		"input_content": job.InputContent,
		"model":         job.Model,
		"priority":      job.Priority,
		"max_retries":   job.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create analysis job: %w", err)
	}

	created := rows(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("create analysis job: no result returned")
	}
	return &created[0], nil
}

// ClaimNextAnalysisJob picks the highest-priority pending job and marks it
// IN_PROGRESS. Returns ErrNotFound when the queue is empty. The single
// worker owns the queue, so pick-then-claim needs no store-side locking.
func (c *Client) ClaimNextAnalysisJob(ctx context.Context) (*models.AIAnalysisJob, error) {
	results, err := surrealdb.Query[[]models.AIAnalysisJob](ctx, c.db, `
		SELECT * FROM ai_analysis_job
		WHERE status = 'PENDING'
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("next analysis job: %w", err)
	}

	pending := rows(results)
	if len(pending) == 0 {
		return nil, fmt.Errorf("next analysis job: %w", ErrNotFound)
	}

	id := models.MustRecordIDString(pending[0].ID)
	claimed, err := surrealdb.Query[[]models.AIAnalysisJob](ctx, c.db, `
		UPDATE type::record("ai_analysis_job", $id) SET
			status = 'IN_PROGRESS',
			started_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("claim analysis job: %w", err)
	}

	updated := rows(claimed)
	if len(updated) == 0 {
		return nil, fmt.Errorf("claim analysis job %s: %w", id, ErrNotFound)
	}
	return &updated[0], nil
}

// CompleteAnalysisJob marks a job COMPLETED with its result.
func (c *Client) CompleteAnalysisJob(ctx context.Context, id, result string, tokenUsage *int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("ai_analysis_job", $id) SET
			status = 'COMPLETED',
			result = $result,
			token_usage = $token_usage,
			completed_at = time::now()
	`, map[string]any{"id": id, "result": result, "token_usage": tokenUsage})
	if err != nil {
		return fmt.Errorf("complete analysis job: %w", err)
	}
	return nil
}

// RetryAnalysisJob puts a failed job back in the queue with its retry count
// bumped. The caller decides whether retries remain.
func (c *Client) RetryAnalysisJob(ctx context.Context, id, errorMessage string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("ai_analysis_job", $id) SET
			status = 'PENDING',
			retry_count += 1,
			error_message = $error_message,
			started_at = NONE
	`, map[string]any{"id": id, "error_message": errorMessage})
	if err != nil {
		return fmt.Errorf("retry analysis job: %w", err)
	}
	return nil
}

// FailAnalysisJob marks a job FAILED for good.
func (c *Client) FailAnalysisJob(ctx context.Context, id, errorMessage string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("ai_analysis_job", $id) SET
			status = 'FAILED',
			error_message = $error_message,
			completed_at = time::now()
	`, map[string]any{"id": id, "error_message": errorMessage})
	if err != nil {
		return fmt.Errorf("fail analysis job: %w", err)
	}
	return nil
}

// GetAnalysisJob retrieves an analysis job by ID. Returns ErrNotFound if missing.
func (c *Client) GetAnalysisJob(ctx context.Context, id string) (*models.AIAnalysisJob, error) {
	results, err := surrealdb.Query[[]models.AIAnalysisJob](ctx, c.db, `
		SELECT * FROM type::record("ai_analysis_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get analysis job: %w", err)
	}

	found := rows(results)
	if len(found) == 0 {
		return nil, fmt.Errorf("get analysis job %s: %w", id, ErrNotFound)
	}
	return &found[0], nil
}

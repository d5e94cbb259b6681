package db

import (
	"context"
	"fmt"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateCrawlJob creates a new crawl job in PENDING state.
func (c *Client) CreateCrawlJob(ctx context.Context, targetID *string) (*models.CrawlJob, error) {
	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		CREATE crawl_job SET
			target_id = $target_id,
			status = 'PENDING'
		RETURN AFTER
	`, map[string]any{"target_id": targetID})
	if err != nil {
		return nil, fmt.Errorf("create crawl job: %w", err)
	}

	created := rows(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("create crawl job: no result returned")
	}
	return &created[0], nil
}

// GetCrawlJob retrieves a crawl job by ID. Returns ErrNotFound if missing.
func (c *Client) GetCrawlJob(ctx context.Context, id string) (*models.CrawlJob, error) {
	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		SELECT * FROM type::record("crawl_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get crawl job: %w", err)
	}

	found := rows(results)
	if len(found) == 0 {
		return nil, fmt.Errorf("get crawl job %s: %w", id, ErrNotFound)
	}
	return &found[0], nil
}

// UpdateCrawlJobStatus transitions a crawl job to a new status, enforcing
// the monotonic state machine. Started and completed timestamps are set by
// the transition itself so they cannot drift from the status.
func (c *Client) UpdateCrawlJobStatus(
	ctx context.Context,
	id string,
	status models.CrawlStatus,
	errorMessage *string,
) (*models.CrawlJob, error) {
	current, err := c.GetCrawlJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("crawl job %s: invalid transition %s -> %s", id, current.Status, status)
	}

	sql := `
		UPDATE type::record("crawl_job", $id) SET
			status = $status,
			error_message = $error_message,
			started_at = IF $status = 'IN_PROGRESS' THEN time::now() ELSE started_at END,
			completed_at = IF $status IN ['COMPLETED', 'FAILED', 'CANCELLED'] THEN time::now() ELSE completed_at END
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, sql, map[string]any{
		"id":            id,
		"status":        status,
		"error_message": errorMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("update crawl job status: %w", err)
	}

	updated := rows(results)
	if len(updated) == 0 {
		return nil, fmt.Errorf("update crawl job %s: %w", id, ErrNotFound)
	}
	return &updated[0], nil
}

// SetCrawlJobTotal records how many items the job will process.
func (c *Client) SetCrawlJobTotal(ctx context.Context, id string, total int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("crawl_job", $id) SET total_items = $total
	`, map[string]any{"id": id, "total": total})
	if err != nil {
		return fmt.Errorf("set crawl job total: %w", err)
	}
	return nil
}

// IncrementCrawlJobProgress bumps processed_items atomically in the store,
// so concurrent batch workers never lose an increment.
func (c *Client) IncrementCrawlJobProgress(ctx context.Context, id string, n int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("crawl_job", $id) SET processed_items += $n
	`, map[string]any{"id": id, "n": n})
	if err != nil {
		return fmt.Errorf("increment crawl job progress: %w", err)
	}
	return nil
}

// DeleteCrawlJob removes a crawl job together with every article it
// produced. The dependent DELETE lives here so no caller has to remember
// the cascade.
func (c *Client) DeleteCrawlJob(ctx context.Context, id string) (int, error) {
	if _, err := surrealdb.Query[any](ctx, c.db, `
		DELETE article WHERE crawl_job_id = $job
	`, map[string]any{"job": id}); err != nil {
		return 0, fmt.Errorf("delete crawl job articles: %w", err)
	}

	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		DELETE type::record("crawl_job", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete crawl job: %w", err)
	}
	return len(rows(results)), nil
}

// ListCrawlJobs returns the most recent crawl jobs.
func (c *Client) ListCrawlJobs(ctx context.Context, limit int) ([]models.CrawlJob, error) {
	if limit <= 0 {
		limit = 50
	}

	results, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		SELECT * FROM crawl_job ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}

	found := rows(results)
	if found == nil {
		return []models.CrawlJob{}, nil
	}
	return found, nil
}

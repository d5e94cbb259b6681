package db

import (
	"context"
	"fmt"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateSummary stores an AI-generated summary for an article. The version
// is assigned here: one past the highest existing version of the same type,
// so regenerating a summary never overwrites the previous one.
func (c *Client) CreateSummary(ctx context.Context, articleID string, summaryType models.SummaryType, content string, quality *float64, model *string) (*models.Summary, error) {
	existing, err := c.ListSummariesByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	version := 1
	for _, s := range existing {
		if s.Type == summaryType && s.Version >= version {
			version = s.Version + 1
		}
	}

	results, err := surrealdb.Query[[]models.Summary](ctx, c.db, `
		CREATE summary SET
			article_id = $article_id,
			type = $type,
			content = $content,
			quality = $quality,
			version = $version,
			model = $model
		RETURN AFTER
	`, map[string]any{
		"article_id": articleID,
		"type":       summaryType,
		"content":    content,
		"quality":    quality,
		"version":    version,
		"model":      model,
	})
	if err != nil {
		return nil, fmt.Errorf("create summary: %w", err)
	}

	created := rows(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("create summary: no result returned")
	}
	return &created[0], nil
}

// ListSummariesByArticle returns all summaries for one article, newest first.
func (c *Client) ListSummariesByArticle(ctx context.Context, articleID string) ([]models.Summary, error) {
	results, err := surrealdb.Query[[]models.Summary](ctx, c.db, `
		SELECT * FROM summary WHERE article_id = $article_id ORDER BY created_at DESC
	`, map[string]any{"article_id": articleID})
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	found := rows(results)
	if found == nil {
		return []models.Summary{}, nil
	}
	return found, nil
}

// DeleteSummariesByArticle removes every summary owned by an article. Called
// when the article itself is deleted so no orphan summaries remain.
func (c *Client) DeleteSummariesByArticle(ctx context.Context, articleID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE summary WHERE article_id = $article_id
	`, map[string]any{"article_id": articleID})
	if err != nil {
		return fmt.Errorf("delete summaries: %w", err)
	}
	return nil
}

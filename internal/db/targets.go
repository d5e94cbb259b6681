package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateCrawlTarget registers a news source. The unique url index rejects a
// second registration of the same source with ErrAlreadyExists.
func (c *Client) CreateCrawlTarget(ctx context.Context, name, url, targetType string, category *string) (*models.CrawlTarget, error) {
	if targetType == "" {
		targetType = "news"
	}

	results, err := surrealdb.Query[[]models.CrawlTarget](ctx, c.db, `
		CREATE crawl_target SET
			name = $name,
			url = $url,
			type = $type,
			category = $category,
			enabled = true
		RETURN AFTER
	`, map[string]any{
		"name":     name,
		"url":      url,
		"type":     targetType,
		"category": category,
	})
	if err != nil {
		return nil, fmt.Errorf("create crawl target: %w", wrapQueryError(err))
	}

	created := rows(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("create crawl target: no result returned")
	}
	return &created[0], nil
}

// ListCrawlTargets returns registered targets. When enabledOnly is set,
// disabled targets are excluded.
func (c *Client) ListCrawlTargets(ctx context.Context, enabledOnly bool) ([]models.CrawlTarget, error) {
	where := ""
	if enabledOnly {
		where = "WHERE enabled = true"
	}

	sql := fmt.Sprintf(`SELECT * FROM crawl_target %s ORDER BY name ASC`, where)

	results, err := surrealdb.Query[[]models.CrawlTarget](ctx, c.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("list crawl targets: %w", err)
	}

	found := rows(results)
	if found == nil {
		return []models.CrawlTarget{}, nil
	}
	return found, nil
}

// SetCrawlTargetEnabled toggles a target without deleting its stats.
func (c *Client) SetCrawlTargetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("crawl_target", $id) SET enabled = $enabled
	`, map[string]any{"id": id, "enabled": enabled})
	if err != nil {
		return fmt.Errorf("set crawl target enabled: %w", err)
	}
	return nil
}

// UpdateCrawlTargetStats records the outcome of a crawl run against a
// target. Items add up atomically in the store; the success rate is the
// caller-computed rolling value.
func (c *Client) UpdateCrawlTargetStats(ctx context.Context, id string, itemsCollected int, successRate float64) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("crawl_target", $id) SET
			last_crawl = time::now(),
			items_collected += $items,
			success_rate = $success_rate
	`, map[string]any{"id": id, "items": itemsCollected, "success_rate": successRate})
	if err != nil {
		return fmt.Errorf("update crawl target stats: %w", err)
	}
	return nil
}

// DeleteCrawlTarget removes a target by explicit admin action, cascading
// through its crawl jobs and their articles.
func (c *Client) DeleteCrawlTarget(ctx context.Context, id string) (int, error) {
	jobs, err := surrealdb.Query[[]models.CrawlJob](ctx, c.db, `
		SELECT * FROM crawl_job WHERE target_id = $target
	`, map[string]any{"target": id})
	if err != nil {
		return 0, fmt.Errorf("list target crawl jobs: %w", err)
	}
	for _, job := range rows(jobs) {
		if _, err := c.DeleteCrawlJob(ctx, models.MustRecordIDString(job.ID)); err != nil {
			return 0, err
		}
	}

	results, err := surrealdb.Query[[]models.CrawlTarget](ctx, c.db, `
		DELETE type::record("crawl_target", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete crawl target: %w", err)
	}

	return len(rows(results)), nil
}

// SeedTarget is one entry in the default source list.
type SeedTarget struct {
	Name     string
	URL      string
	Type     string
	Category *string
}

// DefaultSeedTargets are the news sources registered by `targets seed`.
var DefaultSeedTargets = []SeedTarget{
	{Name: "Naver News", URL: "https://news.naver.com", Type: "news", Category: ptr("general")},
	{Name: "Daum News", URL: "https://news.daum.net", Type: "news", Category: ptr("general")},
	{Name: "Yonhap News", URL: "https://www.yna.co.kr", Type: "news", Category: ptr("wire")},
	{Name: "KBS News", URL: "https://news.kbs.co.kr", Type: "news", Category: ptr("broadcast")},
	{Name: "MBC News", URL: "https://imnews.imbc.com", Type: "news", Category: ptr("broadcast")},
	{Name: "SBS News", URL: "https://news.sbs.co.kr", Type: "news", Category: ptr("broadcast")},
}

func ptr(s string) *string { return &s }

// SeedCrawlTargets inserts the default news sources, skipping any whose URL
// is already registered. Safe to run on every startup.
func (c *Client) SeedCrawlTargets(ctx context.Context, targets []SeedTarget) (int, error) {
	created := 0
	for _, t := range targets {
		_, err := c.CreateCrawlTarget(ctx, t.Name, t.URL, t.Type, t.Category)
		if err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

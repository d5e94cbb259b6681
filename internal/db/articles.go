package db

import (
	"context"
	"fmt"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// rows extracts the first statement's result set from a query response.
func rows[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return nil
	}
	return (*results)[0].Result
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	Status     *models.ArticleStatus
	CrawlJobID *string
	Query      string // substring match on title and content
	Limit      int
	Offset     int
}

// CreateArticle inserts a new article. The unique url index makes this the
// dedup gate of record: a second insert for the same URL fails with
// ErrAlreadyExists no matter how the callers interleave.
func (c *Client) CreateArticle(ctx context.Context, in models.ArticleInput) (*models.Article, error) {
	status := in.Status
	if status == "" {
		status = models.ArticleStatusRaw
	}

	sql := `
		CREATE article SET
			url = $url,
			title = $title,
			content = $content,
			author = $author,
			published_at = $published_at,
			image_url = $image_url,
			relevance_score = $relevance_score,
			keyword_tags = $keyword_tags,
			tags = $tags,
			status = $status,
			crawl_job_id = $crawl_job_id
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Article](ctx, c.db, sql, map[string]any{
		"url":             in.URL,
		"title":           in.Title,
		"content":         in.Content,
		"author":          in.Author,
		"published_at":    in.PublishedAt,
		"image_url":       in.ImageURL,
		"relevance_score": in.RelevanceScore,
		"keyword_tags":    in.KeywordTags,
		"tags":            in.Tags,
		"status":          status,
		"crawl_job_id":    in.CrawlJobID,
	})
	if err != nil {
		return nil, fmt.Errorf("create article: %w", wrapQueryError(err))
	}

	created := rows(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("create article: no result returned")
	}
	return &created[0], nil
}

// GetArticle retrieves an article by ID. Returns ErrNotFound if missing.
func (c *Client) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	results, err := surrealdb.Query[[]models.Article](ctx, c.db, `
		SELECT * FROM type::record("article", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	found := rows(results)
	if len(found) == 0 {
		return nil, fmt.Errorf("get article %s: %w", id, ErrNotFound)
	}
	return &found[0], nil
}

// GetArticleByURL retrieves an article by its URL. Returns ErrNotFound if missing.
func (c *Client) GetArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	results, err := surrealdb.Query[[]models.Article](ctx, c.db, `
		SELECT * FROM article WHERE url = $url LIMIT 1
	`, map[string]any{"url": url})
	if err != nil {
		return nil, fmt.Errorf("get article by url: %w", err)
	}

	found := rows(results)
	if len(found) == 0 {
		return nil, fmt.Errorf("get article by url: %w", ErrNotFound)
	}
	return &found[0], nil
}

// ArticleExistsByURL reports whether an article with the given URL exists.
func (c *Client) ArticleExistsByURL(ctx context.Context, url string) (bool, error) {
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `
		SELECT count() AS c FROM article WHERE url = $url GROUP ALL
	`, map[string]any{"url": url})
	if err != nil {
		return false, fmt.Errorf("article exists: %w", err)
	}

	counts := rows(results)
	return len(counts) > 0 && counts[0].C > 0, nil
}

// ListArticles returns articles matching the filter, newest first.
func (c *Client) ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	where := ""
	vars := map[string]any{
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}
	if filter.Limit <= 0 {
		vars["limit"] = 50
	}

	clauses := []string{}
	if filter.Status != nil {
		clauses = append(clauses, "status = $status")
		vars["status"] = *filter.Status
	}
	if filter.CrawlJobID != nil {
		clauses = append(clauses, "crawl_job_id = $job_id")
		vars["job_id"] = *filter.CrawlJobID
	}
	if filter.Query != "" {
		clauses = append(clauses, "(title CONTAINS $q OR content CONTAINS $q)")
		vars["q"] = filter.Query
	}
	for i, clause := range clauses {
		if i == 0 {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	sql := fmt.Sprintf(`
		SELECT * FROM article %s
		ORDER BY created_at DESC
		LIMIT $limit START $offset
	`, where)

	results, err := surrealdb.Query[[]models.Article](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	found := rows(results)
	if found == nil {
		return []models.Article{}, nil
	}
	return found, nil
}

// UpdateArticleStatus moves an article to a new processing status.
func (c *Client) UpdateArticleStatus(ctx context.Context, id string, status models.ArticleStatus) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("article", $id) SET
			status = $status,
			updated_at = time::now()
	`, map[string]any{"id": id, "status": status})
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	return nil
}

// UpdateArticleAnalysis writes processing results back onto the article.
// Nil relevanceScore clears the score (unscored), matching the nil-vs-zero
// distinction on the model.
func (c *Client) UpdateArticleAnalysis(
	ctx context.Context,
	id string,
	relevanceScore *float64,
	keywordTags []string,
	tags []string,
	status models.ArticleStatus,
) (*models.Article, error) {
	sql := `
		UPDATE type::record("article", $id) SET
			relevance_score = $relevance_score,
			keyword_tags = $keyword_tags,
			tags = $tags,
			status = $status,
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Article](ctx, c.db, sql, map[string]any{
		"id":              id,
		"relevance_score": relevanceScore,
		"keyword_tags":    keywordTags,
		"tags":            tags,
		"status":          status,
	})
	if err != nil {
		return nil, fmt.Errorf("update article analysis: %w", err)
	}

	updated := rows(results)
	if len(updated) == 0 {
		return nil, fmt.Errorf("update article analysis %s: %w", id, ErrNotFound)
	}
	return &updated[0], nil
}

// UpdateArticleContent rewrites the normalized content and title of an
// article. Used by the data normalization maintenance pass.
func (c *Client) UpdateArticleContent(ctx context.Context, id, title, content string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("article", $id) SET
			title = $title,
			content = $content,
			updated_at = time::now()
	`, map[string]any{"id": id, "title": title, "content": content})
	if err != nil {
		return fmt.Errorf("update article content: %w", err)
	}
	return nil
}

// DeleteArticle deletes an article and its summaries. Returns the count of
// deleted articles (0 if not found - idempotent).
func (c *Client) DeleteArticle(ctx context.Context, id string) (int, error) {
	if err := c.DeleteSummariesByArticle(ctx, id); err != nil {
		return 0, err
	}

	results, err := surrealdb.Query[[]models.Article](ctx, c.db, `
		DELETE type::record("article", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete article: %w", err)
	}

	return len(rows(results)), nil
}

// StatusCount is a count of articles in one processing status.
type StatusCount struct {
	Status models.ArticleStatus `json:"status"`
	Count  int                  `json:"count"`
}

// CountArticlesByStatus returns article counts grouped by status.
func (c *Client) CountArticlesByStatus(ctx context.Context) ([]StatusCount, error) {
	results, err := surrealdb.Query[[]StatusCount](ctx, c.db, `
		SELECT status, count() AS count FROM article GROUP BY status
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("count articles by status: %w", err)
	}

	counts := rows(results)
	if counts == nil {
		return []StatusCount{}, nil
	}
	return counts, nil
}

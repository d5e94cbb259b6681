package db

import (
	"context"
	"fmt"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// RecordKeywordUse upserts a keyword and bumps its use count in a single
// statement. The increment happens in the store, never as a read-modify-write
// in Go, so concurrent searches cannot lose counts.
func (c *Client) RecordKeywordUse(ctx context.Context, keyword string) (*models.Keyword, error) {
	sql := `
		UPSERT keyword SET
			keyword = $keyword,
			use_count += 1,
			updated_at = time::now()
		WHERE keyword = $keyword
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, sql, map[string]any{
		"keyword": keyword,
	})
	if err != nil {
		return nil, fmt.Errorf("record keyword use: %w", wrapQueryError(err))
	}

	upserted := rows(results)
	if len(upserted) == 0 {
		return nil, fmt.Errorf("record keyword use: no result returned")
	}
	return &upserted[0], nil
}

// GetKeyword retrieves a keyword by its string. Returns ErrNotFound if missing.
func (c *Client) GetKeyword(ctx context.Context, keyword string) (*models.Keyword, error) {
	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, `
		SELECT * FROM keyword WHERE keyword = $keyword LIMIT 1
	`, map[string]any{"keyword": keyword})
	if err != nil {
		return nil, fmt.Errorf("get keyword: %w", err)
	}

	found := rows(results)
	if len(found) == 0 {
		return nil, fmt.Errorf("get keyword %q: %w", keyword, ErrNotFound)
	}
	return &found[0], nil
}

// SetKeywordFavorite flips the favorite flag on a keyword.
func (c *Client) SetKeywordFavorite(ctx context.Context, id string, favorite bool) (*models.Keyword, error) {
	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, `
		UPDATE type::record("keyword", $id) SET
			is_favorite = $favorite,
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": id, "favorite": favorite})
	if err != nil {
		return nil, fmt.Errorf("set keyword favorite: %w", err)
	}

	updated := rows(results)
	if len(updated) == 0 {
		return nil, fmt.Errorf("set keyword favorite %s: %w", id, ErrNotFound)
	}
	return &updated[0], nil
}

// UpdateKeywordMetadata sets the category and description of a keyword.
func (c *Client) UpdateKeywordMetadata(ctx context.Context, id string, category, description *string) (*models.Keyword, error) {
	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, `
		UPDATE type::record("keyword", $id) SET
			category = $category,
			description = $description,
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": id, "category": category, "description": description})
	if err != nil {
		return nil, fmt.Errorf("update keyword metadata: %w", err)
	}

	updated := rows(results)
	if len(updated) == 0 {
		return nil, fmt.Errorf("update keyword %s: %w", id, ErrNotFound)
	}
	return &updated[0], nil
}

// ListKeywords returns keywords ordered by use count, most used first.
// When favoritesOnly is set, non-favorites are excluded.
func (c *Client) ListKeywords(ctx context.Context, favoritesOnly bool, limit int) ([]models.Keyword, error) {
	if limit <= 0 {
		limit = 100
	}

	where := ""
	if favoritesOnly {
		where = "WHERE is_favorite = true"
	}

	sql := fmt.Sprintf(`
		SELECT * FROM keyword %s
		ORDER BY use_count DESC
		LIMIT $limit
	`, where)

	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, sql, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}

	found := rows(results)
	if found == nil {
		return []models.Keyword{}, nil
	}
	return found, nil
}

// SuggestKeywords returns keywords starting with the given prefix, ranked by
// use count. Drives the admin search box autocomplete.
func (c *Client) SuggestKeywords(ctx context.Context, prefix string, limit int) ([]models.Keyword, error) {
	if limit <= 0 {
		limit = 10
	}

	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, `
		SELECT * FROM keyword
		WHERE string::starts_with(string::lowercase(keyword), string::lowercase($prefix))
		ORDER BY use_count DESC
		LIMIT $limit
	`, map[string]any{"prefix": prefix, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("suggest keywords: %w", err)
	}

	found := rows(results)
	if found == nil {
		return []models.Keyword{}, nil
	}
	return found, nil
}

// DeleteKeyword deletes a keyword by ID. Returns count deleted (0 when
// already gone - idempotent).
func (c *Client) DeleteKeyword(ctx context.Context, id string) (int, error) {
	results, err := surrealdb.Query[[]models.Keyword](ctx, c.db, `
		DELETE type::record("keyword", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete keyword: %w", err)
	}

	return len(rows(results)), nil
}

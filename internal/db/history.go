package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// searchHistoryRow is the wire shape of a search_history record: filters are
// stored serialized and decoded back at this boundary only.
type searchHistoryRow struct {
	ID          surrealmodels.RecordID `json:"id"`
	SearchQuery string                 `json:"search_query"`
	KeywordID   *string                `json:"keyword_id,omitempty"`
	ResultCount int                    `json:"result_count"`
	SearchTime  float64                `json:"search_time"`
	Status      models.SearchStatus    `json:"status"`
	RawFilters  *string                `json:"filters,omitempty"`
	ErrorMsg    *string                `json:"error_message,omitempty"`
	CreatedAt   time.Time              `json:"created_at,omitempty"`
}

func (r *searchHistoryRow) toModel() (*models.SearchHistory, error) {
	h := models.SearchHistory{
		ID:          r.ID,
		SearchQuery: r.SearchQuery,
		KeywordID:   r.KeywordID,
		ResultCount: r.ResultCount,
		SearchTime:  r.SearchTime,
		Status:      r.Status,
		ErrorMsg:    r.ErrorMsg,
		CreatedAt:   r.CreatedAt,
	}
	if r.RawFilters != nil && *r.RawFilters != "" {
		var f models.SearchFilters
		if err := json.Unmarshal([]byte(*r.RawFilters), &f); err != nil {
			return nil, fmt.Errorf("decode search filters: %w", err)
		}
		h.Filters = &f
	}
	return &h, nil
}

// RecordSearch appends one orchestration run to the search history log.
// History is append-only: rows are written once and never updated.
func (c *Client) RecordSearch(ctx context.Context, h models.SearchHistory) (*models.SearchHistory, error) {
	var rawFilters *string
	if h.Filters != nil {
		encoded, err := json.Marshal(h.Filters)
		if err != nil {
			return nil, fmt.Errorf("encode search filters: %w", err)
		}
		s := string(encoded)
		rawFilters = &s
	}

	sql := `
		CREATE search_history SET
			search_query = $search_query,
			keyword_id = $keyword_id,
			result_count = $result_count,
			search_time = $search_time,
			status = $status,
			filters = $filters,
			error_message = $error_message
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]searchHistoryRow](ctx, c.db, sql, map[string]any{
		"search_query":  h.SearchQuery,
		"keyword_id":    h.KeywordID,
		"result_count":  h.ResultCount,
		"search_time":   h.SearchTime,
		"status":        h.Status,
		"filters":       rawFilters,
		"error_message": h.ErrorMsg,
	})
	if err != nil {
		return nil, fmt.Errorf("record search: %w", err)
	}

	created := rows(results)
	if len(created) == 0 {
		return nil, fmt.Errorf("record search: no result returned")
	}
	return created[0].toModel()
}

// GetSearchHistory retrieves one history row. Returns ErrNotFound if missing.
func (c *Client) GetSearchHistory(ctx context.Context, id string) (*models.SearchHistory, error) {
	results, err := surrealdb.Query[[]searchHistoryRow](ctx, c.db, `
		SELECT * FROM type::record("search_history", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get search history: %w", err)
	}

	found := rows(results)
	if len(found) == 0 {
		return nil, fmt.Errorf("get search history %s: %w", id, ErrNotFound)
	}
	return found[0].toModel()
}

// ListSearchHistory returns history rows, newest first.
func (c *Client) ListSearchHistory(ctx context.Context, limit, offset int) ([]models.SearchHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	results, err := surrealdb.Query[[]searchHistoryRow](ctx, c.db, `
		SELECT * FROM search_history
		ORDER BY created_at DESC
		LIMIT $limit START $offset
	`, map[string]any{"limit": limit, "offset": offset})
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}

	found := rows(results)
	history := make([]models.SearchHistory, 0, len(found))
	for i := range found {
		h, err := found[i].toModel()
		if err != nil {
			return nil, err
		}
		history = append(history, *h)
	}
	return history, nil
}

// DeleteSearchHistory removes one history row by explicit admin action.
func (c *Client) DeleteSearchHistory(ctx context.Context, id string) (int, error) {
	results, err := surrealdb.Query[[]searchHistoryRow](ctx, c.db, `
		DELETE type::record("search_history", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete search history: %w", err)
	}

	return len(rows(results)), nil
}

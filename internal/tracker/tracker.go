// Package tracker records search history and AI usage accounting.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/newsflow/newsflow-go/internal/config"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
)

// Store is the persistence the tracker needs. *db.Client implements it.
type Store interface {
	RecordSearch(ctx context.Context, h models.SearchHistory) (*models.SearchHistory, error)
	ListSearchHistory(ctx context.Context, limit, offset int) ([]models.SearchHistory, error)
	GetSearchHistory(ctx context.Context, id string) (*models.SearchHistory, error)
	DeleteSearchHistory(ctx context.Context, id string) (int, error)
	InsertAIUsage(ctx context.Context, log models.AIUsageLog) error
	QueryUsageSummary(ctx context.Context, since time.Time) (*db.UsageSummary, error)
}

// Tracker appends to the search-history audit log and the AI usage ledger.
// Tracking never fails a caller's operation: write errors are logged and
// swallowed.
type Tracker struct {
	store   Store
	pricing config.PricingTable
	logger  *slog.Logger
}

// New creates a tracker with the given pricing table.
func New(store Store, pricing config.PricingTable, logger *slog.Logger) *Tracker {
	if pricing.Models == nil {
		pricing = config.DefaultPricingTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, pricing: pricing, logger: logger}
}

// SearchRecord describes one finished orchestration run.
type SearchRecord struct {
	Query     string
	KeywordID *string
	Results   int
	Duration  time.Duration
	Status    models.SearchStatus
	Filters   *models.SearchFilters
	Err       error
}

// RecordSearch appends one run to the history log. Called on success and on
// failure alike, so the audit log has no gaps.
func (t *Tracker) RecordSearch(ctx context.Context, rec SearchRecord) {
	var errMsg *string
	if rec.Err != nil {
		s := rec.Err.Error()
		errMsg = &s
	}

	_, err := t.store.RecordSearch(ctx, models.SearchHistory{
		SearchQuery: rec.Query,
		KeywordID:   rec.KeywordID,
		ResultCount: rec.Results,
		SearchTime:  rec.Duration.Seconds(),
		Status:      rec.Status,
		Filters:     rec.Filters,
		ErrorMsg:    errMsg,
	})
	if err != nil {
		t.logger.Error("failed to record search history", "query", rec.Query, "error", err)
	}
}

// RecordAIUsage logs one billed AI call. Cost is computed from the pricing
// table; unknown models fall back to the default rate instead of dropping
// the entry.
func (t *Tracker) RecordAIUsage(ctx context.Context, operation, model string, promptTokens, completionTokens int, callErr error) {
	status := "success"
	var errMsg *string
	if callErr != nil {
		status = "error"
		s := callErr.Error()
		errMsg = &s
	}

	err := t.store.InsertAIUsage(ctx, models.AIUsageLog{
		Operation:        operation,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Cost:             t.pricing.Cost(model, promptTokens, completionTokens),
		Status:           status,
		ErrorMessage:     errMsg,
	})
	if err != nil {
		t.logger.Error("failed to record ai usage", "operation", operation, "model", model, "error", err)
	}
}

// History returns recent search-history rows, newest first.
func (t *Tracker) History(ctx context.Context, limit, offset int) ([]models.SearchHistory, error) {
	return t.store.ListSearchHistory(ctx, limit, offset)
}

// GetSearch returns one search-history row.
func (t *Tracker) GetSearch(ctx context.Context, id string) (*models.SearchHistory, error) {
	return t.store.GetSearchHistory(ctx, id)
}

// DeleteSearch removes a search-history row by id.
func (t *Tracker) DeleteSearch(ctx context.Context, id string) (int, error) {
	return t.store.DeleteSearchHistory(ctx, id)
}

// UsageSummary aggregates AI spend since the given time.
func (t *Tracker) UsageSummary(ctx context.Context, since time.Time) (*db.UsageSummary, error) {
	return t.store.QueryUsageSummary(ctx, since)
}

package tracker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newsflow/newsflow-go/internal/config"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
)

type fakeStore struct {
	searches   []models.SearchHistory
	usage      []models.AIUsageLog
	insertErr  error
	historyErr error
}

func (f *fakeStore) RecordSearch(ctx context.Context, h models.SearchHistory) (*models.SearchHistory, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	f.searches = append(f.searches, h)
	return &h, nil
}

func (f *fakeStore) ListSearchHistory(ctx context.Context, limit, offset int) ([]models.SearchHistory, error) {
	return f.searches, nil
}

func (f *fakeStore) GetSearchHistory(ctx context.Context, id string) (*models.SearchHistory, error) {
	return nil, db.ErrNotFound
}

func (f *fakeStore) DeleteSearchHistory(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func (f *fakeStore) InsertAIUsage(ctx context.Context, log models.AIUsageLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.usage = append(f.usage, log)
	return nil
}

func (f *fakeStore) QueryUsageSummary(ctx context.Context, since time.Time) (*db.UsageSummary, error) {
	return &db.UsageSummary{}, nil
}

func TestRecordSearchSuccessAndFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := New(store, config.PricingTable{}, nil)

	tr.RecordSearch(ctx, SearchRecord{
		Query:    "ai, robotics",
		Results:  5,
		Duration: 1500 * time.Millisecond,
		Status:   models.SearchStatusCompleted,
	})
	tr.RecordSearch(ctx, SearchRecord{
		Query:  "ai",
		Status: models.SearchStatusFailed,
		Err:    errors.New("provider unavailable"),
	})

	if len(store.searches) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(store.searches))
	}
	if store.searches[0].SearchTime != 1.5 {
		t.Errorf("expected search time 1.5s, got %v", store.searches[0].SearchTime)
	}
	if store.searches[1].ErrorMsg == nil || *store.searches[1].ErrorMsg != "provider unavailable" {
		t.Errorf("expected error message on failed run, got %v", store.searches[1].ErrorMsg)
	}
}

func TestRecordSearchSwallowsStoreErrors(t *testing.T) {
	store := &fakeStore{historyErr: errors.New("db down")}
	tr := New(store, config.PricingTable{}, nil)

	// Must not panic or propagate.
	tr.RecordSearch(context.Background(), SearchRecord{Query: "x", Status: models.SearchStatusCompleted})
}

func TestRecordAIUsageCost(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := New(store, config.DefaultPricingTable(), nil)

	tr.RecordAIUsage(ctx, "summarize", "gpt-4", 1000, 500, nil)

	if len(store.usage) != 1 {
		t.Fatalf("expected 1 usage row, got %d", len(store.usage))
	}
	u := store.usage[0]
	if u.TotalTokens != 1500 {
		t.Errorf("expected 1500 total tokens, got %d", u.TotalTokens)
	}
	// gpt-4: 0.03/1k prompt + 0.06/1k completion
	want := 0.03 + 0.03
	if math.Abs(u.Cost-want) > 1e-9 {
		t.Errorf("expected cost %v, got %v", want, u.Cost)
	}
	if u.Status != "success" {
		t.Errorf("expected success status, got %q", u.Status)
	}
}

func TestRecordAIUsageFailedCall(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := New(store, config.PricingTable{}, nil)

	tr.RecordAIUsage(ctx, "sentiment", "unknown-model", 10, 0, errors.New("rate limited"))

	if len(store.usage) != 1 {
		t.Fatalf("expected 1 usage row, got %d", len(store.usage))
	}
	u := store.usage[0]
	if u.Status != "error" || u.ErrorMessage == nil {
		t.Errorf("expected error status with message, got %+v", u)
	}
}

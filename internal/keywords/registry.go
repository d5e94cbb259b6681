// Package keywords manages the search keyword registry and its usage counts.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsflow/newsflow-go/internal/models"
)

// ErrEmptyKeyword is returned when a blank keyword reaches the registry.
var ErrEmptyKeyword = errors.New("keywords: keyword is empty")

// Store is the persistence the registry needs. *db.Client implements it.
type Store interface {
	RecordKeywordUse(ctx context.Context, keyword string) (*models.Keyword, error)
	GetKeyword(ctx context.Context, keyword string) (*models.Keyword, error)
	SetKeywordFavorite(ctx context.Context, id string, favorite bool) (*models.Keyword, error)
	UpdateKeywordMetadata(ctx context.Context, id string, category, description *string) (*models.Keyword, error)
	ListKeywords(ctx context.Context, favoritesOnly bool, limit int) ([]models.Keyword, error)
	SuggestKeywords(ctx context.Context, prefix string, limit int) ([]models.Keyword, error)
	DeleteKeyword(ctx context.Context, id string) (int, error)
}

// Registry tracks keyword usage for the admin search surface.
type Registry struct {
	store  Store
	logger *slog.Logger
}

// NewRegistry creates a keyword registry.
func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// canonical maps a raw keyword to its registry form: trimmed and
// lowercased, so "AI" and "ai" count against the same row.
func canonical(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// RecordUse upserts one keyword and bumps its use count.
func (r *Registry) RecordUse(ctx context.Context, keyword string) (*models.Keyword, error) {
	keyword = canonical(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	return r.store.RecordKeywordUse(ctx, keyword)
}

// RecordUseAll records every keyword of a search. Blank entries are skipped.
// Returns the recorded keywords in input order.
func (r *Registry) RecordUseAll(ctx context.Context, keywords []string) ([]models.Keyword, error) {
	recorded := make([]models.Keyword, 0, len(keywords))
	for _, kw := range keywords {
		kw = canonical(kw)
		if kw == "" {
			continue
		}
		k, err := r.store.RecordKeywordUse(ctx, kw)
		if err != nil {
			return recorded, fmt.Errorf("record keyword %q: %w", kw, err)
		}
		recorded = append(recorded, *k)
	}
	return recorded, nil
}

// SetFavorite flips the favorite flag on a keyword.
func (r *Registry) SetFavorite(ctx context.Context, id string, favorite bool) (*models.Keyword, error) {
	return r.store.SetKeywordFavorite(ctx, id, favorite)
}

// UpdateMetadata sets category and description on a keyword.
func (r *Registry) UpdateMetadata(ctx context.Context, id string, category, description *string) (*models.Keyword, error) {
	return r.store.UpdateKeywordMetadata(ctx, id, category, description)
}

// List returns keywords by use count, optionally favorites only.
func (r *Registry) List(ctx context.Context, favoritesOnly bool, limit int) ([]models.Keyword, error) {
	return r.store.ListKeywords(ctx, favoritesOnly, limit)
}

// Suggest returns autocomplete candidates for a prefix. An empty prefix
// falls back to the most used keywords.
func (r *Registry) Suggest(ctx context.Context, prefix string, limit int) ([]models.Keyword, error) {
	prefix = canonical(prefix)
	if prefix == "" {
		return r.store.ListKeywords(ctx, false, limit)
	}
	return r.store.SuggestKeywords(ctx, prefix, limit)
}

// Delete removes a keyword by explicit admin action.
func (r *Registry) Delete(ctx context.Context, id string) error {
	deleted, err := r.store.DeleteKeyword(ctx, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		r.logger.Debug("delete keyword: already gone", "id", id)
	}
	return nil
}

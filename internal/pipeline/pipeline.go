// Package pipeline turns raw search results into persisted articles. It
// normalizes content, filters low-quality results, dedupes by URL and
// persists the survivors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/normalize"
	"github.com/newsflow/newsflow-go/internal/relevance"
	"github.com/newsflow/newsflow-go/internal/search"
)

// Store is the persistence surface the ingestor needs.
// *db.Client implements it.
type Store interface {
	ArticleExistsByURL(ctx context.Context, url string) (bool, error)
	CreateArticle(ctx context.Context, in models.ArticleInput) (*models.Article, error)
}

// Context carries the per-job settings under which results are ingested.
type Context struct {
	CrawlJobID string
	Keywords   []string

	// RelevanceThreshold filters scored articles below it before they
	// reach the dedup gate. Nil disables the filter.
	RelevanceThreshold *float64

	// MinWords filters articles with too little content. Zero disables
	// the filter.
	MinWords int
}

// Outcome reports what happened to one search result. Exactly one of
// Created, Duplicate and Filtered is set on success; Err is set when the
// result could not be processed. A single result's failure never aborts
// the batch, callers aggregate outcomes.
type Outcome struct {
	Created   bool
	Duplicate bool
	Filtered  bool
	Article   *models.Article
	Err       error
}

// Ingestor runs the normalize, filter, dedupe, persist sequence.
type Ingestor struct {
	store  Store
	scorer *relevance.Scorer
	logger *slog.Logger
}

// NewIngestor creates an ingestor. A nil scorer gets default weights.
func NewIngestor(store Store, scorer *relevance.Scorer, logger *slog.Logger) *Ingestor {
	if scorer == nil {
		scorer = relevance.NewScorer(relevance.DefaultWeights())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:  store,
		scorer: scorer,
		logger: logger,
	}
}

// Ingest processes one search result under the given job context.
func (i *Ingestor) Ingest(ctx context.Context, result search.Result, jobCtx Context) Outcome {
	if result.URL == "" {
		return Outcome{Err: errors.New("ingest: result without URL")}
	}

	content := normalize.Clean(result.Content)
	title := normalize.Clean(result.Title)
	if title == "" {
		title = normalize.ExtractTitle(result.Content)
	}

	if jobCtx.MinWords > 0 && normalize.WordCount(content) < jobCtx.MinWords {
		i.logger.Debug("article filtered, too short", "url", result.URL)
		return Outcome{Filtered: true}
	}

	score := i.scorer.Score(relevance.Input{Title: title, Content: content}, jobCtx.Keywords)
	if jobCtx.RelevanceThreshold != nil && score != nil && *score < *jobCtx.RelevanceThreshold {
		i.logger.Debug("article filtered, below relevance threshold",
			"url", result.URL, "score", *score)
		return Outcome{Filtered: true}
	}

	exists, err := i.store.ArticleExistsByURL(ctx, result.URL)
	if err != nil {
		return Outcome{Err: fmt.Errorf("dedup check %s: %w", result.URL, err)}
	}
	if exists {
		return Outcome{Duplicate: true}
	}

	article, err := i.store.CreateArticle(ctx, models.ArticleInput{
		URL:            result.URL,
		Title:          title,
		Content:        content,
		Author:         optional(result.Metadata.Author),
		PublishedAt:    result.Metadata.PublishedTime,
		ImageURL:       optional(result.Metadata.OGImage),
		RelevanceScore: score,
		KeywordTags:    keywordTags(jobCtx.Keywords),
		Status:         models.ArticleStatusRaw,
		CrawlJobID:     jobCtx.CrawlJobID,
	})
	if err != nil {
		// A concurrent insert can win the unique index between the
		// existence check and ours. That is a duplicate, not a failure.
		if errors.Is(err, db.ErrAlreadyExists) {
			return Outcome{Duplicate: true}
		}
		return Outcome{Err: fmt.Errorf("persist %s: %w", result.URL, err)}
	}

	i.logger.Info("article ingested", "url", result.URL, "title", title)
	return Outcome{Created: true, Article: article}
}

// keywordTags preserves the job's keyword order, dropping blanks.
func keywordTags(keywords []string) []string {
	tags := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw != "" {
			tags = append(tags, kw)
		}
	}
	return tags
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Store = (*db.Client)(nil)

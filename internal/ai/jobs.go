package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
)

// JobStore is the persistence surface the analysis worker needs.
type JobStore interface {
	ClaimNextAnalysisJob(ctx context.Context) (*models.AIAnalysisJob, error)
	CompleteAnalysisJob(ctx context.Context, id, result string, tokenUsage *int) error
	RetryAnalysisJob(ctx context.Context, id, errorMessage string) error
	FailAnalysisJob(ctx context.Context, id, errorMessage string) error
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	UpdateArticleAnalysis(ctx context.Context, id string, relevanceScore *float64, keywordTags, tags []string, status models.ArticleStatus) (*models.Article, error)
	UpdateArticleStatus(ctx context.Context, id string, status models.ArticleStatus) error
}

var _ JobStore = (*db.Client)(nil)

// Runner is the analysis surface the worker dispatches jobs onto.
// *Analyzer implements it.
type Runner interface {
	Summarize(ctx context.Context, content string, opts SummarizeOptions) (string, error)
	ExtractKeywords(ctx context.Context, content string, opts KeywordOptions) ([]string, error)
	AnalyzeSentiment(ctx context.Context, content string) (string, error)
	ClassifyTopic(ctx context.Context, content string) (string, error)
}

// Worker drains the ai_analysis_job queue. One worker owns the queue.
type Worker struct {
	store    JobStore
	analyzer Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a queue worker polling at the given interval.
func NewWorker(store JobStore, analyzer Runner, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:    store,
		analyzer: analyzer,
		interval: interval,
		logger:   logger,
	}
}

// Run processes jobs until the context is cancelled or a fatal provider
// error makes further calls pointless.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			if errors.Is(err, ErrFatalAPI) {
				return fmt.Errorf("analysis worker stopped: %w", err)
			}
			w.logger.Error("analysis job failed", "error", err)
		}

		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// ProcessNext claims and runs one pending job. It returns false when the
// queue is empty. A failed job goes back to PENDING while retries remain,
// FAILED once retry_count has reached max_retries. MaxRetries = 0 means the
// first failure is final.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextAnalysisJob(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	id := models.MustRecordIDString(job.ID)
	w.logger.Info("processing analysis job", "id", id, "type", job.Type, "retry", job.RetryCount)

	result, runErr := w.run(ctx, job)
	if runErr != nil {
		return true, w.dispose(ctx, job, id, runErr)
	}

	if err := w.store.CompleteAnalysisJob(ctx, id, result, nil); err != nil {
		return true, fmt.Errorf("complete analysis job %s: %w", id, err)
	}

	w.applyResult(ctx, job, result)
	return true, nil
}

// applyResult writes a completed analysis back onto the source article and
// marks it PROCESSED. A writeback failure does not fail the job, the result
// itself is already stored.
func (w *Worker) applyResult(ctx context.Context, job *models.AIAnalysisJob, result string) {
	if job.ArticleID == nil {
		return
	}

	article, err := w.store.GetArticle(ctx, *job.ArticleID)
	if err != nil {
		w.logger.Warn("article lookup for writeback failed", "article", *job.ArticleID, "error", err)
		return
	}

	tags := article.Tags
	if job.Type == models.AnalysisKeywordExtraction {
		var extracted []string
		if err := json.Unmarshal([]byte(result), &extracted); err == nil {
			tags = mergeTags(article.Tags, extracted)
		}
	}

	_, err = w.store.UpdateArticleAnalysis(ctx, *job.ArticleID,
		article.RelevanceScore, article.KeywordTags, tags, models.ArticleStatusProcessed)
	if err != nil {
		w.logger.Warn("article writeback failed", "article", *job.ArticleID, "error", err)
	}
}

func mergeTags(existing, extracted []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extracted))
	merged := make([]string, 0, len(existing)+len(extracted))
	for _, t := range append(existing, extracted...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

func (w *Worker) run(ctx context.Context, job *models.AIAnalysisJob) (string, error) {
	switch job.Type {
	case models.AnalysisSummaryGeneration:
		return w.analyzer.Summarize(ctx, job.InputContent, SummarizeOptions{})

	case models.AnalysisKeywordExtraction:
		keywords, err := w.analyzer.ExtractKeywords(ctx, job.InputContent, KeywordOptions{})
		if err != nil {
			return "", err
		}
		encoded, err := json.Marshal(keywords)
		if err != nil {
			return "", fmt.Errorf("encode keywords: %w", err)
		}
		return string(encoded), nil

	case models.AnalysisSentiment:
		return w.analyzer.AnalyzeSentiment(ctx, job.InputContent)

	case models.AnalysisTopicClassification:
		return w.analyzer.ClassifyTopic(ctx, job.InputContent)

	default:
		return "", fmt.Errorf("unknown analysis type: %s", job.Type)
	}
}

// dispose routes a failed job: retry while the budget allows, otherwise mark
// it FAILED. Fatal provider errors and oversize input skip the retry budget,
// retrying them would fail the same way.
func (w *Worker) dispose(ctx context.Context, job *models.AIAnalysisJob, id string, runErr error) error {
	retryable := !errors.Is(runErr, ErrFatalAPI) && !errors.Is(runErr, ErrContentTooLong)
	if retryable && job.RetryCount < job.MaxRetries {
		if err := w.store.RetryAnalysisJob(ctx, id, runErr.Error()); err != nil {
			return fmt.Errorf("requeue analysis job %s: %w", id, err)
		}
		w.logger.Warn("analysis job requeued", "id", id, "retry", job.RetryCount+1, "error", runErr)
		return nil
	}

	if err := w.store.FailAnalysisJob(ctx, id, runErr.Error()); err != nil {
		return fmt.Errorf("fail analysis job %s: %w", id, err)
	}
	if job.ArticleID != nil {
		if err := w.store.UpdateArticleStatus(ctx, *job.ArticleID, models.ArticleStatusFailed); err != nil {
			w.logger.Warn("article status update failed", "article", *job.ArticleID, "error", err)
		}
	}
	w.logger.Error("analysis job failed permanently", "id", id, "error", runErr)
	if errors.Is(runErr, ErrFatalAPI) {
		return runErr
	}
	return nil
}

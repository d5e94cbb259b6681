// Package scraper coordinates scraping runs: search, keyword bookkeeping,
// batch ingestion, crawl job lifecycle and run history.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/metrics"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/normalize"
	"github.com/newsflow/newsflow-go/internal/pipeline"
	"github.com/newsflow/newsflow-go/internal/relevance"
	"github.com/newsflow/newsflow-go/internal/search"
	"github.com/newsflow/newsflow-go/internal/tracker"
)

// Store is the persistence surface the orchestrator needs.
// *db.Client implements it.
type Store interface {
	CreateCrawlJob(ctx context.Context, targetID *string) (*models.CrawlJob, error)
	GetCrawlJob(ctx context.Context, id string) (*models.CrawlJob, error)
	UpdateCrawlJobStatus(ctx context.Context, id string, status models.CrawlStatus, errorMessage *string) (*models.CrawlJob, error)
	SetCrawlJobTotal(ctx context.Context, id string, total int) error
	IncrementCrawlJobProgress(ctx context.Context, id string, n int) error
	UpdateCrawlTargetStats(ctx context.Context, id string, itemsCollected int, successRate float64) error
	ListArticles(ctx context.Context, filter db.ArticleFilter) ([]models.Article, error)
	UpdateArticleContent(ctx context.Context, id, title, content string) error
	UpdateArticleAnalysis(ctx context.Context, id string, relevanceScore *float64, keywordTags, tags []string, status models.ArticleStatus) (*models.Article, error)
	CountArticlesByStatus(ctx context.Context) ([]db.StatusCount, error)
}

// Ingestor processes one search result. *pipeline.Ingestor implements it.
type Ingestor interface {
	Ingest(ctx context.Context, result search.Result, jobCtx pipeline.Context) pipeline.Outcome
}

// KeywordRecorder registers keyword usage. *keywords.Registry implements it.
type KeywordRecorder interface {
	RecordUseAll(ctx context.Context, keywords []string) ([]models.Keyword, error)
}

// RunTracker records run history. *tracker.Tracker implements it.
type RunTracker interface {
	RecordSearch(ctx context.Context, rec tracker.SearchRecord)
}

// Backupper creates a snapshot after a successful run and returns its ID.
type Backupper interface {
	CreateBackup(ctx context.Context) (string, error)
}

// Options tunes one scraping run.
type Options struct {
	MaxArticles        int
	RelevanceThreshold *float64
	BatchSize          int
	Concurrency        int
	EnableAutoBackup   bool
}

// JobConfig describes a scraping run. An empty CrawlJobID makes the
// orchestrator create a fresh job.
type JobConfig struct {
	CrawlJobID string
	TargetID   *string
	Keywords   []string
	Options    Options
}

// Statistics aggregates per-item outcomes of a run.
type Statistics struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
	Filtered   int `json:"filtered"`
}

// ErrorEntry ties a per-item failure to its source URL.
type ErrorEntry struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// JobResult is the outcome of one scraping run.
type JobResult struct {
	JobID       string             `json:"job_id"`
	Status      models.CrawlStatus `json:"status"`
	Statistics  Statistics         `json:"statistics"`
	Errors      []ErrorEntry       `json:"errors,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	BackupID    *string            `json:"backup_id,omitempty"`
}

// Orchestrator runs scraping jobs end to end.
type Orchestrator struct {
	store     Store
	search    search.Client
	ingestor  Ingestor
	registry  KeywordRecorder
	tracker   RunTracker
	backup    Backupper
	collector *metrics.Collector
	logger    *slog.Logger
}

// New creates an orchestrator. The backup service and metrics collector
// are optional.
func New(
	store Store,
	searchClient search.Client,
	ingestor Ingestor,
	registry KeywordRecorder,
	runTracker RunTracker,
	backup Backupper,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		search:    searchClient,
		ingestor:  ingestor,
		registry:  registry,
		tracker:   runTracker,
		backup:    backup,
		collector: collector,
		logger:    logger,
	}
}

// ExecuteJob runs one scraping job: search, ingest in batches, update the
// crawl job and record history. Per-item failures are aggregated and leave
// the job COMPLETED; a collaborator failure marks it FAILED.
func (o *Orchestrator) ExecuteJob(ctx context.Context, cfg JobConfig) (*JobResult, error) {
	keywords := trimKeywords(cfg.Keywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: at least one keyword required", ErrValidation)
	}

	opts := cfg.Options
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = 50
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	startedAt := time.Now()
	query := strings.Join(keywords, " ")

	var keywordID *string
	if recorded, err := o.registry.RecordUseAll(ctx, keywords); err != nil {
		o.logger.Warn("keyword recording failed", "error", err)
	} else if len(recorded) > 0 {
		id := models.MustRecordIDString(recorded[0].ID)
		keywordID = &id
	}

	jobID := cfg.CrawlJobID
	if jobID == "" {
		job, err := o.store.CreateCrawlJob(ctx, cfg.TargetID)
		if err != nil {
			return nil, fmt.Errorf("create crawl job: %w", err)
		}
		jobID = models.MustRecordIDString(job.ID)
	}

	if _, err := o.store.UpdateCrawlJobStatus(ctx, jobID, models.CrawlStatusInProgress, nil); err != nil {
		return nil, fmt.Errorf("start crawl job %s: %w", jobID, err)
	}

	result := &JobResult{JobID: jobID, StartedAt: startedAt}

	searchStart := time.Now()
	results, err := o.search.Search(ctx, query, search.Options{
		Limit:         opts.MaxArticles,
		ScrapeContent: true,
	})
	o.recordTiming(metrics.OpSearch, time.Since(searchStart))
	if err != nil {
		return o.failRun(ctx, result, query, keywordID, opts, fmt.Errorf("%w: %v", ErrCollaborator, err))
	}

	if err := o.store.SetCrawlJobTotal(ctx, jobID, len(results)); err != nil {
		o.logger.Warn("set job total failed", "job", jobID, "error", err)
	}

	stats, entries := o.ingestAll(ctx, jobID, keywords, opts, results)
	result.Statistics = stats
	result.Errors = entries

	if _, err := o.store.UpdateCrawlJobStatus(ctx, jobID, models.CrawlStatusCompleted, nil); err != nil {
		o.logger.Warn("complete crawl job failed", "job", jobID, "error", err)
	}
	result.Status = models.CrawlStatusCompleted
	result.CompletedAt = time.Now()

	if opts.EnableAutoBackup && o.backup != nil {
		backupStart := time.Now()
		backupID, err := o.backup.CreateBackup(ctx)
		o.recordTiming(metrics.OpBackup, time.Since(backupStart))
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("auto-backup failed: %v", err))
		} else {
			result.BackupID = &backupID
		}
	}

	if cfg.TargetID != nil {
		// success_rate is a percentage, 0-100.
		successRate := 0.0
		if stats.Processed > 0 {
			successRate = float64(stats.Succeeded) / float64(stats.Processed) * 100
		}
		if err := o.store.UpdateCrawlTargetStats(ctx, *cfg.TargetID, stats.Succeeded, successRate); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("target stats update failed: %v", err))
		}
	}

	// Result count is what the search returned, not what survived ingestion.
	o.tracker.RecordSearch(ctx, tracker.SearchRecord{
		Query:     query,
		KeywordID: keywordID,
		Results:   stats.Total,
		Duration:  time.Since(startedAt),
		Status:    models.SearchStatusCompleted,
		Filters:   runFilters(opts),
	})

	o.logger.Info("scraping job finished",
		"job", jobID,
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"duplicates", stats.Duplicates,
		"filtered", stats.Filtered,
		"failed", stats.Failed)

	return result, nil
}

// ingestAll feeds results to the pipeline, chunked by batch size, with a
// bounded worker pool per batch.
func (o *Orchestrator) ingestAll(
	ctx context.Context,
	jobID string,
	keywords []string,
	opts Options,
	results []search.Result,
) (Statistics, []ErrorEntry) {
	jobCtx := pipeline.Context{
		CrawlJobID:         jobID,
		Keywords:           keywords,
		RelevanceThreshold: opts.RelevanceThreshold,
	}

	var (
		succeeded  atomic.Int32
		duplicates atomic.Int32
		filtered   atomic.Int32
		failed     atomic.Int32
		errorsMu   sync.Mutex
		entries    []ErrorEntry
	)

	for start := 0; start < len(results); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		workChan := make(chan search.Result, len(batch))
		var wg sync.WaitGroup

		for i := 0; i < opts.Concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range workChan {
					if ctx.Err() != nil {
						return
					}

					start := time.Now()
					out := o.ingestor.Ingest(ctx, item, jobCtx)
					o.recordTiming(metrics.OpIngest, time.Since(start))

					switch {
					case out.Err != nil:
						failed.Add(1)
						errorsMu.Lock()
						entries = append(entries, ErrorEntry{URL: item.URL, Message: out.Err.Error()})
						errorsMu.Unlock()
					case out.Created:
						succeeded.Add(1)
					case out.Duplicate:
						duplicates.Add(1)
					case out.Filtered:
						filtered.Add(1)
					}
				}
			}()
		}

		for _, r := range batch {
			workChan <- r
		}
		close(workChan)
		wg.Wait()

		if err := o.store.IncrementCrawlJobProgress(ctx, jobID, len(batch)); err != nil {
			o.logger.Warn("progress update failed", "job", jobID, "error", err)
		}
	}

	stats := Statistics{
		Total:      len(results),
		Succeeded:  int(succeeded.Load()),
		Duplicates: int(duplicates.Load()),
		Filtered:   int(filtered.Load()),
		Failed:     int(failed.Load()),
	}
	stats.Processed = stats.Succeeded + stats.Duplicates + stats.Filtered + stats.Failed
	return stats, entries
}

// failRun marks the job FAILED, records the failed search and returns the
// run error.
func (o *Orchestrator) failRun(
	ctx context.Context,
	result *JobResult,
	query string,
	keywordID *string,
	opts Options,
	runErr error,
) (*JobResult, error) {
	msg := runErr.Error()
	if _, err := o.store.UpdateCrawlJobStatus(ctx, result.JobID, models.CrawlStatusFailed, &msg); err != nil {
		o.logger.Warn("fail crawl job failed", "job", result.JobID, "error", err)
	}

	result.Status = models.CrawlStatusFailed
	result.CompletedAt = time.Now()
	result.Errors = append(result.Errors, ErrorEntry{Message: msg})

	o.tracker.RecordSearch(ctx, tracker.SearchRecord{
		Query:     query,
		KeywordID: keywordID,
		Duration:  time.Since(result.StartedAt),
		Status:    models.SearchStatusFailed,
		Filters:   runFilters(opts),
		Err:       runErr,
	})

	return result, runErr
}

// CancelJob cancels a pending or running job. Terminal jobs are left alone,
// the status machine rejects the transition.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID string) (*models.CrawlJob, error) {
	return o.store.UpdateCrawlJobStatus(ctx, jobID, models.CrawlStatusCancelled, nil)
}

// GetJobStatus returns the current state of a crawl job.
func (o *Orchestrator) GetJobStatus(ctx context.Context, jobID string) (*models.CrawlJob, error) {
	return o.store.GetCrawlJob(ctx, jobID)
}

// ReprocessReport summarizes one reprocessing pass over failed articles.
type ReprocessReport struct {
	Reprocessed int `json:"reprocessed"`
	Improved    int `json:"improved"`
	StillFailed int `json:"still_failed"`
}

// Minimum relevance a reprocessed article must reach to count as improved.
const minImprovedScore = 10

// ReprocessFailedArticles re-runs normalization and scoring over FAILED
// articles, scoped to one crawl job when jobID is non-empty. Articles whose
// fresh score clears the improvement floor go back to RAW for the analysis
// stage to pick up; the rest stay FAILED.
func (o *Orchestrator) ReprocessFailedArticles(ctx context.Context, jobID string) (*ReprocessReport, error) {
	status := models.ArticleStatusFailed
	filter := db.ArticleFilter{Status: &status}
	if jobID != "" {
		filter.CrawlJobID = &jobID
	}
	articles, err := o.store.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list failed articles: %w", err)
	}

	scorer := relevance.NewScorer(relevance.DefaultWeights())
	report := &ReprocessReport{}
	for _, a := range articles {
		id := models.MustRecordIDString(a.ID)
		title := normalize.Clean(a.Title)
		content := normalize.Clean(a.Content)
		report.Reprocessed++

		if title != a.Title || content != a.Content {
			if err := o.store.UpdateArticleContent(ctx, id, title, content); err != nil {
				o.logger.Warn("reprocess article failed", "article", id, "error", err)
				report.StillFailed++
				continue
			}
		}

		score := scorer.Score(relevance.Input{Title: title, Content: content}, a.KeywordTags)
		if score == nil || *score <= minImprovedScore {
			report.StillFailed++
			continue
		}

		if _, err := o.store.UpdateArticleAnalysis(ctx, id, score, a.KeywordTags, a.Tags, models.ArticleStatusRaw); err != nil {
			o.logger.Warn("requeue article failed", "article", id, "error", err)
			report.StillFailed++
			continue
		}
		report.Improved++
	}
	return report, nil
}

// NormalizeExistingData re-runs the normalizer over stored articles and
// rewrites the ones whose content changes. The normalizer is idempotent so
// a second pass is a no-op.
func (o *Orchestrator) NormalizeExistingData(ctx context.Context, limit int) (int, error) {
	articles, err := o.store.ListArticles(ctx, db.ArticleFilter{Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("list articles: %w", err)
	}

	updated := 0
	for _, a := range articles {
		cleanTitle := normalize.Clean(a.Title)
		cleanContent := normalize.Clean(a.Content)
		if cleanTitle == a.Title && cleanContent == a.Content {
			continue
		}
		id := models.MustRecordIDString(a.ID)
		if err := o.store.UpdateArticleContent(ctx, id, cleanTitle, cleanContent); err != nil {
			o.logger.Warn("normalize article failed", "article", id, "error", err)
			continue
		}
		updated++
	}
	return updated, nil
}

// SystemMetrics bundles store counts with runtime statistics.
type SystemMetrics struct {
	Articles []db.StatusCount `json:"articles"`
	Runtime  metrics.Snapshot `json:"runtime"`
}

// GetSystemMetrics returns article counts by status plus runtime stats.
func (o *Orchestrator) GetSystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	queryStart := time.Now()
	counts, err := o.store.CountArticlesByStatus(ctx)
	o.recordTiming(metrics.OpDBQuery, time.Since(queryStart))
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	m := &SystemMetrics{Articles: counts}
	if o.collector != nil {
		m.Runtime = o.collector.Snapshot()
	}
	return m, nil
}

func (o *Orchestrator) recordTiming(op string, d time.Duration) {
	if o.collector != nil {
		o.collector.RecordTiming(op, d)
	}
}

func runFilters(opts Options) *models.SearchFilters {
	f := &models.SearchFilters{MaxArticles: opts.MaxArticles}
	if opts.RelevanceThreshold != nil {
		f.RelevanceThreshold = *opts.RelevanceThreshold
	}
	return f
}

func trimKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

var _ Store = (*db.Client)(nil)

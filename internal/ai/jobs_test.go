package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type fakeJobStore struct {
	queue []*models.AIAnalysisJob

	completed map[string]string
	retried   map[string]int
	failed    map[string]string
	articles  map[string]*models.Article
}

func newFakeJobStore(jobs ...*models.AIAnalysisJob) *fakeJobStore {
	return &fakeJobStore{
		queue:     jobs,
		completed: map[string]string{},
		retried:   map[string]int{},
		failed:    map[string]string{},
		articles:  map[string]*models.Article{},
	}
}

func (f *fakeJobStore) ClaimNextAnalysisJob(ctx context.Context) (*models.AIAnalysisJob, error) {
	if len(f.queue) == 0 {
		return nil, fmt.Errorf("next analysis job: %w", db.ErrNotFound)
	}
	job := f.queue[0]
	f.queue = f.queue[1:]
	job.Status = models.AnalysisStatusInProgress
	return job, nil
}

func (f *fakeJobStore) CompleteAnalysisJob(ctx context.Context, id, result string, tokenUsage *int) error {
	f.completed[id] = result
	return nil
}

func (f *fakeJobStore) RetryAnalysisJob(ctx context.Context, id, errorMessage string) error {
	f.retried[id]++
	return nil
}

func (f *fakeJobStore) FailAnalysisJob(ctx context.Context, id, errorMessage string) error {
	f.failed[id] = errorMessage
	return nil
}

func (f *fakeJobStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	article, ok := f.articles[id]
	if !ok {
		return nil, fmt.Errorf("get article %s: %w", id, db.ErrNotFound)
	}
	return article, nil
}

func (f *fakeJobStore) UpdateArticleAnalysis(ctx context.Context, id string, relevanceScore *float64, keywordTags, tags []string, status models.ArticleStatus) (*models.Article, error) {
	article, ok := f.articles[id]
	if !ok {
		return nil, fmt.Errorf("update article %s: %w", id, db.ErrNotFound)
	}
	article.RelevanceScore = relevanceScore
	article.KeywordTags = keywordTags
	article.Tags = tags
	article.Status = status
	return article, nil
}

func (f *fakeJobStore) UpdateArticleStatus(ctx context.Context, id string, status models.ArticleStatus) error {
	article, ok := f.articles[id]
	if !ok {
		return fmt.Errorf("update article %s: %w", id, db.ErrNotFound)
	}
	article.Status = status
	return nil
}

type fakeRunner struct {
	summary  string
	keywords []string
	err      error
}

func (f *fakeRunner) Summarize(ctx context.Context, content string, opts SummarizeOptions) (string, error) {
	return f.summary, f.err
}

func (f *fakeRunner) ExtractKeywords(ctx context.Context, content string, opts KeywordOptions) ([]string, error) {
	return f.keywords, f.err
}

func (f *fakeRunner) AnalyzeSentiment(ctx context.Context, content string) (string, error) {
	return SentimentNeutral, f.err
}

func (f *fakeRunner) ClassifyTopic(ctx context.Context, content string) (string, error) {
	return "technology", f.err
}

func testJob(id string, typ models.AnalysisType, retryCount, maxRetries int) *models.AIAnalysisJob {
	return &models.AIAnalysisJob{
		ID:           surrealmodels.NewRecordID("ai_analysis_job", id),
		Type:         typ,
		Status:       models.AnalysisStatusPending,
		InputContent: "article text",
		RetryCount:   retryCount,
		MaxRetries:   maxRetries,
	}
}

func TestProcessNextCompletesJob(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisSummaryGeneration, 0, 3))
	worker := NewWorker(store, &fakeRunner{summary: "done"}, 0, nil)

	processed, err := worker.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}
	if store.completed["j1"] != "done" {
		t.Errorf("completed = %v", store.completed)
	}
}

func TestProcessNextEncodesKeywords(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisKeywordExtraction, 0, 3))
	worker := NewWorker(store, &fakeRunner{keywords: []string{"ai", "robotics"}}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if store.completed["j1"] != `["ai","robotics"]` {
		t.Errorf("result = %q", store.completed["j1"])
	}
}

func TestProcessNextWritesBackToArticle(t *testing.T) {
	job := testJob("j1", models.AnalysisKeywordExtraction, 0, 3)
	articleID := "article:a1"
	job.ArticleID = &articleID

	store := newFakeJobStore(job)
	store.articles[articleID] = &models.Article{
		Status: models.ArticleStatusRaw,
		Tags:   []string{"ai"},
	}
	worker := NewWorker(store, &fakeRunner{keywords: []string{"ai", "robotics"}}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}

	article := store.articles[articleID]
	if article.Status != models.ArticleStatusProcessed {
		t.Errorf("status = %s", article.Status)
	}
	if len(article.Tags) != 2 || article.Tags[1] != "robotics" {
		t.Errorf("tags = %v", article.Tags)
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	worker := NewWorker(newFakeJobStore(), &fakeRunner{}, 0, nil)

	processed, err := worker.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if processed {
		t.Error("expected no job processed on empty queue")
	}
}

func TestProcessNextRetriesWithinBudget(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisSentiment, 1, 3))
	worker := NewWorker(store, &fakeRunner{err: errors.New("connection reset")}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if store.retried["j1"] != 1 {
		t.Errorf("retried = %v", store.retried)
	}
	if len(store.failed) != 0 {
		t.Errorf("failed = %v", store.failed)
	}
}

func TestProcessNextFailsWhenRetriesExhausted(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisSentiment, 3, 3))
	worker := NewWorker(store, &fakeRunner{err: errors.New("connection reset")}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if len(store.retried) != 0 {
		t.Errorf("retried = %v", store.retried)
	}
	if _, ok := store.failed["j1"]; !ok {
		t.Errorf("failed = %v", store.failed)
	}
}

func TestProcessNextNoRetriesFailsImmediately(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisTopicClassification, 0, 0))
	worker := NewWorker(store, &fakeRunner{err: errors.New("connection reset")}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if _, ok := store.failed["j1"]; !ok {
		t.Errorf("expected immediate failure, got failed = %v", store.failed)
	}
}

func TestProcessNextFatalErrorSkipsRetries(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisSummaryGeneration, 0, 5))
	fatal := wrapFatalError(errors.New("invalid api key"))
	worker := NewWorker(store, &fakeRunner{err: fatal}, 0, nil)

	_, err := worker.ProcessNext(context.Background())
	if !errors.Is(err, ErrFatalAPI) {
		t.Errorf("expected fatal error surfaced, got %v", err)
	}
	if len(store.retried) != 0 {
		t.Errorf("retried = %v", store.retried)
	}
	if _, ok := store.failed["j1"]; !ok {
		t.Errorf("failed = %v", store.failed)
	}
}

func TestPermanentFailureMarksArticleFailed(t *testing.T) {
	job := testJob("j1", models.AnalysisSentiment, 0, 0)
	articleID := "a1"
	job.ArticleID = &articleID

	store := newFakeJobStore(job)
	store.articles["a1"] = &models.Article{Status: models.ArticleStatusRaw}
	worker := NewWorker(store, &fakeRunner{err: errors.New("connection reset")}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if _, ok := store.failed["j1"]; !ok {
		t.Fatalf("failed = %v", store.failed)
	}
	if store.articles["a1"].Status != models.ArticleStatusFailed {
		t.Errorf("article status = %s, want FAILED", store.articles["a1"].Status)
	}
}

func TestProcessNextOversizeContentSkipsRetries(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisSummaryGeneration, 0, 5))
	tooLong := fmt.Errorf("summarize: %w: 100001 chars exceeds limit of 100000", ErrContentTooLong)
	worker := NewWorker(store, &fakeRunner{err: tooLong}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if len(store.retried) != 0 {
		t.Errorf("retried = %v", store.retried)
	}
	if _, ok := store.failed["j1"]; !ok {
		t.Errorf("expected immediate failure, got failed = %v", store.failed)
	}
}

func TestProcessNextUnknownType(t *testing.T) {
	store := newFakeJobStore(testJob("j1", models.AnalysisType("BOGUS"), 0, 0))
	worker := NewWorker(store, &fakeRunner{}, 0, nil)

	if _, err := worker.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if _, ok := store.failed["j1"]; !ok {
		t.Errorf("expected unknown type to fail the job, failed = %v", store.failed)
	}
}

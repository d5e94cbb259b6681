package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/newsflow/newsflow-go/internal/backup"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/scraper"
)

type fakeScrape struct {
	result *scraper.JobResult
	err    error
	job    *models.CrawlJob

	reprocessedJob string
}

func (f *fakeScrape) ExecuteJob(ctx context.Context, cfg scraper.JobConfig) (*scraper.JobResult, error) {
	return f.result, f.err
}

func (f *fakeScrape) GetJobStatus(ctx context.Context, id string) (*models.CrawlJob, error) {
	if f.job == nil {
		return nil, db.ErrNotFound
	}
	return f.job, nil
}

func (f *fakeScrape) CancelJob(ctx context.Context, id string) (*models.CrawlJob, error) {
	return f.job, f.err
}

func (f *fakeScrape) ReprocessFailedArticles(ctx context.Context, jobID string) (*scraper.ReprocessReport, error) {
	f.reprocessedJob = jobID
	return &scraper.ReprocessReport{Reprocessed: 2, Improved: 1, StillFailed: 1}, nil
}

func (f *fakeScrape) NormalizeExistingData(ctx context.Context, limit int) (int, error) {
	return 1, nil
}

func (f *fakeScrape) GetSystemMetrics(ctx context.Context) (*scraper.SystemMetrics, error) {
	return &scraper.SystemMetrics{}, nil
}

type fakeKeywords struct {
	keywords map[string]*models.Keyword
}

func newFakeKeywords() *fakeKeywords {
	return &fakeKeywords{keywords: map[string]*models.Keyword{}}
}

func (f *fakeKeywords) RecordUse(ctx context.Context, keyword string) (*models.Keyword, error) {
	kw, ok := f.keywords[keyword]
	if !ok {
		kw = &models.Keyword{
			ID:      surrealmodels.NewRecordID("keyword", fmt.Sprintf("kw%d", len(f.keywords)+1)),
			Keyword: keyword,
		}
		f.keywords[keyword] = kw
	}
	kw.UseCount++
	return kw, nil
}

func (f *fakeKeywords) SetFavorite(ctx context.Context, id string, favorite bool) (*models.Keyword, error) {
	for _, kw := range f.keywords {
		if models.MustRecordIDString(kw.ID) == id {
			kw.IsFavorite = favorite
			return kw, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeKeywords) UpdateMetadata(ctx context.Context, id string, category, description *string) (*models.Keyword, error) {
	return nil, db.ErrNotFound
}

func (f *fakeKeywords) List(ctx context.Context, favoritesOnly bool, limit int) ([]models.Keyword, error) {
	var out []models.Keyword
	for _, kw := range f.keywords {
		if !favoritesOnly || kw.IsFavorite {
			out = append(out, *kw)
		}
	}
	return out, nil
}

func (f *fakeKeywords) Suggest(ctx context.Context, prefix string, limit int) ([]models.Keyword, error) {
	return nil, nil
}

func (f *fakeKeywords) Delete(ctx context.Context, id string) error {
	return nil
}

type fakeHistory struct {
	rows []models.SearchHistory
}

func (f *fakeHistory) History(ctx context.Context, limit, offset int) ([]models.SearchHistory, error) {
	return f.rows, nil
}

func (f *fakeHistory) GetSearch(ctx context.Context, id string) (*models.SearchHistory, error) {
	return nil, db.ErrNotFound
}

func (f *fakeHistory) DeleteSearch(ctx context.Context, id string) (int, error) {
	return 1, nil
}

func (f *fakeHistory) UsageSummary(ctx context.Context, since time.Time) (*db.UsageSummary, error) {
	return &db.UsageSummary{TotalCalls: 3, TotalCost: 0.12}, nil
}

type fakeArticles struct {
	articles []models.Article
}

func (f *fakeArticles) ListArticles(ctx context.Context, filter db.ArticleFilter) ([]models.Article, error) {
	if filter.Status == nil {
		return f.articles, nil
	}
	var out []models.Article
	for _, a := range f.articles {
		if a.Status == *filter.Status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArticles) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	for i := range f.articles {
		if models.MustRecordIDString(f.articles[i].ID) == id {
			return &f.articles[i], nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeArticles) DeleteArticle(ctx context.Context, id string) (int, error) {
	return 1, nil
}

func (f *fakeArticles) DeleteCrawlJob(ctx context.Context, id string) (int, error) {
	return 1, nil
}

func (f *fakeArticles) ListSummariesByArticle(ctx context.Context, articleID string) ([]models.Summary, error) {
	return nil, nil
}

func (f *fakeArticles) ListCrawlTargets(ctx context.Context, enabledOnly bool) ([]models.CrawlTarget, error) {
	return nil, nil
}

func (f *fakeArticles) CreateCrawlTarget(ctx context.Context, name, url, targetType string, category *string) (*models.CrawlTarget, error) {
	return &models.CrawlTarget{Name: name, URL: url}, nil
}

func (f *fakeArticles) SetCrawlTargetEnabled(ctx context.Context, id string, enabled bool) error {
	return nil
}

func (f *fakeArticles) DeleteCrawlTarget(ctx context.Context, id string) (int, error) {
	return 1, nil
}

func newTestServer(scrape ScrapeService) *Server {
	return New(scrape, newFakeKeywords(), &fakeHistory{}, &fakeArticles{}, nil, nil)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeScrape{})
	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteJob(t *testing.T) {
	scrape := &fakeScrape{result: &scraper.JobResult{
		JobID:      "job1",
		Status:     models.CrawlStatusCompleted,
		Statistics: scraper.Statistics{Total: 3, Succeeded: 2, Duplicates: 1, Processed: 3},
	}}
	s := newTestServer(scrape)

	rec := doRequest(t, s, http.MethodPost, "/api/scraping/execute",
		map[string]any{"keywords": []string{"go"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var result scraper.JobResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "job1", result.JobID)
	assert.Equal(t, 2, result.Statistics.Succeeded)
}

func TestExecuteJobValidationError(t *testing.T) {
	scrape := &fakeScrape{err: fmt.Errorf("%w: at least one keyword required", scraper.ErrValidation)}
	s := newTestServer(scrape)

	rec := doRequest(t, s, http.MethodPost, "/api/scraping/execute",
		map[string]any{"keywords": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteJobCollaboratorFailureReturnsResult(t *testing.T) {
	scrape := &fakeScrape{
		result: &scraper.JobResult{JobID: "job1", Status: models.CrawlStatusFailed},
		err:    fmt.Errorf("%w: upstream down", scraper.ErrCollaborator),
	}
	s := newTestServer(scrape)

	rec := doRequest(t, s, http.MethodPost, "/api/scraping/execute",
		map[string]any{"keywords": []string{"go"}})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var result scraper.JobResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.CrawlStatusFailed, result.Status)
}

func TestReprocessReportsOutcome(t *testing.T) {
	scrape := &fakeScrape{}
	s := newTestServer(scrape)

	rec := doRequest(t, s, http.MethodPost, "/api/scraping/reprocess",
		map[string]any{"job_id": "job1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var report scraper.ReprocessReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, scraper.ReprocessReport{Reprocessed: 2, Improved: 1, StillFailed: 1}, report)
	assert.Equal(t, "job1", scrape.reprocessedJob)
}

func TestDeleteJob(t *testing.T) {
	s := newTestServer(&fakeScrape{})
	rec := doRequest(t, s, http.MethodDelete, "/api/scraping/jobs/job1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJobStatusNotFound(t *testing.T) {
	s := newTestServer(&fakeScrape{})
	rec := doRequest(t, s, http.MethodGet, "/api/scraping/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKeywordRoundTrip(t *testing.T) {
	s := newTestServer(&fakeScrape{})

	rec := doRequest(t, s, http.MethodPost, "/api/keywords/",
		map[string]string{"keyword": "golang"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var kw models.Keyword
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kw))
	assert.Equal(t, "golang", kw.Keyword)
	assert.Equal(t, 1, kw.UseCount)

	rec = doRequest(t, s, http.MethodGet, "/api/keywords/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Keyword
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestUsageSinceValidation(t *testing.T) {
	s := newTestServer(&fakeScrape{})

	rec := doRequest(t, s, http.MethodGet, "/api/usage?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/usage?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary db.UsageSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalCalls)
}

func TestListArticlesByStatus(t *testing.T) {
	articles := &fakeArticles{articles: []models.Article{
		{ID: surrealmodels.NewRecordID("article", "a1"), URL: "https://example.com/a", Status: models.ArticleStatusRaw},
		{ID: surrealmodels.NewRecordID("article", "a2"), URL: "https://example.com/b", Status: models.ArticleStatusProcessed},
	}}
	s := New(&fakeScrape{}, newFakeKeywords(), &fakeHistory{}, articles, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/articles/?status=RAW", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "https://example.com/a", list[0].URL)
}

func TestBackupsNotConfigured(t *testing.T) {
	s := newTestServer(&fakeScrape{})
	rec := doRequest(t, s, http.MethodGet, "/api/backups/", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCreateTargetValidation(t *testing.T) {
	s := newTestServer(&fakeScrape{})
	rec := doRequest(t, s, http.MethodPost, "/api/targets/",
		map[string]string{"name": "only name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

var _ BackupService = (*backup.Service)(nil)

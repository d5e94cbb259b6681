// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func testArticleInput(url string) models.ArticleInput {
	score := 42.0
	return models.ArticleInput{
		URL:            url,
		Title:          "Test article",
		Content:        "Some normalized article content about testing.",
		RelevanceScore: &score,
		KeywordTags:    []string{"testing"},
		Status:         models.ArticleStatusRaw,
		CrawlJobID:     "job-test",
	}
}

// =============================================================================
// ARTICLE TESTS
// =============================================================================

func TestCreateArticle(t *testing.T) {
	ctx := context.Background()

	article, err := testDB.CreateArticle(ctx, testArticleInput("https://example.com/create"))
	if err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteArticle(ctx, models.MustRecordIDString(article.ID))
	}()

	if article.URL != "https://example.com/create" {
		t.Errorf("Expected URL to round-trip, got %q", article.URL)
	}
	if article.Status != models.ArticleStatusRaw {
		t.Errorf("Expected RAW status, got %q", article.Status)
	}
	if article.RelevanceScore == nil || *article.RelevanceScore != 42.0 {
		t.Errorf("Expected relevance score 42, got %v", article.RelevanceScore)
	}
}

func TestCreateArticleDuplicateURL(t *testing.T) {
	ctx := context.Background()

	first, err := testDB.CreateArticle(ctx, testArticleInput("https://example.com/dup"))
	if err != nil {
		t.Fatalf("first CreateArticle failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteArticle(ctx, models.MustRecordIDString(first.ID))
	}()

	_, err = testDB.CreateArticle(ctx, testArticleInput("https://example.com/dup"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists for duplicate URL, got %v", err)
	}
}

func TestCreateArticleConcurrentSameURL(t *testing.T) {
	ctx := context.Background()
	const workers = 8

	var (
		mu      sync.Mutex
		created []*models.Article
		dups    int
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := testDB.CreateArticle(ctx, testArticleInput("https://example.com/concurrent"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created = append(created, a)
			case errors.Is(err, ErrAlreadyExists):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Exactly one writer wins, the rest see the duplicate, none hard-fail.
	if len(created) != 1 {
		t.Fatalf("Expected exactly one created row, got %d", len(created))
	}
	if dups != workers-1 {
		t.Errorf("Expected %d duplicates, got %d", workers-1, dups)
	}
	_, _ = testDB.DeleteArticle(ctx, models.MustRecordIDString(created[0].ID))
}

func TestArticleExistsByURL(t *testing.T) {
	ctx := context.Background()

	exists, err := testDB.ArticleExistsByURL(ctx, "https://example.com/nope")
	if err != nil {
		t.Fatalf("ArticleExistsByURL failed: %v", err)
	}
	if exists {
		t.Error("Expected missing URL to not exist")
	}

	article, err := testDB.CreateArticle(ctx, testArticleInput("https://example.com/exists"))
	if err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteArticle(ctx, models.MustRecordIDString(article.ID))
	}()

	exists, err = testDB.ArticleExistsByURL(ctx, "https://example.com/exists")
	if err != nil {
		t.Fatalf("ArticleExistsByURL failed: %v", err)
	}
	if !exists {
		t.Error("Expected created URL to exist")
	}
}

func TestUpdateArticleAnalysis(t *testing.T) {
	ctx := context.Background()

	article, err := testDB.CreateArticle(ctx, models.ArticleInput{
		URL:        "https://example.com/analysis",
		Title:      "Analysis target",
		Content:    "content",
		Status:     models.ArticleStatusRaw,
		CrawlJobID: "job-test",
	})
	if err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	id := models.MustRecordIDString(article.ID)
	defer func() { _, _ = testDB.DeleteArticle(ctx, id) }()

	score := 77.5
	updated, err := testDB.UpdateArticleAnalysis(ctx, id, &score, []string{"ai"}, []string{"tech"}, models.ArticleStatusProcessed)
	if err != nil {
		t.Fatalf("UpdateArticleAnalysis failed: %v", err)
	}

	if updated.Status != models.ArticleStatusProcessed {
		t.Errorf("Expected PROCESSED, got %q", updated.Status)
	}
	if updated.RelevanceScore == nil || *updated.RelevanceScore != 77.5 {
		t.Errorf("Expected score 77.5, got %v", updated.RelevanceScore)
	}
	if len(updated.KeywordTags) != 1 || updated.KeywordTags[0] != "ai" {
		t.Errorf("Expected keyword tags [ai], got %v", updated.KeywordTags)
	}
}

func TestListArticlesByStatus(t *testing.T) {
	ctx := context.Background()

	article, err := testDB.CreateArticle(ctx, testArticleInput("https://example.com/list-status"))
	if err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteArticle(ctx, models.MustRecordIDString(article.ID))
	}()

	status := models.ArticleStatusRaw
	articles, err := testDB.ListArticles(ctx, ArticleFilter{Status: &status, Limit: 100})
	if err != nil {
		t.Fatalf("ListArticles failed: %v", err)
	}

	found := false
	for _, a := range articles {
		if a.URL == "https://example.com/list-status" {
			found = true
		}
		if a.Status != models.ArticleStatusRaw {
			t.Errorf("Filter leaked status %q", a.Status)
		}
	}
	if !found {
		t.Error("Expected created article in RAW listing")
	}
}

// =============================================================================
// CRAWL JOB TESTS
// =============================================================================

func TestCrawlJobLifecycle(t *testing.T) {
	ctx := context.Background()

	job, err := testDB.CreateCrawlJob(ctx, nil)
	if err != nil {
		t.Fatalf("CreateCrawlJob failed: %v", err)
	}
	id := models.MustRecordIDString(job.ID)

	if job.Status != models.CrawlStatusPending {
		t.Fatalf("Expected PENDING, got %q", job.Status)
	}

	started, err := testDB.UpdateCrawlJobStatus(ctx, id, models.CrawlStatusInProgress, nil)
	if err != nil {
		t.Fatalf("transition to IN_PROGRESS failed: %v", err)
	}
	if started.StartedAt == nil {
		t.Error("Expected started_at to be set")
	}

	if err := testDB.SetCrawlJobTotal(ctx, id, 10); err != nil {
		t.Fatalf("SetCrawlJobTotal failed: %v", err)
	}
	if err := testDB.IncrementCrawlJobProgress(ctx, id, 3); err != nil {
		t.Fatalf("IncrementCrawlJobProgress failed: %v", err)
	}

	done, err := testDB.UpdateCrawlJobStatus(ctx, id, models.CrawlStatusCompleted, nil)
	if err != nil {
		t.Fatalf("transition to COMPLETED failed: %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
	if done.ProcessedItems != 3 {
		t.Errorf("Expected 3 processed items, got %d", done.ProcessedItems)
	}

	// Terminal states stay terminal.
	_, err = testDB.UpdateCrawlJobStatus(ctx, id, models.CrawlStatusInProgress, nil)
	if err == nil {
		t.Error("Expected invalid transition out of COMPLETED to fail")
	}
}

func TestDeleteCrawlJobCascadesToArticles(t *testing.T) {
	ctx := context.Background()

	job, err := testDB.CreateCrawlJob(ctx, nil)
	if err != nil {
		t.Fatalf("CreateCrawlJob failed: %v", err)
	}
	jobID := models.MustRecordIDString(job.ID)

	input := testArticleInput("https://example.com/cascade-job")
	input.CrawlJobID = jobID
	if _, err := testDB.CreateArticle(ctx, input); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}

	deleted, err := testDB.DeleteCrawlJob(ctx, jobID)
	if err != nil {
		t.Fatalf("DeleteCrawlJob failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted job, got %d", deleted)
	}

	if _, err := testDB.GetCrawlJob(ctx, jobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected job to be gone, got %v", err)
	}
	exists, err := testDB.ArticleExistsByURL(ctx, "https://example.com/cascade-job")
	if err != nil {
		t.Fatalf("ArticleExistsByURL failed: %v", err)
	}
	if exists {
		t.Error("Expected dependent article to be deleted with the job")
	}
}

// =============================================================================
// KEYWORD TESTS
// =============================================================================

func TestRecordKeywordUse(t *testing.T) {
	ctx := context.Background()

	first, err := testDB.RecordKeywordUse(ctx, "quantum computing")
	if err != nil {
		t.Fatalf("RecordKeywordUse failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteKeyword(ctx, models.MustRecordIDString(first.ID))
	}()

	if first.UseCount != 1 {
		t.Errorf("Expected use count 1 on first use, got %d", first.UseCount)
	}

	second, err := testDB.RecordKeywordUse(ctx, "quantum computing")
	if err != nil {
		t.Fatalf("second RecordKeywordUse failed: %v", err)
	}
	if second.UseCount != 2 {
		t.Errorf("Expected use count 2 on second use, got %d", second.UseCount)
	}
	if models.MustRecordIDString(first.ID) != models.MustRecordIDString(second.ID) {
		t.Error("Expected the same keyword row to be reused")
	}
}

func TestRecordKeywordUseConcurrent(t *testing.T) {
	ctx := context.Background()
	const workers = 8

	// Seed the row first so every concurrent call is an increment.
	first, err := testDB.RecordKeywordUse(ctx, "concurrent keyword")
	if err != nil {
		t.Fatalf("RecordKeywordUse failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteKeyword(ctx, models.MustRecordIDString(first.ID))
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := testDB.RecordKeywordUse(ctx, "concurrent keyword"); err != nil {
				t.Errorf("concurrent RecordKeywordUse failed: %v", err)
			}
		}()
	}
	wg.Wait()

	kw, err := testDB.GetKeyword(ctx, "concurrent keyword")
	if err != nil {
		t.Fatalf("GetKeyword failed: %v", err)
	}
	// The count is monotonic: prior value plus one per call, never less.
	if kw.UseCount != workers+1 {
		t.Errorf("Expected use count %d, got %d", workers+1, kw.UseCount)
	}
}

func TestSuggestKeywords(t *testing.T) {
	ctx := context.Background()

	kw, err := testDB.RecordKeywordUse(ctx, "suggest-me-something")
	if err != nil {
		t.Fatalf("RecordKeywordUse failed: %v", err)
	}
	defer func() {
		_, _ = testDB.DeleteKeyword(ctx, models.MustRecordIDString(kw.ID))
	}()

	suggestions, err := testDB.SuggestKeywords(ctx, "suggest-me", 5)
	if err != nil {
		t.Fatalf("SuggestKeywords failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Keyword != "suggest-me-something" {
		t.Errorf("Expected prefix match, got %v", suggestions)
	}
}

// =============================================================================
// SEARCH HISTORY TESTS
// =============================================================================

func TestRecordSearchRoundTripsFilters(t *testing.T) {
	ctx := context.Background()

	category := "tech"
	created, err := testDB.RecordSearch(ctx, models.SearchHistory{
		SearchQuery: "ai, robotics",
		ResultCount: 7,
		SearchTime:  1.25,
		Status:      models.SearchStatusCompleted,
		Filters: &models.SearchFilters{
			Sources:            []string{"example.com"},
			Category:           &category,
			MaxArticles:        50,
			RelevanceThreshold: 30,
			BatchSize:          10,
		},
	})
	if err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}
	id := models.MustRecordIDString(created.ID)
	defer func() { _, _ = testDB.DeleteSearchHistory(ctx, id) }()

	got, err := testDB.GetSearchHistory(ctx, id)
	if err != nil {
		t.Fatalf("GetSearchHistory failed: %v", err)
	}
	if got.Filters == nil {
		t.Fatal("Expected filters to round-trip")
	}
	if got.Filters.MaxArticles != 50 || got.Filters.RelevanceThreshold != 30 {
		t.Errorf("Filters did not round-trip intact: %+v", got.Filters)
	}
	if got.Filters.Category == nil || *got.Filters.Category != "tech" {
		t.Errorf("Expected category tech, got %v", got.Filters.Category)
	}
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestCreateSummaryVersions(t *testing.T) {
	ctx := context.Background()

	v1, err := testDB.CreateSummary(ctx, "article-sum", models.SummaryShort, "first", nil, nil)
	if err != nil {
		t.Fatalf("CreateSummary failed: %v", err)
	}
	if v1.Version != 1 {
		t.Errorf("Expected version 1, got %d", v1.Version)
	}

	v2, err := testDB.CreateSummary(ctx, "article-sum", models.SummaryShort, "second", nil, nil)
	if err != nil {
		t.Fatalf("second CreateSummary failed: %v", err)
	}
	if v2.Version != 2 {
		t.Errorf("Expected version 2, got %d", v2.Version)
	}

	// Different type starts its own version sequence.
	bullets, err := testDB.CreateSummary(ctx, "article-sum", models.SummaryBulletPoints, "- a", nil, nil)
	if err != nil {
		t.Fatalf("CreateSummary bullet failed: %v", err)
	}
	if bullets.Version != 1 {
		t.Errorf("Expected version 1 for new type, got %d", bullets.Version)
	}

	if err := testDB.DeleteSummariesByArticle(ctx, "article-sum"); err != nil {
		t.Fatalf("DeleteSummariesByArticle failed: %v", err)
	}
	remaining, err := testDB.ListSummariesByArticle(ctx, "article-sum")
	if err != nil {
		t.Fatalf("ListSummariesByArticle failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected no summaries after delete, got %d", len(remaining))
	}
}

// =============================================================================
// CRAWL TARGET TESTS
// =============================================================================

func TestSeedCrawlTargetsIdempotent(t *testing.T) {
	ctx := context.Background()

	seeds := []SeedTarget{
		{Name: "Example News", URL: "https://news.example.com", Type: "news"},
		{Name: "Example Tech", URL: "https://tech.example.com", Type: "news"},
	}

	created, err := testDB.SeedCrawlTargets(ctx, seeds)
	if err != nil {
		t.Fatalf("SeedCrawlTargets failed: %v", err)
	}
	if created != 2 {
		t.Errorf("Expected 2 created on first seed, got %d", created)
	}

	created, err = testDB.SeedCrawlTargets(ctx, seeds)
	if err != nil {
		t.Fatalf("second SeedCrawlTargets failed: %v", err)
	}
	if created != 0 {
		t.Errorf("Expected 0 created on re-seed, got %d", created)
	}

	targets, err := testDB.ListCrawlTargets(ctx, true)
	if err != nil {
		t.Fatalf("ListCrawlTargets failed: %v", err)
	}
	for _, tgt := range targets {
		_, _ = testDB.DeleteCrawlTarget(ctx, models.MustRecordIDString(tgt.ID))
	}
}

func TestDeleteCrawlTargetCascadesToJobsAndArticles(t *testing.T) {
	ctx := context.Background()

	target, err := testDB.CreateCrawlTarget(ctx, "Cascade News", "https://cascade.example.com", "news", nil)
	if err != nil {
		t.Fatalf("CreateCrawlTarget failed: %v", err)
	}
	targetID := models.MustRecordIDString(target.ID)

	job, err := testDB.CreateCrawlJob(ctx, &targetID)
	if err != nil {
		t.Fatalf("CreateCrawlJob failed: %v", err)
	}
	jobID := models.MustRecordIDString(job.ID)

	input := testArticleInput("https://example.com/cascade-target")
	input.CrawlJobID = jobID
	if _, err := testDB.CreateArticle(ctx, input); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}

	deleted, err := testDB.DeleteCrawlTarget(ctx, targetID)
	if err != nil {
		t.Fatalf("DeleteCrawlTarget failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted target, got %d", deleted)
	}

	if _, err := testDB.GetCrawlJob(ctx, jobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected target's job to be gone, got %v", err)
	}
	exists, err := testDB.ArticleExistsByURL(ctx, "https://example.com/cascade-target")
	if err != nil {
		t.Fatalf("ArticleExistsByURL failed: %v", err)
	}
	if exists {
		t.Error("Expected target's articles to be deleted with it")
	}
}

// =============================================================================
// AI USAGE / ANALYSIS JOB TESTS
// =============================================================================

func TestUsageSummary(t *testing.T) {
	ctx := context.Background()

	logs := []models.AIUsageLog{
		{Operation: "summarize", Model: "gpt-4", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Cost: 0.006, Status: "success"},
		{Operation: "summarize", Model: "gpt-3.5-turbo", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Cost: 0.000125, Status: "success"},
		{Operation: "sentiment", Model: "gpt-4", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Cost: 0.0006, Status: "success"},
	}
	for _, l := range logs {
		if err := testDB.InsertAIUsage(ctx, l); err != nil {
			t.Fatalf("InsertAIUsage failed: %v", err)
		}
	}

	summary, err := testDB.QueryUsageSummary(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("QueryUsageSummary failed: %v", err)
	}

	if summary.TotalCalls < 3 {
		t.Errorf("Expected at least 3 calls, got %d", summary.TotalCalls)
	}
	if summary.TotalTokens < 315 {
		t.Errorf("Expected at least 315 tokens, got %d", summary.TotalTokens)
	}
	if len(summary.ByModel) < 2 {
		t.Errorf("Expected at least 2 model buckets, got %d", len(summary.ByModel))
	}
	if len(summary.ByOperation) < 2 {
		t.Errorf("Expected at least 2 operation buckets, got %d", len(summary.ByOperation))
	}
}

func TestAnalysisJobQueue(t *testing.T) {
	ctx := context.Background()

	low, err := testDB.CreateAnalysisJob(ctx, models.AIAnalysisJob{
		Type:         models.AnalysisSentiment,
		InputContent: "low priority",
		Model:        "gpt-3.5-turbo",
		Priority:     1,
		MaxRetries:   2,
	})
	if err != nil {
		t.Fatalf("CreateAnalysisJob failed: %v", err)
	}
	high, err := testDB.CreateAnalysisJob(ctx, models.AIAnalysisJob{
		Type:         models.AnalysisSummaryGeneration,
		InputContent: "high priority",
		Model:        "gpt-4",
		Priority:     5,
		MaxRetries:   2,
	})
	if err != nil {
		t.Fatalf("CreateAnalysisJob failed: %v", err)
	}

	claimed, err := testDB.ClaimNextAnalysisJob(ctx)
	if err != nil {
		t.Fatalf("ClaimNextAnalysisJob failed: %v", err)
	}
	if models.MustRecordIDString(claimed.ID) != models.MustRecordIDString(high.ID) {
		t.Error("Expected the higher-priority job to be claimed first")
	}
	if claimed.Status != models.AnalysisStatusInProgress {
		t.Errorf("Expected IN_PROGRESS after claim, got %q", claimed.Status)
	}

	if err := testDB.CompleteAnalysisJob(ctx, models.MustRecordIDString(claimed.ID), "done", nil); err != nil {
		t.Fatalf("CompleteAnalysisJob failed: %v", err)
	}

	lowClaimed, err := testDB.ClaimNextAnalysisJob(ctx)
	if err != nil {
		t.Fatalf("second ClaimNextAnalysisJob failed: %v", err)
	}
	lowID := models.MustRecordIDString(lowClaimed.ID)
	if lowID != models.MustRecordIDString(low.ID) {
		t.Error("Expected the remaining job to be claimed second")
	}

	if err := testDB.RetryAnalysisJob(ctx, lowID, "transient"); err != nil {
		t.Fatalf("RetryAnalysisJob failed: %v", err)
	}
	retried, err := testDB.GetAnalysisJob(ctx, lowID)
	if err != nil {
		t.Fatalf("GetAnalysisJob failed: %v", err)
	}
	if retried.Status != models.AnalysisStatusPending || retried.RetryCount != 1 {
		t.Errorf("Expected PENDING with retry 1, got %q retry %d", retried.Status, retried.RetryCount)
	}

	if err := testDB.FailAnalysisJob(ctx, lowID, "gave up"); err != nil {
		t.Fatalf("FailAnalysisJob failed: %v", err)
	}

	_, err = testDB.ClaimNextAnalysisJob(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected empty queue to return ErrNotFound, got %v", err)
	}
}

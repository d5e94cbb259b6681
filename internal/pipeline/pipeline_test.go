package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/search"
)

type fakeStore struct {
	articles map[string]*models.Article
	nextID   int

	existsErr error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{articles: map[string]*models.Article{}}
}

func (f *fakeStore) ArticleExistsByURL(ctx context.Context, url string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.articles[url]
	return ok, nil
}

func (f *fakeStore) CreateArticle(ctx context.Context, in models.ArticleInput) (*models.Article, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.articles[in.URL]; ok {
		return nil, fmt.Errorf("create article: %w", db.ErrAlreadyExists)
	}
	f.nextID++
	article := &models.Article{
		ID:             surrealmodels.NewRecordID("article", fmt.Sprintf("a%d", f.nextID)),
		URL:            in.URL,
		Title:          in.Title,
		Content:        in.Content,
		Author:         in.Author,
		RelevanceScore: in.RelevanceScore,
		KeywordTags:    in.KeywordTags,
		Status:         in.Status,
		CrawlJobID:     in.CrawlJobID,
	}
	f.articles[in.URL] = article
	return article, nil
}

func jobCtx() Context {
	return Context{CrawlJobID: "job1", Keywords: []string{"go"}}
}

func result(url, title, content string) search.Result {
	return search.Result{URL: url, Title: title, Content: content}
}

func TestIngestCreatesArticle(t *testing.T) {
	store := newFakeStore()
	ingestor := NewIngestor(store, nil, nil)

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "Go released", "The go team shipped a release about go."),
		jobCtx())

	if out.Err != nil {
		t.Fatalf("Ingest: %v", out.Err)
	}
	if !out.Created || out.Duplicate || out.Filtered {
		t.Errorf("outcome = %+v", out)
	}
	if out.Article == nil {
		t.Fatal("expected article")
	}
	if out.Article.Status != models.ArticleStatusRaw {
		t.Errorf("status = %s, want RAW", out.Article.Status)
	}
	if out.Article.RelevanceScore == nil || *out.Article.RelevanceScore <= 0 {
		t.Errorf("relevance score = %v", out.Article.RelevanceScore)
	}
	if len(out.Article.KeywordTags) != 1 || out.Article.KeywordTags[0] != "go" {
		t.Errorf("keyword tags = %v", out.Article.KeywordTags)
	}
}

func TestIngestNormalizesContent(t *testing.T) {
	store := newFakeStore()
	ingestor := NewIngestor(store, nil, nil)

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "", "<h1>Big News</h1><p>Something   happened &amp; more.</p>"),
		jobCtx())

	if out.Err != nil {
		t.Fatalf("Ingest: %v", out.Err)
	}
	if out.Article.Title != "Big News" {
		t.Errorf("title = %q", out.Article.Title)
	}
	if strings.Contains(out.Article.Content, "<") || strings.Contains(out.Article.Content, "&amp;") {
		t.Errorf("content not normalized: %q", out.Article.Content)
	}
}

func TestIngestDuplicate(t *testing.T) {
	store := newFakeStore()
	ingestor := NewIngestor(store, nil, nil)
	ctx := context.Background()

	first := ingestor.Ingest(ctx, result("https://example.com/a", "Title", "go content"), jobCtx())
	if !first.Created {
		t.Fatalf("first outcome = %+v", first)
	}

	second := ingestor.Ingest(ctx, result("https://example.com/a", "Title", "go content"), jobCtx())
	if !second.Duplicate || second.Created || second.Err != nil {
		t.Errorf("second outcome = %+v", second)
	}
	if len(store.articles) != 1 {
		t.Errorf("expected 1 stored article, got %d", len(store.articles))
	}
}

func TestIngestDuplicateRace(t *testing.T) {
	// Existence check passes but the insert loses the unique index race.
	store := newFakeStore()
	store.createErr = fmt.Errorf("create article: %w", db.ErrAlreadyExists)
	ingestor := NewIngestor(store, nil, nil)

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "Title", "go content"), jobCtx())
	if !out.Duplicate || out.Err != nil {
		t.Errorf("outcome = %+v", out)
	}
}

func TestIngestFiltersBelowThreshold(t *testing.T) {
	store := newFakeStore()
	ingestor := NewIngestor(store, nil, nil)

	threshold := 90.0
	ctx := jobCtx()
	ctx.RelevanceThreshold = &threshold

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "Unrelated", "nothing relevant here"), ctx)
	if !out.Filtered || out.Err != nil {
		t.Errorf("outcome = %+v", out)
	}
	if len(store.articles) != 0 {
		t.Error("filtered article must not be persisted")
	}
}

func TestIngestFiltersShortContent(t *testing.T) {
	store := newFakeStore()
	ingestor := NewIngestor(store, nil, nil)

	ctx := jobCtx()
	ctx.MinWords = 10

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "Title", "too short"), ctx)
	if !out.Filtered {
		t.Errorf("outcome = %+v", out)
	}
}

func TestIngestUnscoredPassesThreshold(t *testing.T) {
	// No keywords means unscored, and unscored is not below any threshold.
	store := newFakeStore()
	ingestor := NewIngestor(store, nil, nil)

	threshold := 50.0
	ctx := Context{CrawlJobID: "job1", RelevanceThreshold: &threshold}

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "Title", "some content"), ctx)
	if !out.Created {
		t.Errorf("outcome = %+v", out)
	}
	if out.Article.RelevanceScore != nil {
		t.Errorf("score = %v, want nil", out.Article.RelevanceScore)
	}
}

func TestIngestStoreFailureContained(t *testing.T) {
	store := newFakeStore()
	store.existsErr = errors.New("connection lost")
	ingestor := NewIngestor(store, nil, nil)

	out := ingestor.Ingest(context.Background(),
		result("https://example.com/a", "Title", "content"), jobCtx())
	if out.Err == nil {
		t.Fatal("expected error outcome")
	}
	if out.Created || out.Duplicate || out.Filtered {
		t.Errorf("outcome = %+v", out)
	}
}

func TestIngestMissingURL(t *testing.T) {
	ingestor := NewIngestor(newFakeStore(), nil, nil)
	out := ingestor.Ingest(context.Background(), result("", "Title", "content"), jobCtx())
	if out.Err == nil {
		t.Fatal("expected error for missing URL")
	}
}

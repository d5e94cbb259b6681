// Package server exposes the admin HTTP API over the core services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/newsflow/newsflow-go/internal/backup"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/scraper"
)

// ScrapeService drives scraping runs. *scraper.Orchestrator implements it.
type ScrapeService interface {
	ExecuteJob(ctx context.Context, cfg scraper.JobConfig) (*scraper.JobResult, error)
	GetJobStatus(ctx context.Context, id string) (*models.CrawlJob, error)
	CancelJob(ctx context.Context, id string) (*models.CrawlJob, error)
	ReprocessFailedArticles(ctx context.Context, jobID string) (*scraper.ReprocessReport, error)
	NormalizeExistingData(ctx context.Context, limit int) (int, error)
	GetSystemMetrics(ctx context.Context) (*scraper.SystemMetrics, error)
}

// KeywordService manages the keyword registry. *keywords.Registry implements it.
type KeywordService interface {
	RecordUse(ctx context.Context, keyword string) (*models.Keyword, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (*models.Keyword, error)
	UpdateMetadata(ctx context.Context, id string, category, description *string) (*models.Keyword, error)
	List(ctx context.Context, favoritesOnly bool, limit int) ([]models.Keyword, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]models.Keyword, error)
	Delete(ctx context.Context, id string) error
}

// HistoryService serves run history and AI spend. *tracker.Tracker implements it.
type HistoryService interface {
	History(ctx context.Context, limit, offset int) ([]models.SearchHistory, error)
	GetSearch(ctx context.Context, id string) (*models.SearchHistory, error)
	DeleteSearch(ctx context.Context, id string) (int, error)
	UsageSummary(ctx context.Context, since time.Time) (*db.UsageSummary, error)
}

// ArticleStore covers article, summary and crawl-target reads and admin
// mutations. *db.Client implements it.
type ArticleStore interface {
	ListArticles(ctx context.Context, filter db.ArticleFilter) ([]models.Article, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	DeleteArticle(ctx context.Context, id string) (int, error)
	DeleteCrawlJob(ctx context.Context, id string) (int, error)
	ListSummariesByArticle(ctx context.Context, articleID string) ([]models.Summary, error)
	ListCrawlTargets(ctx context.Context, enabledOnly bool) ([]models.CrawlTarget, error)
	CreateCrawlTarget(ctx context.Context, name, url, targetType string, category *string) (*models.CrawlTarget, error)
	SetCrawlTargetEnabled(ctx context.Context, id string, enabled bool) error
	DeleteCrawlTarget(ctx context.Context, id string) (int, error)
}

// BackupService manages store snapshots. *backup.Service implements it.
type BackupService interface {
	Create(ctx context.Context, typ backup.Type) (*backup.Snapshot, error)
	List(ctx context.Context) ([]backup.Snapshot, error)
	Verify(ctx context.Context, id string) error
	Cleanup(ctx context.Context, keep int) (int, error)
}

// Server is the admin HTTP API.
type Server struct {
	scrape   ScrapeService
	keywords KeywordService
	history  HistoryService
	store    ArticleStore
	backups  BackupService
	logger   *slog.Logger
	router   chi.Router
}

// New wires the services into a chi router. The backup service may be nil,
// its routes then return 501.
func New(
	scrape ScrapeService,
	keywords KeywordService,
	history HistoryService,
	store ArticleStore,
	backups BackupService,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		scrape:   scrape,
		keywords: keywords,
		history:  history,
		store:    store,
		backups:  backups,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/scraping", func(r chi.Router) {
			r.Post("/execute", s.handleExecuteJob)
			r.Get("/jobs/{id}", s.handleJobStatus)
			r.Post("/jobs/{id}/cancel", s.handleCancelJob)
			r.Delete("/jobs/{id}", s.handleDeleteJob)
			r.Post("/reprocess", s.handleReprocess)
			r.Post("/normalize", s.handleNormalize)
		})

		r.Route("/keywords", func(r chi.Router) {
			r.Get("/", s.handleListKeywords)
			r.Post("/", s.handleCreateKeyword)
			r.Get("/suggestions", s.handleSuggestKeywords)
			r.Put("/{id}", s.handleUpdateKeyword)
			r.Put("/{id}/favorite", s.handleFavoriteKeyword)
			r.Delete("/{id}", s.handleDeleteKeyword)
		})

		r.Route("/search-history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{id}", s.handleGetHistory)
			r.Delete("/{id}", s.handleDeleteHistory)
		})

		r.Get("/usage", s.handleUsage)

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", s.handleListArticles)
			r.Get("/{id}", s.handleGetArticle)
			r.Delete("/{id}", s.handleDeleteArticle)
			r.Get("/{id}/summaries", s.handleArticleSummaries)
		})

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", s.handleListTargets)
			r.Post("/", s.handleCreateTarget)
			r.Put("/{id}/enabled", s.handleEnableTarget)
			r.Delete("/{id}", s.handleDeleteTarget)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.handleListBackups)
			r.Post("/", s.handleCreateBackup)
			r.Post("/{id}/verify", s.handleVerifyBackup)
			r.Post("/cleanup", s.handleCleanupBackups)
		})

		r.Get("/system-health", s.handleSystemHealth)
	})

	return r
}

// ServeHTTP makes the server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves the API on addr until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // long for full scraping runs
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin API listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

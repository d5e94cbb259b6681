package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/newsflow/newsflow-go/internal/backup"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/scraper"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, backup.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scraper.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, scraper.ErrCollaborator):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// --- scraping ---

type executeJobRequest struct {
	Keywords           []string `json:"keywords"`
	TargetID           *string  `json:"target_id,omitempty"`
	MaxArticles        int      `json:"max_articles,omitempty"`
	RelevanceThreshold *float64 `json:"relevance_threshold,omitempty"`
	BatchSize          int      `json:"batch_size,omitempty"`
	EnableAutoBackup   bool     `json:"enable_auto_backup,omitempty"`
}

func (s *Server) handleExecuteJob(w http.ResponseWriter, r *http.Request) {
	var req executeJobRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.scrape.ExecuteJob(r.Context(), scraper.JobConfig{
		TargetID: req.TargetID,
		Keywords: req.Keywords,
		Options: scraper.Options{
			MaxArticles:        req.MaxArticles,
			RelevanceThreshold: req.RelevanceThreshold,
			BatchSize:          req.BatchSize,
			EnableAutoBackup:   req.EnableAutoBackup,
		},
	})
	if err != nil {
		// A failed run still carries a result worth returning.
		if result != nil {
			writeJSON(w, http.StatusBadGateway, result)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.scrape.GetJobStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.scrape.CancelJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteCrawlJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"job_id,omitempty"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	report, err := s.scrape.ReprocessFailedArticles(r.Context(), req.JobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int `json:"limit,omitempty"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	n, err := s.scrape.NormalizeExistingData(r.Context(), req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	m, err := s.scrape.GetSystemMetrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- keywords ---

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	favoritesOnly := r.URL.Query().Get("favorites") == "true"
	list, err := s.keywords.List(r.Context(), favoritesOnly, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword string `json:"keyword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	kw, err := s.keywords.RecordUse(r.Context(), req.Keyword)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, kw)
}

func (s *Server) handleSuggestKeywords(w http.ResponseWriter, r *http.Request) {
	list, err := s.keywords.Suggest(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category    *string `json:"category,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	kw, err := s.keywords.UpdateMetadata(r.Context(), chi.URLParam(r, "id"), req.Category, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kw)
}

func (s *Server) handleFavoriteKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Favorite bool `json:"favorite"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	kw, err := s.keywords.SetFavorite(r.Context(), chi.URLParam(r, "id"), req.Favorite)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kw)
}

func (s *Server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	if err := s.keywords.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- search history & usage ---

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.history.History(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.history.GetSearch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := s.history.DeleteSearch(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -queryInt(r, "days", 30))
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(w, "since must be RFC3339")
			return
		}
		since = parsed
	}

	summary, err := s.history.UsageSummary(r.Context(), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- articles ---

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	filter := db.ArticleFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.ArticleStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("job"); v != "" {
		filter.CrawlJobID = &v
	}

	list, err := s.store.ListArticles(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.store.GetArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteArticle(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArticleSummaries(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSummariesByArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- crawl targets ---

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	list, err := s.store.ListCrawlTargets(r.Context(), enabledOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name"`
		URL      string  `json:"url"`
		Type     string  `json:"type,omitempty"`
		Category *string `json:"category,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.URL == "" {
		badRequest(w, "name and url are required")
		return
	}

	target, err := s.store.CreateCrawlTarget(r.Context(), req.Name, req.URL, req.Type, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, target)
}

func (s *Server) handleEnableTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.SetCrawlTargetEnabled(r.Context(), chi.URLParam(r, "id"), req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteCrawlTarget(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- backups ---

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "backups not configured"})
		return
	}
	list, err := s.backups.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "backups not configured"})
		return
	}

	var req struct {
		Type backup.Type `json:"type,omitempty"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = backup.TypeFull
	}

	snap, err := s.backups.Create(r.Context(), req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleVerifyBackup(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "backups not configured"})
		return
	}

	if err := s.backups.Verify(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, backup.ErrChecksumMismatch) {
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleCleanupBackups(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "backups not configured"})
		return
	}

	var req struct {
		Keep int `json:"keep"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	removed, err := s.backups.Cleanup(r.Context(), req.Keep)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Package backup creates and manages JSON snapshots of the store, kept in
// a local directory or an S3 bucket.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
)

// Type distinguishes full snapshots from incremental ones.
type Type string

const (
	TypeFull        Type = "full"
	TypeIncremental Type = "incremental"
)

// ErrSnapshotNotFound is returned for unknown snapshot IDs.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrChecksumMismatch is returned when a snapshot's payload no longer
// matches its recorded checksum.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

// Snapshot describes one stored backup.
type Snapshot struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"` // sha256 over the data section
	Articles  int       `json:"articles"`
	Keywords  int       `json:"keywords"`
	Targets   int       `json:"targets"`
	Jobs      int       `json:"jobs"`
	History   int       `json:"history"`
}

// payload is the data section of a snapshot file.
type payload struct {
	Articles []models.Article       `json:"articles"`
	Keywords []models.Keyword       `json:"keywords"`
	Targets  []models.CrawlTarget   `json:"targets"`
	Jobs     []models.CrawlJob      `json:"jobs"`
	History  []models.SearchHistory `json:"history"`
}

// envelope is the on-disk snapshot format.
type envelope struct {
	Meta Snapshot        `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// Store is the persistence surface snapshots are built from.
// *db.Client implements it.
type Store interface {
	ListArticles(ctx context.Context, filter db.ArticleFilter) ([]models.Article, error)
	ListKeywords(ctx context.Context, favoritesOnly bool, limit int) ([]models.Keyword, error)
	ListCrawlTargets(ctx context.Context, enabledOnly bool) ([]models.CrawlTarget, error)
	ListCrawlJobs(ctx context.Context, limit int) ([]models.CrawlJob, error)
	ListSearchHistory(ctx context.Context, limit, offset int) ([]models.SearchHistory, error)
}

// Service creates, lists, verifies and prunes snapshots.
type Service struct {
	store  Store
	blobs  BlobStore
	logger *slog.Logger
}

// New creates a backup service over the given blob storage.
func New(store Store, blobs BlobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, blobs: blobs, logger: logger}
}

const listCap = 10000

// Create builds a snapshot and stores it. An incremental snapshot only
// includes articles created after the most recent existing snapshot and
// falls back to a full one when none exists.
func (s *Service) Create(ctx context.Context, typ Type) (*Snapshot, error) {
	articles, err := s.store.ListArticles(ctx, db.ArticleFilter{Limit: listCap})
	if err != nil {
		return nil, fmt.Errorf("snapshot articles: %w", err)
	}

	if typ == TypeIncremental {
		since, ok, err := s.latestSnapshotTime(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			typ = TypeFull
		} else {
			articles = articlesSince(articles, since)
		}
	}

	keywords, err := s.store.ListKeywords(ctx, false, listCap)
	if err != nil {
		return nil, fmt.Errorf("snapshot keywords: %w", err)
	}
	targets, err := s.store.ListCrawlTargets(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("snapshot targets: %w", err)
	}
	jobs, err := s.store.ListCrawlJobs(ctx, listCap)
	if err != nil {
		return nil, fmt.Errorf("snapshot jobs: %w", err)
	}
	history, err := s.store.ListSearchHistory(ctx, listCap, 0)
	if err != nil {
		return nil, fmt.Errorf("snapshot history: %w", err)
	}

	data, err := json.Marshal(payload{
		Articles: articles,
		Keywords: keywords,
		Targets:  targets,
		Jobs:     jobs,
		History:  history,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	sum := sha256.Sum256(data)
	meta := Snapshot{
		ID:        uuid.NewString(),
		Type:      typ,
		CreatedAt: time.Now().UTC(),
		Checksum:  hex.EncodeToString(sum[:]),
		Articles:  len(articles),
		Keywords:  len(keywords),
		Targets:   len(targets),
		Jobs:      len(jobs),
		History:   len(history),
	}

	encoded, err := json.Marshal(envelope{Meta: meta, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot envelope: %w", err)
	}
	if err := s.blobs.Put(ctx, snapshotKey(meta.ID), encoded); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	s.logger.Info("snapshot created",
		"id", meta.ID, "type", meta.Type, "articles", meta.Articles)
	return &meta, nil
}

// CreateBackup creates a full snapshot and returns its ID. It satisfies the
// orchestrator's auto-backup hook.
func (s *Service) CreateBackup(ctx context.Context) (string, error) {
	snap, err := s.Create(ctx, TypeFull)
	if err != nil {
		return "", err
	}
	return snap.ID, nil
}

// List returns snapshot metadata, newest first.
func (s *Service) List(ctx context.Context) ([]Snapshot, error) {
	keys, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(keys))
	for _, key := range keys {
		env, err := s.read(ctx, key)
		if err != nil {
			s.logger.Warn("unreadable snapshot skipped", "key", key, "error", err)
			continue
		}
		snapshots = append(snapshots, env.Meta)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Get returns one snapshot's metadata.
func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	env, err := s.read(ctx, snapshotKey(id))
	if err != nil {
		return nil, err
	}
	return &env.Meta, nil
}

// Verify recomputes the payload checksum of a snapshot.
func (s *Service) Verify(ctx context.Context, id string) error {
	env, err := s.read(ctx, snapshotKey(id))
	if err != nil {
		return err
	}

	sum := sha256.Sum256(env.Data)
	if hex.EncodeToString(sum[:]) != env.Meta.Checksum {
		return fmt.Errorf("snapshot %s: %w", id, ErrChecksumMismatch)
	}
	return nil
}

// Cleanup deletes the oldest snapshots beyond keep. Returns how many were
// removed.
func (s *Service) Cleanup(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	snapshots, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(snapshots) <= keep {
		return 0, nil
	}

	removed := 0
	for _, snap := range snapshots[keep:] {
		if err := s.blobs.Delete(ctx, snapshotKey(snap.ID)); err != nil {
			s.logger.Warn("snapshot delete failed", "id", snap.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Service) read(ctx context.Context, key string) (*envelope, error) {
	raw, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &env, nil
}

func (s *Service) latestSnapshotTime(ctx context.Context) (time.Time, bool, error) {
	snapshots, err := s.List(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(snapshots) == 0 {
		return time.Time{}, false, nil
	}
	return snapshots[0].CreatedAt, true, nil
}

func articlesSince(articles []models.Article, since time.Time) []models.Article {
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.CreatedAt.After(since) {
			out = append(out, a)
		}
	}
	return out
}

func snapshotKey(id string) string {
	return "newsflow-" + id + ".json"
}

var _ Store = (*db.Client)(nil)

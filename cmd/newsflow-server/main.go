// Package main provides the admin API server for newsflow.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsflow/newsflow-go/internal/backup"
	"github.com/newsflow/newsflow-go/internal/config"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/keywords"
	"github.com/newsflow/newsflow-go/internal/metrics"
	"github.com/newsflow/newsflow-go/internal/pipeline"
	"github.com/newsflow/newsflow-go/internal/scraper"
	"github.com/newsflow/newsflow-go/internal/search"
	"github.com/newsflow/newsflow-go/internal/server"
	"github.com/newsflow/newsflow-go/internal/tracker"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	port := os.Getenv("NEWSFLOW_PORT")
	if port == "" {
		port = "8080"
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("starting newsflow-server", "port", port)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		cancel()
		os.Exit(1)
	}
	if err := dbClient.InitSchema(ctx); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		cancel()
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("NEWSFLOW_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			slog.Error("failed to wipe database", "error", err)
			cancel()
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	searchClient, err := search.NewHTTPClient(search.HTTPClientConfig{
		BaseURL:   cfg.SearchAPIURL,
		APIKey:    cfg.SearchAPIKey,
		Timeout:   cfg.SearchTimeout,
		RateLimit: cfg.SearchRateLimit,
		RateBurst: cfg.SearchRateBurst,
		Logger:    logger,
	})
	if err != nil {
		slog.Error("failed to init search client", "error", err)
		os.Exit(1)
	}

	pricing, err := config.LoadPricingTable(cfg.PricingFile)
	if err != nil {
		slog.Error("failed to load pricing table", "error", err)
		os.Exit(1)
	}
	usageTracker := tracker.New(dbClient, pricing, logger)

	backupSvc, err := newBackupService(cfg, dbClient, logger)
	if err != nil {
		slog.Warn("backup storage unavailable, backup routes disabled", "error", err)
	}

	var orchBackup scraper.Backupper
	var serverBackups server.BackupService
	if backupSvc != nil {
		orchBackup = backupSvc
		serverBackups = backupSvc
	}

	orch := scraper.New(
		dbClient,
		searchClient,
		pipeline.NewIngestor(dbClient, nil, logger),
		keywords.NewRegistry(dbClient, logger),
		usageTracker,
		orchBackup,
		metrics.NewCollector(),
		logger,
	)
	srv := server.New(
		orch,
		keywords.NewRegistry(dbClient, logger),
		usageTracker,
		dbClient,
		serverBackups,
		logger,
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx, ":"+port); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func newBackupService(cfg config.Config, dbClient *db.Client, logger *slog.Logger) (*backup.Service, error) {
	var blobs backup.BlobStore
	var err error
	if cfg.BackupBucket != "" {
		blobs, err = backup.NewS3Store(cfg.BackupBucket, cfg.BackupRegion)
	} else {
		blobs, err = backup.NewDirStore(cfg.BackupDir)
	}
	if err != nil {
		return nil, err
	}
	return backup.New(dbClient, blobs, logger), nil
}

// Package cli provides the command-line interface for newsflow.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/ai"
	"github.com/newsflow/newsflow-go/internal/backup"
	"github.com/newsflow/newsflow-go/internal/config"
	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/keywords"
	"github.com/newsflow/newsflow-go/internal/metrics"
	"github.com/newsflow/newsflow-go/internal/pipeline"
	"github.com/newsflow/newsflow-go/internal/scraper"
	"github.com/newsflow/newsflow-go/internal/search"
	"github.com/newsflow/newsflow-go/internal/tracker"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and db client
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	dbClient  *db.Client
	collector = metrics.NewCollector()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "newsflow",
	Short: "News crawling and AI content pipeline",
	Long: `Newsflow crawls news sources by keyword, scores and dedupes the
articles, and runs AI analysis (summaries, keywords, sentiment, topics)
over the collected content.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// newTracker builds the usage tracker from the configured pricing table.
func newTracker() (*tracker.Tracker, error) {
	pricing, err := config.LoadPricingTable(cfg.PricingFile)
	if err != nil {
		return nil, fmt.Errorf("load pricing table: %w", err)
	}
	return tracker.New(dbClient, pricing, logger), nil
}

// newBackupService builds the snapshot service, S3-backed when a bucket is
// configured.
func newBackupService() (*backup.Service, error) {
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

// newOrchestrator wires the full scraping stack.
func newOrchestrator() (*scraper.Orchestrator, error) {
	searchClient, err := search.NewHTTPClient(search.HTTPClientConfig{
		BaseURL:   cfg.SearchAPIURL,
		APIKey:    cfg.SearchAPIKey,
		Timeout:   cfg.SearchTimeout,
		RateLimit: cfg.SearchRateLimit,
		RateBurst: cfg.SearchRateBurst,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init search client: %w", err)
	}

	trk, err := newTracker()
	if err != nil {
		return nil, err
	}
	backupSvc, err := newBackupService()
	if err != nil {
		return nil, err
	}

	return scraper.New(
		dbClient,
		searchClient,
		pipeline.NewIngestor(dbClient, nil, logger),
		keywords.NewRegistry(dbClient, logger),
		trk,
		backupSvc,
		collector,
		logger,
	), nil
}

// newAnalyzer builds the AI analyzer with usage accounting.
func newAnalyzer() (*ai.Analyzer, error) {
	trk, err := newTracker()
	if err != nil {
		return nil, err
	}
	analyzer, err := ai.NewAnalyzer(cfg, trk, logger)
	if err != nil {
		return nil, err
	}
	return analyzer.WithMetrics(collector), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(analyzeCmd)
}

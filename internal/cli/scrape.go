package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/scraper"
)

var (
	scrapeKeywords    []string
	scrapeTarget      string
	scrapeMax         int
	scrapeThreshold   float64
	scrapeBatchSize   int
	scrapeConcurrency int
	scrapeAutoBackup  bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a scraping job for the given keywords",
	Long: `Search the configured news API for the given keywords, ingest the
results through the relevance and dedup pipeline, and record the run.

Examples:
  newsflow scrape -k "artificial intelligence"
  newsflow scrape -k robotics -k automation --max 100
  newsflow scrape -k climate --threshold 40 --backup`,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringSliceVarP(&scrapeKeywords, "keyword", "k", nil, "keyword to search for (repeatable)")
	scrapeCmd.Flags().StringVar(&scrapeTarget, "target", "", "crawl target id to attribute the run to")
	scrapeCmd.Flags().IntVar(&scrapeMax, "max", 0, "max articles to fetch (0 = default)")
	scrapeCmd.Flags().Float64Var(&scrapeThreshold, "threshold", -1, "minimum relevance score, 0-100 (-1 = keep all)")
	scrapeCmd.Flags().IntVar(&scrapeBatchSize, "batch", 0, "articles per batch (0 = default)")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 0, "parallel workers per batch (0 = default)")
	scrapeCmd.Flags().BoolVar(&scrapeAutoBackup, "backup", false, "create a backup snapshot after the run")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	jobCfg := scraper.JobConfig{
		Keywords: scrapeKeywords,
		Options: scraper.Options{
			MaxArticles:      scrapeMax,
			BatchSize:        scrapeBatchSize,
			Concurrency:      scrapeConcurrency,
			EnableAutoBackup: scrapeAutoBackup,
		},
	}
	if scrapeTarget != "" {
		jobCfg.TargetID = &scrapeTarget
	}
	if scrapeThreshold >= 0 {
		jobCfg.Options.RelevanceThreshold = &scrapeThreshold
	}

	result, err := orch.ExecuteJob(ctx, jobCfg)
	if err != nil {
		if result != nil {
			printJobResult(result)
		}
		return fmt.Errorf("execute job: %w", err)
	}

	printJobResult(result)
	return nil
}

func printJobResult(result *scraper.JobResult) {
	fmt.Printf("Job %s: %s\n\n", result.JobID, result.Status)
	fmt.Printf("  Total:      %d\n", result.Statistics.Total)
	fmt.Printf("  Succeeded:  %d\n", result.Statistics.Succeeded)
	fmt.Printf("  Duplicates: %d\n", result.Statistics.Duplicates)
	fmt.Printf("  Filtered:   %d\n", result.Statistics.Filtered)
	fmt.Printf("  Failed:     %d\n", result.Statistics.Failed)
	if result.BackupID != nil {
		fmt.Printf("\nBackup: %s\n", *result.BackupID)
	}
	for _, w := range result.Warnings {
		fmt.Printf("\nWarning: %s\n", w)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("- %s: %s\n", e.URL, e.Message)
		}
	}
}

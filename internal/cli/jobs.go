package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/models"
)

var (
	jobsLimit          int
	jobsNormalizeLimit int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage crawl jobs",
	Long: `List crawl jobs and operate on a single job.

Subcommands:
  list       List recent crawl jobs (default)
  status     Show one crawl job
  cancel     Cancel a pending or running job
  reprocess  Re-run processing over failed articles
  normalize  Re-clean stored article text
  delete     Delete a crawl job and its articles

Examples:
  newsflow jobs
  newsflow jobs status crawl_job:abc123
  newsflow jobs cancel crawl_job:abc123`,
	RunE: runJobsList,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent crawl jobs",
	RunE:  runJobsList,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show one crawl job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

var jobsReprocessCmd = &cobra.Command{
	Use:   "reprocess [job-id]",
	Short: "Re-run processing over failed articles",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobsReprocess,
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a crawl job and its articles",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDelete,
}

var jobsNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Re-clean stored article text",
	RunE:  runJobsNormalize,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max results")
	jobsListCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max results")
	jobsNormalizeCmd.Flags().IntVarP(&jobsNormalizeLimit, "limit", "n", 0, "max articles to rewrite (0 = all)")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCmd.AddCommand(jobsReprocessCmd)
	jobsCmd.AddCommand(jobsNormalizeCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jobs, err := dbClient.ListCrawlJobs(ctx, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No crawl jobs.")
		return nil
	}

	fmt.Printf("Crawl jobs (%d):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("- %s  %s  %d/%d\n", job.ID, job.Status, job.ProcessedItems, job.TotalItems)
		if verbose && job.ErrorMessage != nil {
			fmt.Printf("  Error: %s\n", *job.ErrorMessage)
		}
	}

	return nil
}

func printJob(job *models.CrawlJob) {
	fmt.Printf("Job:      %s\n", job.ID)
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Progress: %d/%d\n", job.ProcessedItems, job.TotalItems)
	if job.TargetID != nil {
		fmt.Printf("Target:   %s\n", *job.TargetID)
	}
	if job.StartedAt != nil {
		fmt.Printf("Started:  %s\n", job.StartedAt.Format(time.DateTime))
	}
	if job.CompletedAt != nil {
		fmt.Printf("Finished: %s\n", job.CompletedAt.Format(time.DateTime))
	}
	if job.ErrorMessage != nil {
		fmt.Printf("Error:    %s\n", *job.ErrorMessage)
	}
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	job, err := dbClient.GetCrawlJob(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	printJob(job)
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	job, err := orch.CancelJob(ctx, args[0])
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}

	printJob(job)
	return nil
}

func runJobsReprocess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	jobID := ""
	if len(args) > 0 {
		jobID = args[0]
	}

	report, err := orch.ReprocessFailedArticles(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reprocess articles: %w", err)
	}

	fmt.Printf("Reprocessed %d articles: %d improved, %d still failed.\n",
		report.Reprocessed, report.Improved, report.StillFailed)
	return nil
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	n, err := dbClient.DeleteCrawlJob(ctx, args[0])
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}

	if n == 0 {
		fmt.Printf("Job %s not found.\n", args[0])
		return nil
	}
	fmt.Printf("Deleted job %s and its articles.\n", args[0])
	return nil
}

func runJobsNormalize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	n, err := orch.NormalizeExistingData(ctx, jobsNormalizeLimit)
	if err != nil {
		return fmt.Errorf("normalize articles: %w", err)
	}

	fmt.Printf("Rewrote %d articles.\n", n)
	return nil
}

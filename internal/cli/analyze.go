package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/ai"
	"github.com/newsflow/newsflow-go/internal/models"
)

var (
	analyzeType       string
	analyzePriority   int
	analyzeMaxRetries int
	analyzeSummary    string
	analyzeInterval   time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run AI analysis over articles",
	Long: `Queue and process AI analysis jobs, or summarize a single article
directly.

Subcommands:
  worker     Process queued analysis jobs until interrupted
  queue      Queue an analysis job for an article
  summarize  Summarize one article and store the result

Examples:
  newsflow analyze worker
  newsflow analyze queue article:abc123 --type sentiment
  newsflow analyze summarize article:abc123 --summary SHORT`,
}

var analyzeWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued analysis jobs until interrupted",
	RunE:  runAnalyzeWorker,
}

var analyzeQueueCmd = &cobra.Command{
	Use:   "queue <article-id>",
	Short: "Queue an analysis job for an article",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeQueue,
}

var analyzeSummarizeCmd = &cobra.Command{
	Use:   "summarize <article-id>",
	Short: "Summarize one article and store the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeSummarize,
}

func init() {
	analyzeWorkerCmd.Flags().DurationVar(&analyzeInterval, "interval", 5*time.Second, "poll interval when the queue is empty")
	analyzeQueueCmd.Flags().StringVar(&analyzeType, "type", "summary", "analysis type (summary, keywords, sentiment, topic)")
	analyzeQueueCmd.Flags().IntVar(&analyzePriority, "priority", 0, "job priority, higher first")
	analyzeQueueCmd.Flags().IntVar(&analyzeMaxRetries, "retries", 3, "max retries before the job fails")
	analyzeSummarizeCmd.Flags().StringVar(&analyzeSummary, "summary", "MEDIUM", "summary type (SHORT, MEDIUM, LONG, BULLET_POINTS, KEYWORDS_ONLY)")

	analyzeCmd.AddCommand(analyzeWorkerCmd)
	analyzeCmd.AddCommand(analyzeQueueCmd)
	analyzeCmd.AddCommand(analyzeSummarizeCmd)
}

func analysisTypeFromFlag(s string) (models.AnalysisType, error) {
	switch strings.ToLower(s) {
	case "summary":
		return models.AnalysisSummaryGeneration, nil
	case "keywords":
		return models.AnalysisKeywordExtraction, nil
	case "sentiment":
		return models.AnalysisSentiment, nil
	case "topic":
		return models.AnalysisTopicClassification, nil
	}
	return "", fmt.Errorf("unknown analysis type: %s", s)
}

func runAnalyzeWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	worker := ai.NewWorker(dbClient, analyzer, analyzeInterval, logger)

	fmt.Printf("Worker running with model %s, Ctrl-C to stop.\n", analyzer.Model())
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("analysis worker: %w", err)
	}
	return nil
}

func runAnalyzeQueue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	typ, err := analysisTypeFromFlag(analyzeType)
	if err != nil {
		return err
	}

	article, err := dbClient.GetArticle(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}

	articleID := article.ID.String()
	job, err := dbClient.CreateAnalysisJob(ctx, models.AIAnalysisJob{
		Type:         typ,
		ArticleID:    &articleID,
		InputContent: article.Content,
		Model:        cfg.AIModel,
		Priority:     analyzePriority,
		MaxRetries:   analyzeMaxRetries,
	})
	if err != nil {
		return fmt.Errorf("queue analysis job: %w", err)
	}

	fmt.Printf("Queued %s job %s\n", job.Type, job.ID)
	return nil
}

func runAnalyzeSummarize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	article, err := dbClient.GetArticle(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}

	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	text, err := analyzer.Summarize(ctx, article.Content, ai.SummarizeOptions{
		Type: models.SummaryType(analyzeSummary),
	})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	model := analyzer.Model()
	if _, err := dbClient.CreateSummary(ctx, article.ID.String(), models.SummaryType(analyzeSummary), text, nil, &model); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}

	fmt.Println(text)
	return nil
}

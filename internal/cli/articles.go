package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/db"
	"github.com/newsflow/newsflow-go/internal/models"
)

var (
	articlesStatus string
	articlesJob    string
	articlesQuery  string
	articlesLimit  int
	articlesOffset int
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Browse collected articles",
	Long: `List and inspect scraped articles.

Subcommands:
  list       List articles (default)
  show       Show one article
  summaries  Show AI summaries for an article
  delete     Remove an article and its summaries
  stats      Article counts by status

Examples:
  newsflow articles
  newsflow articles --status RAW --limit 10
  newsflow articles show article:abc123`,
	RunE: runArticlesList,
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles",
	RunE:  runArticlesList,
}

var articlesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one article",
	Args:  cobra.ExactArgs(1),
	RunE:  runArticlesShow,
}

var articlesSummariesCmd = &cobra.Command{
	Use:   "summaries <id>",
	Short: "Show AI summaries for an article",
	Args:  cobra.ExactArgs(1),
	RunE:  runArticlesSummaries,
}

var articlesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an article and its summaries",
	Args:  cobra.ExactArgs(1),
	RunE:  runArticlesDelete,
}

var articlesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Article counts by status",
	RunE:  runArticlesStats,
}

func init() {
	for _, c := range []*cobra.Command{articlesCmd, articlesListCmd} {
		c.Flags().StringVar(&articlesStatus, "status", "", "filter by status (RAW, PROCESSED, FAILED)")
		c.Flags().StringVar(&articlesJob, "job", "", "filter by crawl job id")
		c.Flags().StringVarP(&articlesQuery, "query", "q", "", "substring match on title and content")
		c.Flags().IntVarP(&articlesLimit, "limit", "n", 20, "max results")
		c.Flags().IntVar(&articlesOffset, "offset", 0, "skip this many results")
	}

	articlesCmd.AddCommand(articlesListCmd)
	articlesCmd.AddCommand(articlesShowCmd)
	articlesCmd.AddCommand(articlesSummariesCmd)
	articlesCmd.AddCommand(articlesDeleteCmd)
	articlesCmd.AddCommand(articlesStatsCmd)
}

func runArticlesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	filter := db.ArticleFilter{
		Query:  articlesQuery,
		Limit:  articlesLimit,
		Offset: articlesOffset,
	}
	if articlesStatus != "" {
		status := models.ArticleStatus(articlesStatus)
		filter.Status = &status
	}
	if articlesJob != "" {
		filter.CrawlJobID = &articlesJob
	}

	articles, err := dbClient.ListArticles(ctx, filter)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}

	if len(articles) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	fmt.Printf("Articles (%d):\n\n", len(articles))
	for _, a := range articles {
		score := "-"
		if a.RelevanceScore != nil {
			score = fmt.Sprintf("%.1f", *a.RelevanceScore)
		}
		fmt.Printf("- [%s] %s (score %s)\n", a.Status, a.Title, score)
		if verbose {
			fmt.Printf("  ID: %s\n", a.ID)
			fmt.Printf("  %s\n", a.URL)
		}
	}

	return nil
}

func runArticlesShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := dbClient.GetArticle(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}

	fmt.Printf("Title:  %s\n", a.Title)
	fmt.Printf("URL:    %s\n", a.URL)
	fmt.Printf("Status: %s\n", a.Status)
	if a.Author != nil {
		fmt.Printf("Author: %s\n", *a.Author)
	}
	if a.PublishedAt != nil {
		fmt.Printf("Published: %s\n", a.PublishedAt.Format(time.DateTime))
	}
	if a.RelevanceScore != nil {
		fmt.Printf("Score:  %.1f\n", *a.RelevanceScore)
	}
	if len(a.KeywordTags) > 0 {
		fmt.Printf("Tags:   %v\n", a.KeywordTags)
	}
	fmt.Printf("\n%s\n", a.Content)
	return nil
}

func runArticlesSummaries(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	summaries, err := dbClient.ListSummariesByArticle(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list summaries: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No summaries.")
		return nil
	}

	for _, s := range summaries {
		model := ""
		if s.Model != nil {
			model = fmt.Sprintf(" (%s)", *s.Model)
		}
		fmt.Printf("[%s v%d]%s\n%s\n\n", s.Type, s.Version, model, s.Content)
	}
	return nil
}

func runArticlesDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	n, err := dbClient.DeleteArticle(ctx, args[0])
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}

	fmt.Printf("Deleted %d articles.\n", n)
	return nil
}

func runArticlesStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	counts, err := dbClient.CountArticlesByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count articles: %w", err)
	}

	if len(counts) == 0 {
		fmt.Println("No articles.")
		return nil
	}

	for _, c := range counts {
		fmt.Printf("%-10s %d\n", c.Status, c.Count)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show search history",
	Long: `Show past search runs, newest first.

Subcommands:
  list    List search runs (default)
  show    Show one search run
  delete  Remove a search run

Examples:
  newsflow history
  newsflow history --limit 10
  newsflow history show search_history:abc123`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search runs",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one search run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a search run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max results")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "skip this many results")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max results")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "skip this many results")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	trk, err := newTracker()
	if err != nil {
		return err
	}

	entries, err := trk.History(ctx, historyLimit, historyOffset)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No search history.")
		return nil
	}

	fmt.Printf("Search history (%d):\n\n", len(entries))
	for _, e := range entries {
		fmt.Printf("- %s  %q  %s  %d results  %.2fs\n",
			e.CreatedAt.Format(time.DateTime), e.SearchQuery, e.Status, e.ResultCount, e.SearchTime)
		if verbose {
			fmt.Printf("  ID: %s\n", e.ID)
			if e.ErrorMsg != nil && *e.ErrorMsg != "" {
				fmt.Printf("  Error: %s\n", *e.ErrorMsg)
			}
		}
	}

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	trk, err := newTracker()
	if err != nil {
		return err
	}

	e, err := trk.GetSearch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get search: %w", err)
	}

	fmt.Printf("Query:   %s\n", e.SearchQuery)
	fmt.Printf("Status:  %s\n", e.Status)
	fmt.Printf("Results: %d\n", e.ResultCount)
	fmt.Printf("Took:    %.2fs\n", e.SearchTime)
	fmt.Printf("When:    %s\n", e.CreatedAt.Format(time.DateTime))
	if e.KeywordID != nil {
		fmt.Printf("Keyword: %s\n", *e.KeywordID)
	}
	if e.Filters != nil {
		fmt.Printf("Filters: %+v\n", *e.Filters)
	}
	if e.ErrorMsg != nil && *e.ErrorMsg != "" {
		fmt.Printf("Error:   %s\n", *e.ErrorMsg)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	trk, err := newTracker()
	if err != nil {
		return err
	}

	n, err := trk.DeleteSearch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("delete search: %w", err)
	}

	fmt.Printf("Deleted %d entries.\n", n)
	return nil
}

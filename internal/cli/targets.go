package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/db"
)

var (
	targetsEnabledOnly bool
	targetsType        string
	targetsCategory    string
	targetsDisable     bool
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage crawl targets",
	Long: `List and maintain the news sources crawl jobs can be attributed to.

Subcommands:
  list    List crawl targets (default)
  add     Register a crawl target
  enable  Enable or disable a target
  delete  Remove a target

Examples:
  newsflow targets
  newsflow targets add "Example News" https://news.example.com --type rss
  newsflow targets enable crawl_target:abc123 --off`,
	RunE: runTargetsList,
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crawl targets",
	RunE:  runTargetsList,
}

var targetsAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Register a crawl target",
	Args:  cobra.ExactArgs(2),
	RunE:  runTargetsAdd,
}

var targetsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable or disable a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetsEnable,
}

var targetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetsDelete,
}

var targetsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the default news sources",
	RunE:  runTargetsSeed,
}

func init() {
	targetsCmd.Flags().BoolVar(&targetsEnabledOnly, "enabled", false, "only enabled targets")
	targetsListCmd.Flags().BoolVar(&targetsEnabledOnly, "enabled", false, "only enabled targets")
	targetsAddCmd.Flags().StringVar(&targetsType, "type", "web", "target type (web, rss, api)")
	targetsAddCmd.Flags().StringVar(&targetsCategory, "category", "", "target category")
	targetsEnableCmd.Flags().BoolVar(&targetsDisable, "off", false, "disable instead of enable")

	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsAddCmd)
	targetsCmd.AddCommand(targetsEnableCmd)
	targetsCmd.AddCommand(targetsDeleteCmd)
	targetsCmd.AddCommand(targetsSeedCmd)
}

func runTargetsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	targets, err := dbClient.ListCrawlTargets(ctx, targetsEnabledOnly)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Println("No crawl targets.")
		return nil
	}

	fmt.Printf("Crawl targets (%d):\n\n", len(targets))
	for _, t := range targets {
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		fmt.Printf("- %s [%s, %s]\n", t.Name, t.Type, state)
		if verbose {
			fmt.Printf("  ID: %s\n", t.ID)
			fmt.Printf("  %s\n", t.URL)
			fmt.Printf("  Collected: %d, success rate %.1f%%\n", t.ItemsCollected, t.SuccessRate)
			if t.LastCrawl != nil {
				fmt.Printf("  Last crawl: %s\n", t.LastCrawl.Format(time.DateTime))
			}
		}
	}

	return nil
}

func runTargetsAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var category *string
	if targetsCategory != "" {
		category = &targetsCategory
	}

	t, err := dbClient.CreateCrawlTarget(ctx, args[0], args[1], targetsType, category)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	fmt.Printf("Created %s (%s)\n", t.Name, t.ID)
	return nil
}

func runTargetsEnable(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := dbClient.SetCrawlTargetEnabled(ctx, args[0], !targetsDisable); err != nil {
		return fmt.Errorf("update target: %w", err)
	}

	if targetsDisable {
		fmt.Println("Disabled.")
	} else {
		fmt.Println("Enabled.")
	}
	return nil
}

func runTargetsSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	n, err := dbClient.SeedCrawlTargets(ctx, db.DefaultSeedTargets)
	if err != nil {
		return fmt.Errorf("seed targets: %w", err)
	}

	fmt.Printf("Registered %d new targets.\n", n)
	return nil
}

func runTargetsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	n, err := dbClient.DeleteCrawlTarget(ctx, args[0])
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}

	fmt.Printf("Deleted %d targets.\n", n)
	return nil
}

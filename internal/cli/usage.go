package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	usageSince    string
	usageDetailed bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show AI token usage and cost",
	Long: `Show AI token spend aggregated by model and operation.

Examples:
  newsflow usage
  newsflow usage --since 7d
  newsflow usage --detailed`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().StringVar(&usageSince, "since", "30d", "time period (e.g., '24h', '7d', '30d')")
	usageCmd.Flags().BoolVar(&usageDetailed, "detailed", false, "show per-model and per-operation breakdown")
}

func parseSince(s string) (time.Time, error) {
	switch s {
	case "24h":
		return time.Now().Add(-24 * time.Hour), nil
	case "7d":
		return time.Now().Add(-7 * 24 * time.Hour), nil
	case "30d":
		return time.Now().Add(-30 * 24 * time.Hour), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration: %s", s)
	}
	return time.Now().Add(-d), nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	since, err := parseSince(usageSince)
	if err != nil {
		return err
	}

	trk, err := newTracker()
	if err != nil {
		return err
	}

	summary, err := trk.UsageSummary(ctx, since)
	if err != nil {
		return fmt.Errorf("get usage summary: %w", err)
	}

	fmt.Printf("AI Usage (since %s)\n\n", usageSince)
	fmt.Printf("Total calls:  %d\n", summary.TotalCalls)
	fmt.Printf("Total tokens: %d\n", summary.TotalTokens)
	fmt.Printf("Total cost:   $%.4f\n", summary.TotalCost)

	if usageDetailed {
		if len(summary.ByModel) > 0 {
			fmt.Printf("\nBy model:\n")
			for _, b := range summary.ByModel {
				fmt.Printf("- %s: %d calls, %d tokens, $%.4f\n", b.Key, b.Calls, b.TotalTokens, b.TotalCost)
			}
		}
		if len(summary.ByOperation) > 0 {
			fmt.Printf("\nBy operation:\n")
			for _, b := range summary.ByOperation {
				fmt.Printf("- %s: %d calls, %d tokens, $%.4f\n", b.Key, b.Calls, b.TotalTokens, b.TotalCost)
			}
		}
	}

	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsflow/newsflow-go/internal/keywords"
)

var (
	keywordsFavoritesOnly bool
	keywordsLimit         int
	keywordsCategory      string
	keywordsDescription   string
	keywordsFavoriteOff   bool
	keywordsSuggestLimit  int
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage the keyword registry",
	Long: `List, add and maintain search keywords.

Subcommands:
  list      List keywords (default)
  add       Record a keyword use
  favorite  Toggle favorite status
  update    Set category and description
  suggest   Prefix search over known keywords
  delete    Remove a keyword

Examples:
  newsflow keywords
  newsflow keywords list --favorites
  newsflow keywords add "machine learning"
  newsflow keywords favorite keyword:abc123
  newsflow keywords suggest mach`,
	RunE: runKeywordsList,
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keywords",
	RunE:  runKeywordsList,
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>",
	Short: "Record a keyword use",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsAdd,
}

var keywordsFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle favorite status",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsFavorite,
}

var keywordsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Set category and description",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsUpdate,
}

var keywordsSuggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "Prefix search over known keywords",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsSuggest,
}

var keywordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a keyword",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsDelete,
}

func init() {
	keywordsCmd.Flags().BoolVar(&keywordsFavoritesOnly, "favorites", false, "only favorites")
	keywordsCmd.Flags().IntVarP(&keywordsLimit, "limit", "n", 50, "max results")
	keywordsListCmd.Flags().BoolVar(&keywordsFavoritesOnly, "favorites", false, "only favorites")
	keywordsListCmd.Flags().IntVarP(&keywordsLimit, "limit", "n", 50, "max results")
	keywordsFavoriteCmd.Flags().BoolVar(&keywordsFavoriteOff, "off", false, "unset instead of set")
	keywordsUpdateCmd.Flags().StringVar(&keywordsCategory, "category", "", "keyword category")
	keywordsUpdateCmd.Flags().StringVar(&keywordsDescription, "description", "", "keyword description")
	keywordsSuggestCmd.Flags().IntVarP(&keywordsSuggestLimit, "limit", "n", 10, "max suggestions")

	keywordsCmd.AddCommand(keywordsListCmd)
	keywordsCmd.AddCommand(keywordsAddCmd)
	keywordsCmd.AddCommand(keywordsFavoriteCmd)
	keywordsCmd.AddCommand(keywordsUpdateCmd)
	keywordsCmd.AddCommand(keywordsSuggestCmd)
	keywordsCmd.AddCommand(keywordsDeleteCmd)
}

func keywordRegistry() *keywords.Registry {
	return keywords.NewRegistry(dbClient, logger)
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	list, err := keywordRegistry().List(ctx, keywordsFavoritesOnly, keywordsLimit)
	if err != nil {
		return fmt.Errorf("list keywords: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No keywords found.")
		return nil
	}

	fmt.Printf("Keywords (%d):\n\n", len(list))
	for _, kw := range list {
		favoriteMark := ""
		if kw.IsFavorite {
			favoriteMark = " [favorite]"
		}
		fmt.Printf("- %s (%d uses)%s\n", kw.Keyword, kw.UseCount, favoriteMark)
		if verbose {
			fmt.Printf("  ID: %s\n", kw.ID)
			if kw.Category != nil && *kw.Category != "" {
				fmt.Printf("  Category: %s\n", *kw.Category)
			}
			if kw.Description != nil && *kw.Description != "" {
				fmt.Printf("  %s\n", *kw.Description)
			}
		}
	}

	return nil
}

func runKeywordsAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kw, err := keywordRegistry().RecordUse(ctx, args[0])
	if err != nil {
		return fmt.Errorf("record keyword: %w", err)
	}

	fmt.Printf("Recorded %q (%d uses)\n", kw.Keyword, kw.UseCount)
	return nil
}

func runKeywordsFavorite(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kw, err := keywordRegistry().SetFavorite(ctx, args[0], !keywordsFavoriteOff)
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}

	state := "favorite"
	if !kw.IsFavorite {
		state = "not a favorite"
	}
	fmt.Printf("%q is now %s\n", kw.Keyword, state)
	return nil
}

func runKeywordsUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var category, description *string
	if cmd.Flags().Changed("category") {
		category = &keywordsCategory
	}
	if cmd.Flags().Changed("description") {
		description = &keywordsDescription
	}

	kw, err := keywordRegistry().UpdateMetadata(ctx, args[0], category, description)
	if err != nil {
		return fmt.Errorf("update keyword: %w", err)
	}

	fmt.Printf("Updated %q\n", kw.Keyword)
	return nil
}

func runKeywordsSuggest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	list, err := keywordRegistry().Suggest(ctx, args[0], keywordsSuggestLimit)
	if err != nil {
		return fmt.Errorf("suggest keywords: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No suggestions.")
		return nil
	}

	for _, kw := range list {
		fmt.Printf("- %s (%d uses)\n", kw.Keyword, kw.UseCount)
	}
	return nil
}

func runKeywordsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := keywordRegistry().Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}

	fmt.Println("Deleted.")
	return nil
}

package command

import (
	"fmt"

	"mangako/internal/library"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listFilter library.Filter

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage your manga library",
	Long:  `Add, remove, and list manga in your personal library`,
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [manga_id]",
	Short: "Add a manga to your library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manga, err := newClient().AddToLibrary(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to add manga to library: %w", err)
		}
		fmt.Printf("✅ Added %s (ID: %s) to your library\n", manga.Title, manga.ID)
		return nil
	},
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all manga in your library",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := newClient().GetLibrary(cmd.Context(), listFilter)
		if err != nil {
			return fmt.Errorf("failed to fetch library: %w", err)
		}

		if len(view.Items) == 0 {
			fmt.Println("📚 Your library is empty")
			return nil
		}

		special := make(map[string]bool, len(view.SpecialEditions))
		for _, id := range view.SpecialEditions {
			special[id] = true
		}

		fmt.Printf("📚 Your Library (%d of %d manga)\n", len(view.Items), view.Total)
		fmt.Println("─────────────────────────────────────────────────────────")
		for i, item := range view.Items {
			fmt.Printf("%d. %s (ID: %s)\n", i+1, item.Title, item.ID)
			progress := fmt.Sprintf("   Owned: %d/%d", item.VolumeOwned, item.VolumeCount)
			if item.IsComplete() {
				color.Green("%s", progress)
			} else {
				fmt.Println(progress)
			}
			if special[item.ID] {
				color.Yellow("   ★ has special editions")
			}
		}
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [manga_id]",
	Short: "Remove a manga from your library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().RemoveFromLibrary(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to remove manga from library: %w", err)
		}
		fmt.Printf("✅ Removed manga (ID: %s) from your library\n", args[0])
		return nil
	},
}

func init() {
	libraryListCmd.Flags().StringVarP(&listFilter.Query, "query", "q", "", "filter by title")
	libraryListCmd.Flags().BoolVar(&listFilter.IncompleteOnly, "incomplete", false, "only series with missing volumes")
	libraryListCmd.Flags().BoolVar(&listFilter.SpecialEditionsOnly, "special", false, "only series with special editions")

	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
}

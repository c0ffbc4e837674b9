package command

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	searchOffset     int
	searchClearCache bool
)

var searchCmd = &cobra.Command{
	Use:   "search [title]",
	Short: "Search the catalog by title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		c := newClient()

		if searchClearCache {
			if err := c.ClearSearchCache(cmd.Context(), query); err != nil {
				return fmt.Errorf("failed to clear cached results: %w", err)
			}
		}

		res, err := c.Search(cmd.Context(), query, searchOffset)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(res.Items) == 0 {
			fmt.Println("🔍 No results")
			return nil
		}

		source := "catalog"
		if res.Cached {
			source = "cache"
		}
		fmt.Printf("🔍 Results for %q (offset %d, from %s)\n", res.Query, res.Offset, source)
		fmt.Println("─────────────────────────────────────────────────────────")
		for i, m := range res.Items {
			fmt.Printf("%d. %s ", res.Offset+i+1, m.Title)
			color.HiBlack("(ID: %s)", m.ID)
			if m.Author != nil {
				fmt.Printf("   Author: %s\n", *m.Author)
			}
			if m.VolumeCount > 0 {
				fmt.Printf("   Volumes: %d\n", m.VolumeCount)
			}
		}
		fmt.Printf("\nNext page: mangako search %q --offset %d\n", query, res.Offset+len(res.Items))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "result offset")
	searchCmd.Flags().BoolVar(&searchClearCache, "refresh", false, "drop cached results for this query first")
}

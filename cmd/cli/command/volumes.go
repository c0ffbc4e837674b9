package command

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"mangako/cmd/cli/command/client"
	"mangako/internal/library"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	volumesNext    bool
	volumesRefresh bool
	ownRemove      bool
	ownYes         bool
)

var volumesCmd = &cobra.Command{
	Use:   "volumes [manga_id]",
	Short: "List the volumes of a manga",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := newClient().Volumes(cmd.Context(), args[0], volumesNext, volumesRefresh)
		if err != nil {
			return fmt.Errorf("failed to load volumes: %w", err)
		}
		printVolumes(page)
		return nil
	},
}

var ownCmd = &cobra.Command{
	Use:   "own [manga_id] [volume_id...]",
	Short: "Mark volumes as owned (or not, with --remove)",
	Long: `With one volume id the volume's owned flag is toggled. With several ids
they are all set to owned, or to not owned with --remove, in one batch.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		mangaID, ids := args[0], args[1:]

		apply := func(confirm bool) (*library.VolumePage, error) {
			if len(ids) == 1 && !ownRemove {
				return c.ToggleOwned(cmd.Context(), mangaID, ids[0], confirm)
			}
			return c.SetOwned(cmd.Context(), mangaID, ids, !ownRemove, confirm)
		}

		page, err := apply(ownYes)
		if errors.Is(err, client.ErrConfirmationRequired) {
			if !confirmPrompt("This manga is not in your library. Add it now?") {
				fmt.Println("Cancelled, nothing changed")
				return nil
			}
			page, err = apply(true)
		}
		if err != nil {
			return fmt.Errorf("failed to update volumes: %w", err)
		}
		printVolumes(page)
		return nil
	},
}

func init() {
	volumesCmd.Flags().BoolVar(&volumesNext, "next", false, "load one more page")
	volumesCmd.Flags().BoolVar(&volumesRefresh, "refresh", false, "reload from the first page")
	ownCmd.Flags().BoolVar(&ownRemove, "remove", false, "mark the volumes as not owned")
	ownCmd.Flags().BoolVarP(&ownYes, "yes", "y", false, "add the manga to the library without asking")
}

func printVolumes(page *library.VolumePage) {
	owned := 0
	for _, v := range page.Volumes {
		if v.Owned {
			owned++
		}
	}
	fmt.Printf("📚 %s: %d volumes loaded, %d owned", page.MangaID, len(page.Volumes), owned)
	if page.InLibrary {
		fmt.Print(" (in library)")
	}
	fmt.Println()
	fmt.Println("─────────────────────────────────────────────────────────")

	for _, v := range page.Volumes {
		line := fmt.Sprintf("Vol. %-6s %s", v.DisplayNumber(), v.ID)
		switch {
		case v.Owned:
			color.Green("✔ %s", line)
		case v.IsSpecialEdition:
			color.Yellow("★ %s", line)
		default:
			fmt.Printf("  %s\n", line)
		}
	}

	if !page.Exhausted {
		color.HiBlack("more volumes available: mangako volumes %s --next", page.MangaID)
	}
}

func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

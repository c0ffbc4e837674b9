package command

// root.go defines the root command for the mangako CLI and its global flags.

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"mangako/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var apiURL string // Global flag for API server URL

var rootCmd = &cobra.Command{
	Use:   "mangako",
	Short: "mangako - manga volume collection tracker",
	Long: `mangako talks to the mangako API server. With it you can:
- Search the catalog
- Browse the volumes of a manga and mark the ones you own
- Keep a library of the series you collect

Use "mangako command --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("MANGAKO_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "API server URL")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(volumesCmd)
	rootCmd.AddCommand(ownCmd)
	rootCmd.AddCommand(libraryCmd)
}

func newClient() *client.HTTPClient {
	return client.NewHTTPClient(apiURL)
}

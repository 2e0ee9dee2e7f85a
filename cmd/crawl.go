package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/bootstrap"
)

func newCrawlCommand() *cobra.Command {
	var (
		queries    []string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl and print its summary as JSON",
		Long: `Run a single crawl across every enabled source and persist new mentions.

Examples:
  # Crawl with the configured default queries
  muniwatch crawl

  # Crawl two queries, five results each
  muniwatch crawl -q "public power" -q "municipal utility" -n 5
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(cfgFile, debug)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Crawler.Crawl(cmd.Context(), queries, maxResults)
			if err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "search query (repeatable, defaults to the configured queries)")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum results per query (defaults to the configured value)")
	return cmd
}

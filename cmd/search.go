package cmd

import (
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/model"
	"github.com/zorins376-hub/music-bot/repository"

	"github.com/spf13/cobra"
)

var (
	searchQuery    string
	searchLimit    int
	searchProvider string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run the search cascade from the command line",
	Long:  `Run one query through the same cascade the bot uses and print the candidates. With --provider only that provider is asked, bypassing the query cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchQuery == "" {
			return fmt.Errorf("a query is required (-q)")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := withTimeout(2 * time.Minute)
		defer cancel()

		tracks := repository.NewTrackRepository(st.db, cfg.HouseChannels)
		sc, err := buildCascade(ctx, cfg, tracks, st.redis)
		if err != nil {
			return err
		}

		fmt.Printf("Searching: %s\n", searchQuery)
		var results []model.Candidate
		if searchProvider == "" {
			results = sc.orch.Search(ctx, searchQuery, searchLimit)
		} else {
			p, ok := sc.manager.Searcher(model.Source(searchProvider))
			if !ok {
				return fmt.Errorf("unknown provider %q", searchProvider)
			}
			if results, err = p.Search(ctx, searchQuery, searchLimit); err != nil {
				return fmt.Errorf("provider %s failed: %w", searchProvider, err)
			}
		}
		if len(results) == 0 {
			fmt.Println("Nothing found.")
			return nil
		}
		fmt.Printf("\n%d results from %s:\n", len(results), results[0].Source)
		for i, c := range results {
			fmt.Printf("%2d. %s (%s)  [%s]\n", i+1, c.Label(), c.DurationFormatted, c.ExternalID)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchProvider, "provider", "p", "", "ask only this provider (local, paid, video, audio_social, social)")
	rootCmd.AddCommand(searchCmd)
}

package cmd

import (
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/core/worker"
	"github.com/zorins376-hub/music-bot/repository"

	"github.com/spf13/cobra"
)

var chartKey string

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Print a chart",
	Long:  `Fetch a chart the way the bot does, storing it in Redis, and print its first page. Without --chart the available charts are listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := withTimeout(3 * time.Minute)
		defer cancel()

		sc, err := buildCascade(ctx, cfg, repository.NewTrackRepository(st.db, cfg.HouseChannels), st.redis)
		if err != nil {
			return err
		}
		svc := buildCharts(cfg, sc, st.redis, worker.NewPool("background", 1))

		if chartKey == "" {
			for _, c := range svc.Charts() {
				fmt.Printf("%-10s %s\n", c.Key, c.Label)
			}
			return nil
		}
		page, err := svc.Page(ctx, chartKey, 0)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d pages)\n", page.Chart.Label, page.Pages)
		for i, e := range page.Entries {
			fmt.Printf("%2d. %s\n", page.Offset+i+1, e.Query())
		}
		return nil
	},
}

func init() {
	chartsCmd.Flags().StringVarP(&chartKey, "chart", "c", "", "chart key")
	rootCmd.AddCommand(chartsCmd)
}

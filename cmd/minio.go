package cmd

import (
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	archivePrefix    string
	archiveStatsOnly bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the audio archive",
	Long:  `List the mp3 renditions kept in the MinIO audio archive, or print bucket statistics with --stats.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is not set")
		}

		ctx, cancel := withTimeout(2 * time.Minute)
		defer cancel()

		archive, err := storage.NewAudioArchive(ctx, cfg)
		if err != nil {
			return err
		}
		objects, stats, err := archive.List(ctx, archivePrefix)
		if err != nil {
			return err
		}

		if !archiveStatsOnly {
			for _, o := range objects {
				fmt.Printf("%-60s %10s  %s\n", o.Key, humanize.IBytes(uint64(o.Size)), humanize.Time(o.LastModified))
			}
			fmt.Println()
		}
		fmt.Printf("Bucket:        %s\n", archive.Bucket())
		fmt.Printf("Prefix:        %q\n", archivePrefix)
		fmt.Printf("Objects:       %s\n", humanize.Comma(stats.TotalObjects))
		fmt.Printf("Total size:    %s\n", humanize.IBytes(uint64(stats.TotalSize)))
		if !stats.LastModified.IsZero() {
			fmt.Printf("Last modified: %s\n", humanize.Time(stats.LastModified))
		}
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&archivePrefix, "prefix", "p", "audio/", "object key prefix")
	archiveCmd.Flags().BoolVarP(&archiveStatsOnly, "stats", "s", false, "print statistics only")
	rootCmd.AddCommand(archiveCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/zorins376-hub/music-bot/bot"
	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/core/channel"
	"github.com/zorins376-hub/music-bot/repository"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var (
	loadChannelRef  string
	loadLabel       string
	loadScratchChat int64
)

var loadChannelCmd = &cobra.Command{
	Use:   "load-channel",
	Short: "Import the audio of a Telegram channel into the local index",
	Long: `Forward every message of a channel into a scratch chat the bot can write to,
import the audio files under a house label and push them onto its radio queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		label := strings.ToLower(loadLabel)
		if !slices.Contains(cfg.HouseChannels, label) {
			return fmt.Errorf("unknown label %q, known: %s", loadLabel, strings.Join(cfg.HouseChannels, ", "))
		}
		if loadChannelRef == "" || loadScratchChat == 0 {
			return fmt.Errorf("--channel and --chat are required")
		}

		st, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("failed to connect to Telegram: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loader := channel.NewLoader(bot.NewForwarder(api),
			repository.NewTrackRepository(st.db, cfg.HouseChannels),
			cache.NewRadioQueue(st.redis))
		p, err := loader.Load(ctx, loadChannelRef, label, loadScratchChat, func(p channel.Progress) {
			fmt.Printf("message #%d: saved %d, skipped %d, errors %d\n", p.LastMessageID, p.Saved, p.Skipped, p.Errors)
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s loaded: saved %d, skipped %d, errors %d\n", strings.ToUpper(label), p.Saved, p.Skipped, p.Errors)
		return nil
	},
}

func init() {
	loadChannelCmd.Flags().StringVarP(&loadChannelRef, "channel", "c", "", "channel @username or numeric id")
	loadChannelCmd.Flags().StringVarP(&loadLabel, "label", "l", "", "house label")
	loadChannelCmd.Flags().Int64Var(&loadScratchChat, "chat", 0, "chat id the bot forwards into")
	rootCmd.AddCommand(loadChannelCmd)
}

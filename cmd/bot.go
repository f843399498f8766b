package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zorins376-hub/music-bot/bot"
	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/core/channel"
	"github.com/zorins376-hub/music-bot/core/delivery"
	"github.com/zorins376-hub/music-bot/core/music"
	"github.com/zorins376-hub/music-bot/core/spotify"
	"github.com/zorins376-hub/music-bot/core/tagging"
	"github.com/zorins376-hub/music-bot/core/worker"
	"github.com/zorins376-hub/music-bot/core/ytdlp"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/metrics"
	"github.com/zorins376-hub/music-bot/repository"
	"github.com/zorins376-hub/music-bot/server"
	"github.com/zorins376-hub/music-bot/storage"
	"github.com/zorins376-hub/music-bot/telemetry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	tagComment  = "BLACK ROOM"
	floodWindow = time.Second
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the bot",
	Long:  `Run the bot with long polling, or behind a webhook when WEBHOOK_URL is set. The HTTP server exposes /healthz and /metrics either way.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runBot(ctx)
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if cfg.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	shutdownTracing, err := telemetry.Init(ctx, "blackroom")
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.YtDlpInstall {
		if err := ytdlp.EnsureInstalled(ctx); err != nil {
			return err
		}
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	logger.Info("[App] authorized", logger.String("account", api.Self.UserName))

	tracks := repository.NewTrackRepository(st.db, cfg.HouseChannels)
	users := repository.NewUserRepository(st.db, cfg.DefaultBitrate)
	history := repository.NewHistoryRepository(st.db)

	sc, err := buildCascade(ctx, cfg, tracks, st.redis)
	if err != nil {
		return err
	}

	archive, err := storage.NewAudioArchive(ctx, cfg)
	if err != nil {
		return err
	}

	handles := cache.NewDeliveryCache(st.redis, cfg.FileIDTTL)
	pipeline := delivery.NewPipeline(
		sc.manager,
		handles,
		bot.NewPublisher(api),
		tracks,
		history,
		worker.NewPool("downloads", cfg.Workers),
		archive,
		tagging.NewID3(tagComment),
		delivery.Options{
			MaxFileSize:     cfg.MaxFileSize,
			DownloadTimeout: cfg.DownloadTimeout,
			DownloadDir:     cfg.DownloadDir,
		},
	)

	settings := cache.NewSettings(st.redis, map[string]int{
		cache.SettingMaxResults:     cfg.MaxResults,
		cache.SettingDefaultBitrate: cfg.DefaultBitrate,
	})

	deps := music.Deps{
		Admitter:  newRateLimiter(cfg, st),
		Searcher:  sc.orch,
		Sessions:  cache.NewSessionStore(st.redis, cfg.SearchSessionTTL),
		Deliverer: pipeline,
		History:   history,
		Settings:  settings,
		Handles:   handles,
		Tracks:    tracks,
	}
	if links := spotify.NewResolver(ctx, cfg.SpotifyID, cfg.SpotifySecret); links.Enabled() {
		deps.Links = links
	}

	radio := cache.NewRadioQueue(st.redis)
	background := worker.NewPool("background", cfg.BackgroundWorkers)
	b := bot.New(bot.Deps{
		Config:     cfg,
		API:        api,
		Music:      music.NewService(deps),
		Users:      users,
		History:    history,
		Flood:      cache.NewFloodGuard(st.redis, floodWindow),
		Settings:   settings,
		Admin:      cache.NewAdminState(st.redis),
		Radio:      radio,
		Loader:     channel.NewLoader(bot.NewForwarder(api), tracks, radio),
		Charts:     buildCharts(cfg, sc, st.redis, background),
		Background: background,
	})

	opts := server.Options{
		Addr:     cfg.HTTPAddr,
		Gatherer: reg,
		Checks: map[string]server.Check{
			"db":    st.pingDB,
			"redis": st.pingRedis,
		},
	}
	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil {
			return fmt.Errorf("invalid WEBHOOK_URL: %w", err)
		}
		opts.WebhookPath = u.Path
		opts.WebhookSecret = cfg.WebhookSecret
		opts.Updates = b
	}

	if cfg.WebhookURL != "" {
		if err := setWebhook(api, cfg); err != nil {
			return err
		}
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("[App] failed to delete webhook", logger.ErrorField(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(opts).Run(ctx)
	})
	if cfg.WebhookURL == "" {
		g.Go(func() error {
			return b.Poll(ctx, api)
		})
	}

	err = g.Wait()
	logger.Info("[App] stopped")
	return err
}

func newRateLimiter(cfg *config.Config, st *stores) *cache.RateLimiter {
	return cache.NewRateLimiter(st.redis,
		cache.Tier{HourlyLimit: cfg.RateLimitRegular, Cooldown: seconds(cfg.CooldownRegular)},
		cache.Tier{HourlyLimit: cfg.RateLimitPremium, Cooldown: seconds(cfg.CooldownPremium)},
	)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func setWebhook(api *tgbotapi.BotAPI, cfg *config.Config) error {
	params := tgbotapi.Params{"url": cfg.WebhookURL}
	params.AddNonEmpty("secret_token", cfg.WebhookSecret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	logger.Info("[App] webhook set", logger.String("url", cfg.WebhookURL))
	return nil
}

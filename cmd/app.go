package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/cache"
	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/core/charts"
	"github.com/zorins376-hub/music-bot/core/httpclient"
	"github.com/zorins376-hub/music-bot/core/provider"
	"github.com/zorins376-hub/music-bot/core/search"
	"github.com/zorins376-hub/music-bot/core/vk"
	"github.com/zorins376-hub/music-bot/core/yandex"
	"github.com/zorins376-hub/music-bot/core/worker"
	"github.com/zorins376-hub/music-bot/core/ytdlp"
	"github.com/zorins376-hub/music-bot/db"
	"github.com/zorins376-hub/music-bot/logger"
	"github.com/zorins376-hub/music-bot/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// loadConfig reads the environment and starts the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		Compress:   true,
	})
	return cfg, nil
}

// stores are the process-wide connections.
type stores struct {
	db    *gorm.DB
	redis *redis.Client
}

func openStores(cfg *config.Config) (*stores, error) {
	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		_ = db.CloseGormDB(gdb)
		return nil, err
	}
	rdb, err := db.ConnectRedis(cfg)
	if err != nil {
		_ = db.CloseGormDB(gdb)
		return nil, err
	}
	logger.Info("[App] stores connected", logger.String("db_driver", cfg.DBDriver), logger.String("redis", cfg.RedisAddr()))
	return &stores{db: gdb, redis: rdb}, nil
}

func (s *stores) Close() {
	if err := s.redis.Close(); err != nil {
		logger.Warn("[App] failed to close Redis", logger.ErrorField(err))
	}
	if err := db.CloseGormDB(s.db); err != nil {
		logger.Warn("[App] failed to close database", logger.ErrorField(err))
	}
}

func (s *stores) pingDB(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *stores) pingRedis(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// cascade is the search side of the bot.
type cascade struct {
	manager *provider.Manager
	orch    *search.Orchestrator
	yandex  *yandex.Client
}

// buildCascade registers every provider and orders the search stages:
// local index, paid catalog, video (cached), audio social (cached), social.
func buildCascade(ctx context.Context, cfg *config.Config, tracks repository.TrackRepository, rdb redis.UniversalClient) (*cascade, error) {
	tokens, err := yandexTokens(ctx, cfg)
	if err != nil {
		return nil, err
	}

	local := provider.NewLocal(tracks)
	yc := yandex.NewClient(tokens)
	paid := yandex.NewProvider(yc)
	video := ytdlp.NewVideo(ytdlp.Options{CookiesFile: cfg.CookiesFile})
	audioSocial := ytdlp.NewAudioSocial()
	social := vk.NewProvider(cfg.VKToken, cfg.MaxDuration)

	manager := provider.NewManager()
	for _, p := range []provider.Searcher{local, paid, video, audioSocial, social} {
		manager.Register(p)
	}

	orch := search.NewOrchestrator(cache.NewQueryCache(rdb, cfg.QueryCacheTTL),
		search.Options{MaxDuration: cfg.MaxDuration, Timeout: cfg.ProviderTimeout, FetchLimit: cfg.MaxResults},
		search.Stage{Searcher: local},
		search.Stage{Searcher: paid},
		search.Stage{Searcher: video, Cached: true},
		search.Stage{Searcher: audioSocial, Cached: true},
		search.Stage{Searcher: social},
	)
	return &cascade{manager: manager, orch: orch, yandex: yc}, nil
}

// buildCharts offers the default charts. Fetches run on pool.
func buildCharts(cfg *config.Config, c *cascade, rdb redis.UniversalClient, pool *worker.Pool) *charts.Service {
	src := charts.Sources{
		HTTP:   httpclient.New(httpclient.Options{Timeout: 20 * time.Second, RPS: 2, Burst: 2, Retries: 2}),
		Yandex: c.yandex,
		Playlist: func(url string) charts.Fetcher {
			return ytdlp.NewPlaylist(ytdlp.Options{CookiesFile: cfg.CookiesFile}, url)
		},
	}
	return charts.NewService(cache.NewChartStore(rdb, cfg.ChartTTL), pool, charts.Options{}, charts.Defaults(src)...)
}

// yandexTokens builds the token pool. With a token file the pool follows the
// file until ctx ends.
func yandexTokens(ctx context.Context, cfg *config.Config) (*yandex.TokenPool, error) {
	static := cfg.YandexTokenList()
	pool := yandex.NewTokenPool(static)
	if cfg.YandexTokensFile == "" {
		return pool, nil
	}

	if _, err := yandex.ReadTokenFile(cfg.YandexTokensFile); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.YandexTokensFile, err)
	}
	go func() {
		if err := yandex.WatchTokenFile(ctx, cfg.YandexTokensFile, static, pool); err != nil {
			logger.Warn("[App] token file watch stopped", logger.ErrorField(err))
		}
	}()
	return pool, nil
}

// withTimeout is a context for one-shot CLI commands.
func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

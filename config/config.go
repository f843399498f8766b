package config

import (
	"fmt"
	"log"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Bitrate tiers offered to users, lowest first.
var BitrateTiers = []int{128, 192, 320}

// MinBitrate is the tier a too-large download is retried at.
const MinBitrate = 128

// Config stores the application configuration.
type Config struct {
	// Telegram
	BotToken      string  `envconfig:"BOT_TOKEN"`
	AdminIDs      []int64 `envconfig:"ADMIN_IDS"`
	WebhookURL    string  `envconfig:"WEBHOOK_URL"`
	WebhookSecret string  `envconfig:"WEBHOOK_SECRET"`
	HTTPAddr      string  `envconfig:"HTTP_ADDR" default:":8080"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"127.0.0.1"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Relational store: "mysql" or "sqlite"
	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost     string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort     string `envconfig:"DB_PORT" default:"3306"`
	DBUser     string `envconfig:"DB_USER" default:"root"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"blackroom"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/blackroom.sqlite3"`

	// Providers
	YandexToken      string   `envconfig:"YANDEX_MUSIC_TOKEN"`
	YandexTokens     []string `envconfig:"YANDEX_TOKENS"`
	YandexTokensFile string   `envconfig:"YANDEX_TOKENS_FILE"`
	VKToken          string   `envconfig:"VK_TOKEN"`
	SpotifyID        string   `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifySecret    string   `envconfig:"SPOTIFY_CLIENT_SECRET"`
	CookiesFile      string   `envconfig:"COOKIES_FILE"`
	YtDlpInstall     bool     `envconfig:"YTDLP_AUTO_INSTALL" default:"false"`
	DownloadDir      string   `envconfig:"DOWNLOAD_DIR" default:"downloads"`

	// MinIO audio archive, disabled when the endpoint is empty
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"blackroom"`
	MinioRegion    string `envconfig:"MINIO_REGION"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// Limits
	MaxDuration      int   `envconfig:"MAX_DURATION" default:"600"`
	MaxFileSize      int64 `envconfig:"MAX_FILE_SIZE" default:"47185920"`
	MaxResults       int   `envconfig:"MAX_RESULTS" default:"10"`
	DefaultBitrate   int   `envconfig:"DEFAULT_BITRATE" default:"192"`
	RateLimitRegular int   `envconfig:"RATE_LIMIT_REGULAR" default:"10"`
	RateLimitPremium int   `envconfig:"RATE_LIMIT_PREMIUM" default:"999999"`
	CooldownRegular  int   `envconfig:"COOLDOWN_REGULAR" default:"5"`
	CooldownPremium  int   `envconfig:"COOLDOWN_PREMIUM" default:"1"`

	// TTLs
	SearchSessionTTL time.Duration `envconfig:"SEARCH_SESSION_TTL" default:"5m"`
	QueryCacheTTL    time.Duration `envconfig:"QUERY_CACHE_TTL" default:"2m"`
	FileIDTTL        time.Duration `envconfig:"FILE_ID_TTL" default:"720h"`
	ChartTTL         time.Duration `envconfig:"CHART_TTL" default:"6h"`

	// Concurrency and timeouts
	Workers           int           `envconfig:"WORKERS" default:"8"`
	BackgroundWorkers int           `envconfig:"BACKGROUND_WORKERS" default:"2"`
	ProviderTimeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"20s"`
	DownloadTimeout   time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"90s"`

	// House channels in priority order.
	HouseChannels []string `envconfig:"HOUSE_CHANNELS" default:"tequila,fullmoon"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() (*Config, error) {
	// godotenv.Load() does not override variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains(BitrateTiers, c.DefaultBitrate) {
		return fmt.Errorf("DEFAULT_BITRATE must be one of %v, got %d", BitrateTiers, c.DefaultBitrate)
	}
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MaxDuration <= 0 || c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_DURATION and MAX_FILE_SIZE must be positive")
	}
	return nil
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// MySQLDSN builds the MySQL DSN for gorm.
func (c *Config) MySQLDSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	dsn.DBName = c.DBName
	dsn.ParseTime = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// YandexTokenList merges YANDEX_TOKENS and YANDEX_MUSIC_TOKEN without duplicates.
func (c *Config) YandexTokenList() []string {
	var out []string
	for _, t := range append(append([]string{}, c.YandexTokens...), c.YandexToken) {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// IsAdmin reports whether the Telegram user id is listed in ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.AdminIDs, userID)
}

// ValidBitrate reports whether b is one of the offered tiers.
func ValidBitrate(b int) bool {
	return slices.Contains(BitrateTiers, b)
}

// Package configs provides application configuration loaded from environment variables.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// LogLevel is a logrus level name. Default: info.
	LogLevel string

	// ServerPort is the HTTP API port. Empty disables the API.
	ServerPort string

	SourceArena SourceArenaConfig
	Crypto      CryptoConfig
	Tether      TetherConfig
	HTTP        HTTPConfig
	Cache       CacheConfig
	Baseline    BaselineConfig
	Report      ReportConfig
	Telegram    TelegramConfig
	Kafka       KafkaConfig
	History     HistoryConfig
}

// SourceArenaConfig holds the currency and gold vendor settings.
type SourceArenaConfig struct {
	URL   string
	Token string
}

// CryptoConfig selects and configures the crypto vendor.
type CryptoConfig struct {
	// Vendor is "coinmarketcap" or "coingecko".
	Vendor string

	CMCURL       string
	CMCAPIKey    string
	CoinGeckoURL string

	// Symbols are the coins requested from the vendor.
	Symbols []string
}

// TetherConfig holds the dedicated USDT vendors.
type TetherConfig struct {
	// Vendors in priority order (comma-separated in env).
	Vendors []string

	// FailureThreshold is the consecutive failure count at which a vendor
	// is skipped. Default: 3.
	FailureThreshold int

	// WallexStream enables the Wallex depth websocket.
	WallexStream bool
}

// HTTPConfig holds the outbound vendor client settings.
type HTTPConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
}

// CacheConfig locates the raw vendor body cache.
type CacheConfig struct {
	Dir        string
	ArchiveDir string
}

// BaselineConfig holds the toman rates used before the first refresh.
type BaselineConfig struct {
	DefaultUSD  float64
	DefaultUSDT float64
}

// ReportConfig controls the scheduled report.
type ReportConfig struct {
	Interval time.Duration

	// Symbols to include. Empty means the whole catalog.
	Symbols  []string
	Language string
}

// TelegramConfig is optional; an empty token disables posting.
type TelegramConfig struct {
	BotToken string
	Channels []string
}

// KafkaConfig is optional; an empty broker disables snapshot publishing.
type KafkaConfig struct {
	Broker     string
	PriceTopic string
}

// HistoryConfig enables the ClickHouse price history.
type HistoryConfig struct {
	Enabled bool
	DSN     string
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "user")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "password")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "db")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
func AppLoad() *AppConfig {
	_ = godotenv.Load() // .env is optional
	return load()
}

func load() *AppConfig {
	failureThreshold := getEnvInt("TETHER_FAILURE_THRESHOLD", 3)
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	rps := getEnvFloat("HTTP_REQUESTS_PER_SECOND", 5)
	if rps <= 0 {
		rps = 5
	}

	return &AppConfig{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		SourceArena: SourceArenaConfig{
			URL:   getEnv("SOURCEARENA_URL", ""),
			Token: getEnv("SOURCEARENA_TOKEN", ""),
		},
		Crypto: CryptoConfig{
			Vendor:       strings.ToLower(getEnv("CRYPTO_VENDOR", "coinmarketcap")),
			CMCURL:       getEnv("CMC_URL", ""),
			CMCAPIKey:    getEnv("CMC_API_KEY", ""),
			CoinGeckoURL: getEnv("COINGECKO_URL", ""),
			Symbols:      getEnvList("CRYPTO_SYMBOLS", []string{"BTC", "ETH", "BNB", "XRP", "SOL", "DOGE", "TON", "TRX", "ADA", "USDT"}),
		},
		Tether: TetherConfig{
			Vendors:          getEnvList("TETHER_VENDORS", []string{"nobitex", "wallex", "bitpin"}),
			FailureThreshold: failureThreshold,
			WallexStream:     getEnvBool("WALLEX_STREAM", false),
		},
		HTTP: HTTPConfig{
			Timeout:           time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
			RequestsPerSecond: rps,
		},
		Cache: CacheConfig{
			Dir:        getEnv("CACHE_DIR", "data/cache"),
			ArchiveDir: getEnv("ARCHIVE_DIR", "data/archive"),
		},
		Baseline: BaselineConfig{
			DefaultUSD:  getEnvFloat("DEFAULT_USD_PRICE", 100000),
			DefaultUSDT: getEnvFloat("DEFAULT_USDT_PRICE", 100000),
		},
		Report: ReportConfig{
			Interval: time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 300)) * time.Second,
			Symbols:  getEnvList("REPORT_SYMBOLS", nil),
			Language: getEnv("REPORT_LANGUAGE", "fa"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			Channels: getEnvList("TELEGRAM_CHANNELS", nil),
		},
		Kafka: KafkaConfig{
			Broker:     getEnv("KAFKA_BROKER", ""),
			PriceTopic: getEnv("KAFKA_PRICE_TOPIC", "nerkh_prices"),
		},
		History: HistoryConfig{
			Enabled: getEnvBool("HISTORY_ENABLED", false),
			DSN:     getDatabaseDSN(),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

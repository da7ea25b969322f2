package configs

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TETHER_VENDORS", "HTTP_TIMEOUT_SECONDS", "CACHE_DIR", "REPORT_SYMBOLS", "KAFKA_BROKER", "CRYPTO_VENDOR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := load()
	assert.Equal(t, []string{"nobitex", "wallex", "bitpin"}, cfg.Tether.Vendors)
	assert.Equal(t, 3, cfg.Tether.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "data/cache", cfg.Cache.Dir)
	assert.Nil(t, cfg.Report.Symbols)
	assert.Empty(t, cfg.Kafka.Broker)
	assert.Equal(t, "coinmarketcap", cfg.Crypto.Vendor)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TETHER_VENDORS", "wallex, bitpin,")
	t.Setenv("TETHER_FAILURE_THRESHOLD", "0")
	t.Setenv("WALLEX_STREAM", "true")
	t.Setenv("HTTP_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("DEFAULT_USD_PRICE", "98000")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "60")
	t.Setenv("CRYPTO_VENDOR", "CoinGecko")
	t.Setenv("CLICKHOUSE_HOST", "ch")
	t.Setenv("CLICKHOUSE_DB", "nerkh")

	cfg := load()
	assert.Equal(t, []string{"wallex", "bitpin"}, cfg.Tether.Vendors)
	assert.Equal(t, 3, cfg.Tether.FailureThreshold)
	assert.True(t, cfg.Tether.WallexStream)
	assert.Equal(t, 2.5, cfg.HTTP.RequestsPerSecond)
	assert.Equal(t, 98000.0, cfg.Baseline.DefaultUSD)
	assert.Equal(t, time.Minute, cfg.Report.Interval)
	assert.Equal(t, "coingecko", cfg.Crypto.Vendor)
	assert.Contains(t, cfg.History.DSN, "@ch:9000/nerkh")
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "ten")
	t.Setenv("X_FLOAT", "n/a")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.Equal(t, 1.5, getEnvFloat("X_FLOAT", 1.5))
	assert.True(t, getEnvBool("X_BOOL", true))
}

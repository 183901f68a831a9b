package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "HTTP_ADDR", "MARKET_DATA_PROVIDER", "MARKET_DATA_BASE_URL", "ALPHAVANTAGE_API_KEY",
		"BENCHMARK_SYMBOL", "DATABASE_URL", "SQLITE_PATH", "REQUEST_TIMEOUT", "CACHE_REFRESH_AFTER",
		"FETCH_CONCURRENCY", "FX_RATES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderYahoo, cfg.MarketData.Provider)
	assert.Equal(t, []string{"BTC-USD", "MELI"}, cfg.Dashboard.DefaultSymbols)
	assert.Contains(t, cfg.Dashboard.SuggestedSymbols, "GGAL.BA")
	assert.Equal(t, "2024-01-01", cfg.Dashboard.DefaultStart)
	assert.Equal(t, 1000.0, cfg.Dashboard.DefaultCapital)
	assert.Equal(t, map[string]float64{"ARS": 1200}, cfg.Dashboard.FxRates)
	assert.Equal(t, "SPY", cfg.Dashboard.BenchmarkSymbol)
	assert.True(t, cfg.Dashboard.IncludeBenchmark)
	assert.False(t, cfg.UsesCache())
}

func TestLoad_YamlThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  addr: ":9000"
  request_timeout: 15s
market_data:
  provider: alpha_vantage
  api_key: from-file
dashboard:
  default_symbols: [AAPL]
  include_benchmark: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("ALPHAVANTAGE_API_KEY", "from-env")
	t.Setenv("FETCH_CONCURRENCY", "2")
	t.Setenv("SQLITE_PATH", "cache.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, ProviderAlphaVantage, cfg.MarketData.Provider)
	assert.Equal(t, "from-env", cfg.MarketData.ApiKey)
	assert.Equal(t, 2, cfg.MarketData.FetchConcurrency)
	assert.Equal(t, []string{"AAPL"}, cfg.Dashboard.DefaultSymbols)
	assert.False(t, cfg.Dashboard.IncludeBenchmark)
	assert.True(t, cfg.UsesCache())
}

func TestLoad_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_FxRatesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FX_RATES", "ars=1350, EUR=0.92")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	rate, ok := cfg.Dashboard.FxRate("ARS")
	assert.True(t, ok)
	assert.Equal(t, 1350.0, rate)
	rate, ok = cfg.Dashboard.FxRate("eur")
	assert.True(t, ok)
	assert.Equal(t, 0.92, rate)
	_, ok = cfg.Dashboard.FxRate("BRL")
	assert.False(t, ok)

	t.Setenv("FX_RATES", "ARS:1350")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	cfg.MarketData.Provider = ProviderAlphaVantage
	assert.Error(t, cfg.Validate(), "alpha vantage needs a key")

	cfg.MarketData.Provider = "bloomberg"
	assert.Error(t, cfg.Validate())

	cfg.MarketData.Provider = ProviderYahoo
	cfg.Dashboard.DefaultStart = "01/01/2024"
	assert.Error(t, cfg.Validate())

	cfg.Dashboard.DefaultStart = "2024-01-01"
	cfg.Dashboard.FxRates["EUR"] = 0
	assert.Error(t, cfg.Validate())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.MarketData.FetchConcurrency)
	assert.Len(t, cfg.Dashboard.Tips, 3)
}

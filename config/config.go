package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alpha_vantage"
)

// Config holds all application configuration.
type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Addr           string        `yaml:"addr"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	MarketData struct {
		Provider         string        `yaml:"provider"`
		BaseURL          string        `yaml:"base_url"`
		ApiKey           string        `yaml:"api_key"`
		Adjusted         bool          `yaml:"adjusted"`
		Timeout          time.Duration `yaml:"timeout"`
		FetchConcurrency int           `yaml:"fetch_concurrency"`
	} `yaml:"market_data"`

	Cache struct {
		DatabaseURL  string        `yaml:"database_url"`
		SQLitePath   string        `yaml:"sqlite_path"`
		RefreshAfter time.Duration `yaml:"refresh_after"`
	} `yaml:"cache"`

	Dashboard Dashboard `yaml:"dashboard"`
}

// Dashboard holds the values a request falls back to and the instrument suggestions.
type Dashboard struct {
	SuggestedSymbols []string `yaml:"suggested_symbols"`
	DefaultSymbols   []string `yaml:"default_symbols"`
	DefaultStart     string   `yaml:"default_start"`
	DefaultCapital   float64  `yaml:"default_capital"`
	DefaultCurrency  string   `yaml:"default_currency"`
	IncludeBenchmark bool     `yaml:"include_benchmark"`
	BenchmarkSymbol  string   `yaml:"benchmark_symbol"`
	Currencies       []string `yaml:"currencies"`
	Tips             []string `yaml:"tips"`

	// FxRates holds the units of each currency per USD used when a request leaves fxRate out
	FxRates map[string]float64 `yaml:"fx_rates"`
}

var (
	defaultSuggested  = []string{"AAPL", "MSFT", "TSLA", "MELI", "GGAL.BA", "BTC-USD", "ETH-USD", "ZC=F", "S=F"}
	defaultSelection  = []string{"BTC-USD", "MELI"}
	defaultCurrencies = []string{"USD", "ARS"}
	defaultTips       = []string{
		"Diversify to lower your risk.",
		"Compound interest is the eighth wonder of the world.",
		"Only invest what you will not need today.",
	}
)

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := newConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default is the configuration used when no file or environment is provided
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

func newConfig() *Config {
	cfg := &Config{}
	// yaml cannot tell an absent bool from false
	cfg.Dashboard.IncludeBenchmark = true
	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MARKET_DATA_PROVIDER"); v != "" {
		c.MarketData.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("MARKET_DATA_BASE_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.MarketData.ApiKey = v
	}
	if v := os.Getenv("BENCHMARK_SYMBOL"); v != "" {
		c.Dashboard.BenchmarkSymbol = strings.ToUpper(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Cache.DatabaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Cache.SQLitePath = v
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.Server.RequestTimeout = d
	}
	if v := os.Getenv("CACHE_REFRESH_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CACHE_REFRESH_AFTER %q: %w", v, err)
		}
		c.Cache.RefreshAfter = d
	}
	if v := os.Getenv("FETCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FETCH_CONCURRENCY %q: %w", v, err)
		}
		c.MarketData.FetchConcurrency = n
	}
	if v := os.Getenv("FX_RATES"); v != "" {
		rates, err := parseFxRates(v)
		if err != nil {
			return fmt.Errorf("parse FX_RATES %q: %w", v, err)
		}
		c.Dashboard.FxRates = rates
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.MarketData.Provider == "" {
		c.MarketData.Provider = ProviderYahoo
	}
	if c.MarketData.Timeout == 0 {
		c.MarketData.Timeout = 30 * time.Second
	}
	if c.MarketData.FetchConcurrency == 0 {
		c.MarketData.FetchConcurrency = 4
	}
	if c.Cache.RefreshAfter == 0 {
		c.Cache.RefreshAfter = 12 * time.Hour
	}

	d := &c.Dashboard
	if len(d.SuggestedSymbols) == 0 {
		d.SuggestedSymbols = defaultSuggested
	}
	if len(d.DefaultSymbols) == 0 {
		d.DefaultSymbols = defaultSelection
	}
	if d.DefaultStart == "" {
		d.DefaultStart = "2024-01-01"
	}
	if d.DefaultCapital == 0 {
		d.DefaultCapital = 1000
	}
	if d.DefaultCurrency == "" {
		d.DefaultCurrency = "USD"
	}
	if len(d.FxRates) == 0 {
		d.FxRates = map[string]float64{"ARS": 1200}
	}
	rates := make(map[string]float64, len(d.FxRates))
	for code, rate := range d.FxRates {
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	d.FxRates = rates
	if d.BenchmarkSymbol == "" {
		d.BenchmarkSymbol = "SPY"
	}
	if len(d.Currencies) == 0 {
		d.Currencies = defaultCurrencies
	}
	if len(d.Tips) == 0 {
		d.Tips = defaultTips
	}
}

// Validate checks the loaded values are usable.
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case ProviderYahoo:
	case ProviderAlphaVantage:
		if c.MarketData.ApiKey == "" {
			return fmt.Errorf("market_data.api_key is required for %s", ProviderAlphaVantage)
		}
	default:
		return fmt.Errorf("market_data.provider %q is not supported", c.MarketData.Provider)
	}
	if c.MarketData.FetchConcurrency < 1 {
		return fmt.Errorf("market_data.fetch_concurrency must be positive")
	}
	if c.Server.RequestTimeout < 0 || c.MarketData.Timeout < 0 || c.Cache.RefreshAfter < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if _, err := time.Parse(time.DateOnly, c.Dashboard.DefaultStart); err != nil {
		return fmt.Errorf("dashboard.default_start must be YYYY-MM-DD: %w", err)
	}
	if c.Dashboard.DefaultCapital <= 0 {
		return fmt.Errorf("dashboard.default_capital must be positive")
	}
	for currency, rate := range c.Dashboard.FxRates {
		if rate <= 0 {
			return fmt.Errorf("dashboard.fx_rates.%s must be positive", currency)
		}
	}
	return nil
}

// FxRate is the configured rate for currency, ok is false when none is set
func (d Dashboard) FxRate(currency string) (float64, bool) {
	rate, ok := d.FxRates[strings.ToUpper(strings.TrimSpace(currency))]
	return rate, ok
}

// parseFxRates reads "ARS=1200,EUR=0.92"
func parseFxRates(v string) (map[string]float64, error) {
	rates := map[string]float64{}
	for _, pair := range strings.Split(v, ",") {
		code, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, fmt.Errorf("%q is not CODE=RATE", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, err
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = f
	}
	return rates, nil
}

// UsesCache reports whether a price store is configured
func (c *Config) UsesCache() bool {
	return c.Cache.DatabaseURL != "" || c.Cache.SQLitePath != ""
}

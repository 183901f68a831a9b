package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"growth.service/api"
	av "growth.service/api/alpha_vantage"
	"growth.service/api/yahoo"
	"growth.service/config"
	r "growth.service/data/repos"
	"growth.service/logger"
)

type ServiceContext struct {
	Config     *config.Config
	MarketData api.MarketData
	Store      PriceStore

	now     func() time.Time
	pickTip func(n int) int
}

// NewServiceContext wires the provider behind the price cache when a store is given
func NewServiceContext(cfg *config.Config, md api.MarketData, store PriceStore) *ServiceContext {
	if store != nil {
		md = NewCachedMarketData(md, store, cfg.Cache.RefreshAfter)
	}

	return &ServiceContext{
		Config:     cfg,
		MarketData: md,
		Store:      store,
		now:        time.Now,
		pickTip:    rand.IntN,
	}
}

// GetMarketData builds the configured provider client
func GetMarketData(cfg *config.Config) (api.MarketData, error) {
	switch cfg.MarketData.Provider {
	case config.ProviderYahoo:
		return yahoo.GetClient(cfg.MarketData.BaseURL, cfg.MarketData.Timeout)
	case config.ProviderAlphaVantage:
		series := av.TimeSeriesDaily
		if cfg.MarketData.Adjusted {
			series = av.TimeSeriesDailyAdjusted
		}
		return av.GetClient(cfg.MarketData.BaseURL, cfg.MarketData.ApiKey, series, cfg.MarketData.Timeout)
	default:
		return nil, fmt.Errorf("market data provider %q is not supported", cfg.MarketData.Provider)
	}
}

// OpenPriceStore connects to postgres when DATABASE_URL is set, else sqlite when a path is set.
// Returns a nil store when neither is configured.
func OpenPriceStore(ctx context.Context, cfg *config.Config) (PriceStore, error) {
	log := logger.Get()

	switch {
	case cfg.Cache.DatabaseURL != "":
		pg, err := r.GetPostgresConnection(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		log.Info("price cache using postgres")
		return pg, nil
	case cfg.Cache.SQLitePath != "":
		db, err := r.GetSQLiteConnection(ctx, cfg.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Infof("price cache using sqlite at %s", cfg.Cache.SQLitePath)
		return db, nil
	default:
		log.Info("price cache disabled, every request goes to the provider")
		return nil, nil
	}
}

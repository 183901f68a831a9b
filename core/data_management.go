package core

import (
	"context"
	"time"

	"github.com/guregu/null/v6"

	"growth.service/api"
	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
	"growth.service/logger"
)

// PriceStore persists raw provider rows between requests
type PriceStore interface {
	GetMetaDataBySymbol(ctx context.Context, symbol, provider string) (*dm.TimeSeriesMetadata, error)
	GetClosesSince(ctx context.Context, symbol, provider string, start time.Time) ([]dm.ClosePoint, error)
	ReplaceCloses(ctx context.Context, md *dm.TimeSeriesMetadata, points []dm.ClosePoint) error
	Close() error
}

// CachedMarketData serves closes from a PriceStore while they are fresh and cover the
// requested start, otherwise it downloads them and replaces what the store holds.
// Store failures are logged and never fail the request.
type CachedMarketData struct {
	Provider     api.MarketData
	Store        PriceStore
	RefreshAfter time.Duration
	Now          func() time.Time
}

func NewCachedMarketData(provider api.MarketData, store PriceStore, refreshAfter time.Duration) *CachedMarketData {
	return &CachedMarketData{
		Provider:     provider,
		Store:        store,
		RefreshAfter: refreshAfter,
		Now:          time.Now,
	}
}

func (c *CachedMarketData) Name() string {
	return c.Provider.Name()
}

func (c *CachedMarketData) DailyCloses(ctx context.Context, symbol string, start time.Time) ([]dm.ClosePoint, error) {
	log := logger.Get()
	provider := c.Provider.Name()
	start = ex.DateOnly(start)

	md, err := c.Store.GetMetaDataBySymbol(ctx, symbol, provider)
	if err != nil {
		log.Warnf("error reading cache metadata for %s, going to %s: %v", symbol, provider, err)
	}

	if c.isFresh(md, start) {
		points, err := c.Store.GetClosesSince(ctx, symbol, provider, start)
		if err != nil {
			log.Warnf("error reading cached closes for %s, going to %s: %v", symbol, provider, err)
		} else if len(points) > 0 {
			log.Debugf("serving %s from cache, refreshed %s (%d rows)", symbol, md.LastRefreshed.Format(time.RFC3339), len(points))
			return points, nil
		}
	}

	points, err := c.Provider.DailyCloses(ctx, symbol, start)
	if err != nil {
		return nil, err
	}

	refreshed := &dm.TimeSeriesMetadata{
		Symbol:        symbol,
		Provider:      provider,
		FirstDate:     null.TimeFrom(start),
		LastRefreshed: c.Now().UTC(),
	}
	if err := c.Store.ReplaceCloses(ctx, refreshed, points); err != nil {
		log.Warnf("error caching %d closes for %s: %v", len(points), symbol, err)
	} else {
		log.Infof("symbol %s got %d closes from %s since %s, cached", symbol, len(points), provider, ex.FmtShort(start))
	}

	return points, nil
}

// isFresh reports whether md was refreshed within RefreshAfter and its history reaches back to start
func (c *CachedMarketData) isFresh(md *dm.TimeSeriesMetadata, start time.Time) bool {
	if md == nil || !md.FirstDate.Valid {
		return false
	}

	cutoff := c.Now().Add(-c.RefreshAfter)
	if !md.LastRefreshed.After(cutoff) {
		return false
	}

	return !md.FirstDate.Time.After(start)
}

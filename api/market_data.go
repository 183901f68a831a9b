package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
)

// ErrDataUnavailable is returned when a provider has no prices for a symbol
var ErrDataUnavailable = errors.New("market data unavailable")

// MarketData returns the daily closes of a symbol from start (inclusive) up to today.
// Points are ordered by date and stamped at midnight UTC of the trading day.
// A known symbol with nothing since start returns an empty slice, ErrDataUnavailable is for
// symbols and requests the provider cannot serve.
type MarketData interface {
	Name() string
	DailyCloses(ctx context.Context, symbol string, start time.Time) ([]dm.ClosePoint, error)
}

// FetchCloses downloads every symbol, at most limit at a time, and returns them in the requested order.
// The first failure cancels the remaining downloads.
func FetchCloses(ctx context.Context, md MarketData, symbols []string, start time.Time, limit int) ([]dm.SymbolCloses, error) {
	res := make([]dm.SymbolCloses, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 && len(symbols) > 0 {
		g.SetLimit(ex.Min(limit, len(symbols)))
	}

	for i, symbol := range symbols {
		g.Go(func() error {
			points, err := md.DailyCloses(ctx, symbol, start)
			if err != nil {
				return fmt.Errorf("error fetching %s from %s: %w", symbol, md.Name(), err)
			}
			res[i] = dm.SymbolCloses{Symbol: symbol, Points: points}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}

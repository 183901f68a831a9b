package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"growth.service/api"
	"growth.service/config"
	dm "growth.service/data/models"
)

var testNow = time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)

type fakeMarketData struct {
	mu     sync.Mutex
	closes map[string][]dm.ClosePoint
	calls  []string
	err    error
	block  bool // wait for the context to end
}

func (f *fakeMarketData) Name() string { return "fake" }

func (f *fakeMarketData) DailyCloses(ctx context.Context, symbol string, start time.Time) ([]dm.ClosePoint, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	points, ok := f.closes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol %s", api.ErrDataUnavailable, symbol)
	}

	res := []dm.ClosePoint{}
	for _, p := range points {
		if !p.Timestamp.Before(start) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (f *fakeMarketData) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	meta     map[string]*dm.TimeSeriesMetadata
	closes   map[string][]dm.ClosePoint
	readErr  error
	writeErr error
	replaced int
}

func newFakeStore() *fakeStore {
	return &fakeStore{meta: map[string]*dm.TimeSeriesMetadata{}, closes: map[string][]dm.ClosePoint{}}
}

func (s *fakeStore) key(symbol, provider string) string { return provider + "/" + symbol }

func (s *fakeStore) GetMetaDataBySymbol(ctx context.Context, symbol, provider string) (*dm.TimeSeriesMetadata, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.meta[s.key(symbol, provider)], nil
}

func (s *fakeStore) GetClosesSince(ctx context.Context, symbol, provider string, start time.Time) ([]dm.ClosePoint, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	res := []dm.ClosePoint{}
	for _, p := range s.closes[s.key(symbol, provider)] {
		if !p.Timestamp.Before(start) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (s *fakeStore) ReplaceCloses(ctx context.Context, md *dm.TimeSeriesMetadata, points []dm.ClosePoint) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.replaced++
	copied := *md
	s.meta[s.key(md.Symbol, md.Provider)] = &copied
	s.closes[s.key(md.Symbol, md.Provider)] = slices.Clone(points)
	return nil
}

func (s *fakeStore) Close() error { return nil }

var errStoreDown = errors.New("store down")

// dashboardFixture: MELI skips the 4th, SPY starts a day early, A and B move in lockstep,
// NULLS only has null closes and EMPTY has no rows
func dashboardFixture() *fakeMarketData {
	return &fakeMarketData{closes: map[string][]dm.ClosePoint{
		"BTC-USD": points(map[int]float64{2: 100, 3: 120, 4: 115, 5: 133.1}),
		"MELI":    points(map[int]float64{2: 50, 3: 49, 5: 45}),
		"SPY":     points(map[int]float64{1: 398, 2: 400, 3: 404, 4: 408, 5: 412}),
		"A":       points(map[int]float64{2: 100, 3: 110, 4: 105, 5: 120}),
		"B":       points(map[int]float64{2: 200, 3: 220, 4: 210, 5: 240}),
		"ONE":     points(map[int]float64{5: 10}),
		"TWO":     points(map[int]float64{4: 10, 5: 11}),
		"NULLS":   {{Timestamp: day(2)}, {Timestamp: day(3)}},
		"EMPTY":   {},
	}}
}

func newTestContext(md api.MarketData) *ServiceContext {
	sc := NewServiceContext(config.Default(), md, nil)
	sc.now = func() time.Time { return testNow }
	sc.pickTip = func(int) int { return 0 }
	return sc
}

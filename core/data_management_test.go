package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth.service/api"
	"growth.service/config"
	ex "growth.service/data/extensions"
)

func newCachedFixture() (*CachedMarketData, *fakeMarketData, *fakeStore, *time.Time) {
	provider := dashboardFixture()
	store := newFakeStore()
	now := testNow

	cached := NewCachedMarketData(provider, store, 12*time.Hour)
	cached.Now = func() time.Time { return now }
	return cached, provider, store, &now
}

func TestCachedMarketData_ServesFreshCache(t *testing.T) {
	cached, provider, store, _ := newCachedFixture()
	ctx := context.Background()

	first, err := cached.DailyCloses(ctx, "SPY", day(1))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "provider calls", 1, provider.callCount())
	ex.AssertAreEqual(t, "replaced", 1, store.replaced)

	second, err := cached.DailyCloses(ctx, "SPY", day(3))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "provider calls", 1, provider.callCount())
	ex.AssertAreEqual(t, "rows since start", 3, len(second))
	assert.Equal(t, first[2:], second)
	ex.AssertAreEqual(t, "name", "fake", cached.Name())
}

func TestCachedMarketData_RefreshesWhenStale(t *testing.T) {
	cached, provider, _, now := newCachedFixture()
	ctx := context.Background()

	_, err := cached.DailyCloses(ctx, "SPY", day(1))
	require.NoError(t, err)

	*now = now.Add(13 * time.Hour)
	_, err = cached.DailyCloses(ctx, "SPY", day(1))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "provider calls", 2, provider.callCount())
}

func TestCachedMarketData_RefreshesWhenStartIsEarlier(t *testing.T) {
	cached, provider, store, _ := newCachedFixture()
	ctx := context.Background()

	_, err := cached.DailyCloses(ctx, "SPY", day(3))
	require.NoError(t, err)

	points, err := cached.DailyCloses(ctx, "SPY", day(1))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "provider calls", 2, provider.callCount())
	ex.AssertAreEqual(t, "rows", 5, len(points))

	md := store.meta["fake/SPY"]
	require.NotNil(t, md)
	ex.AssertAreEqual(t, "first date", day(1), md.FirstDate.Time)
}

func TestCachedMarketData_StoreFailuresFallBackToProvider(t *testing.T) {
	cached, provider, store, _ := newCachedFixture()
	store.readErr = errStoreDown
	store.writeErr = errStoreDown

	points, err := cached.DailyCloses(context.Background(), "SPY", day(1))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "rows", 5, len(points))
	ex.AssertAreEqual(t, "provider calls", 1, provider.callCount())
}

func TestCachedMarketData_ProviderErrorsPropagate(t *testing.T) {
	cached, _, store, _ := newCachedFixture()

	_, err := cached.DailyCloses(context.Background(), "NOPE", day(1))
	assert.True(t, errors.Is(err, api.ErrDataUnavailable))
	ex.AssertAreEqual(t, "replaced", 0, store.replaced)
}

func TestNewServiceContext_WrapsProviderWithCache(t *testing.T) {
	store := newFakeStore()
	sc := NewServiceContext(config.Default(), dashboardFixture(), store)

	_, ok := sc.MarketData.(*CachedMarketData)
	assert.True(t, ok)

	sc = NewServiceContext(config.Default(), dashboardFixture(), nil)
	_, ok = sc.MarketData.(*CachedMarketData)
	assert.False(t, ok)
}

func TestGetMarketData(t *testing.T) {
	cfg := config.Default()

	md, err := GetMarketData(cfg)
	require.NoError(t, err)
	ex.AssertAreEqual(t, "yahoo", "yahoo", md.Name())

	cfg.MarketData.Provider = config.ProviderAlphaVantage
	cfg.MarketData.ApiKey = "key"
	md, err = GetMarketData(cfg)
	require.NoError(t, err)
	ex.AssertAreEqual(t, "alpha vantage", "alpha_vantage", md.Name())

	cfg.MarketData.Provider = "other"
	_, err = GetMarketData(cfg)
	assert.Error(t, err)
}

func TestOpenPriceStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	store, err := OpenPriceStore(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg.Cache.SQLitePath = t.TempDir() + "/cache.db"
	store, err = OpenPriceStore(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	md, err := store.GetMetaDataBySymbol(ctx, "SPY", "fake")
	require.NoError(t, err)
	assert.Nil(t, md)
}

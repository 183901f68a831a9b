package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth.service/api"
	ex "growth.service/data/extensions"
	sm "growth.service/models"
)

func TestRunDashboard_Defaults(t *testing.T) {
	md := dashboardFixture()
	sc := newTestContext(md)

	res, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{})
	require.NoError(t, err)

	ex.AssertAreEqual(t, "status", sm.StatusOk, res.Status)
	assert.Equal(t, []string{"BTC-USD", "MELI"}, res.Request.Symbols)
	assert.ElementsMatch(t, []string{"BTC-USD", "MELI", "SPY"}, md.calls)

	// summaries and risk cover the selection only
	require.Len(t, res.Summaries, 2)
	ex.AssertAreEqual(t, "top", "BTC-USD", res.Summaries[0].Symbol)
	ex.AssertInDelta(t, "btc return", 33.1, res.Summaries[0].TotalReturn, 1e-9)
	ex.AssertAreEqual(t, "btc display", "33.10%", res.Summaries[0].TotalReturnDisplay)
	ex.AssertInDelta(t, "btc terminal", 1331, res.Summaries[0].TerminalValue, 1e-9)
	ex.AssertAreEqual(t, "btc terminal display", "$1,331.00", res.Summaries[0].TerminalValueDisplay)
	ex.AssertInDelta(t, "meli return", -10, res.Summaries[1].TotalReturn, 1e-9)
	require.Len(t, res.Risk, 2)
	ex.AssertAreEqual(t, "risk order", "BTC-USD", res.Risk[0].Symbol)

	ex.AssertAreEqual(t, "top performer", "BTC-USD", res.TopPerformer.Symbol)
	ex.AssertAreEqual(t, "worst performer", "MELI", res.WorstPerformer.Symbol)
	ex.AssertAreEqual(t, "top display", "+33.10%", res.TopPerformer.Display)
	ex.AssertAreEqual(t, "worst display", "-10.00%", res.WorstPerformer.Display)
	ex.AssertAreEqual(t, "capital", "$1,000.00", res.CapitalDisplay)

	// growth carries the benchmark, flagged
	require.Len(t, res.Growth.Series, 3)
	ex.AssertAreEqual(t, "benchmark symbol", "SPY", res.Growth.Series[2].Symbol)
	assert.True(t, res.Growth.Series[2].Benchmark)
	assert.False(t, res.Growth.Series[0].Benchmark)
	for _, line := range res.Growth.Series {
		ex.AssertAreEqual(t, "first growth "+line.Symbol, 100.0, line.Values[0])
	}

	// window starts when every series has a price
	ex.AssertAreEqual(t, "window start", "2024-01-02", res.Window.Start)
	ex.AssertAreEqual(t, "window end", "2024-01-05", res.Window.End)
	ex.AssertAreEqual(t, "rows", 4, res.Window.Rows)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}, res.Growth.Dates)

	require.NotNil(t, res.Correlation)
	ex.AssertAreEqual(t, "tip", sc.Config.Dashboard.Tips[0], res.Tip)
}

func TestRunDashboard_EmptySelection(t *testing.T) {
	md := dashboardFixture()
	sc := newTestContext(md)

	res, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{}})
	require.NoError(t, err)

	ex.AssertAreEqual(t, "status", sm.StatusNoSelection, res.Status)
	assert.NotEmpty(t, res.Message)
	assert.Nil(t, res.Summaries)
	ex.AssertAreEqual(t, "fetches", 0, md.callCount())
}

func TestRunDashboard_CurrencyConversion(t *testing.T) {
	sc := newTestContext(dashboardFixture())
	off := false

	ars, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{
		Symbols: []string{"BTC-USD"}, Currency: "ARS", FxRate: 1200, IncludeBenchmark: &off,
	})
	require.NoError(t, err)
	ex.AssertInDelta(t, "ars terminal", 1331*1200, ars.Summaries[0].TerminalValue, 1e-6)
	ex.AssertAreEqual(t, "capital", sm.FormatMoney(1200000, "ARS"), ars.CapitalDisplay)

	// the rate is ignored for the base currency
	usd, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{
		Symbols: []string{"BTC-USD"}, Currency: "USD", FxRate: 1200, IncludeBenchmark: &off,
	})
	require.NoError(t, err)
	ex.AssertInDelta(t, "usd terminal", 1331, usd.Summaries[0].TerminalValue, 1e-9)
	ex.AssertAreEqual(t, "growth lines", 1, len(usd.Growth.Series))
}

func TestRunDashboard_BenchmarkAlreadySelected(t *testing.T) {
	md := dashboardFixture()
	sc := newTestContext(md)

	res, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{"spy", "MELI"}})
	require.NoError(t, err)

	ex.AssertAreEqual(t, "fetches", 2, md.callCount())
	require.Len(t, res.Summaries, 2)
	require.Len(t, res.Growth.Series, 2)
	assert.True(t, res.Growth.Series[0].Benchmark)
}

func TestRunDashboard_UnavailableSymbol(t *testing.T) {
	sc := newTestContext(dashboardFixture())

	_, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{"NOPE"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrDataUnavailable))
}

func TestRunDashboard_NoData(t *testing.T) {
	for _, symbol := range []string{"NULLS", "EMPTY"} {
		t.Run(symbol, func(t *testing.T) {
			sc := newTestContext(dashboardFixture())

			res, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{"BTC-USD", symbol}})
			require.NoError(t, err)

			ex.AssertAreEqual(t, "status", sm.StatusNoData, res.Status)
			assert.NotEmpty(t, res.Message)
			assert.Nil(t, res.Window)
			assert.Nil(t, res.Summaries)
			assert.Nil(t, res.Growth)
			assert.Empty(t, res.Tip)

			_, err = sc.ExportTable(context.Background(), sm.DashboardRequest{Symbols: []string{symbol}})
			assert.True(t, errors.Is(err, ErrInsufficientData))
		})
	}
}

func TestRunDashboard_InvalidRequest(t *testing.T) {
	md := dashboardFixture()
	sc := newTestContext(md)

	_, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{InitialCapital: -1})
	assert.True(t, errors.Is(err, sm.ErrInvalidRequest))
	ex.AssertAreEqual(t, "fetches", 0, md.callCount())
}

func TestRunDashboard_SingleRowIsInsufficient(t *testing.T) {
	sc := newTestContext(dashboardFixture())
	off := false

	_, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{"ONE"}, IncludeBenchmark: &off})
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestRunDashboard_TwoRowsHasNullVolatility(t *testing.T) {
	sc := newTestContext(dashboardFixture())
	off := false

	res, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{"TWO"}, IncludeBenchmark: &off})
	require.NoError(t, err)

	require.Len(t, res.Risk, 1)
	assert.False(t, res.Risk[0].AnnualizedVolatility.Valid)
	assert.True(t, res.Risk[0].AnnualizedReturn.Valid)
	assert.Nil(t, res.Correlation)
}

func TestRunDashboard_CorrelatedPairTip(t *testing.T) {
	sc := newTestContext(dashboardFixture())
	off := false

	res, err := sc.RunDashboard(context.Background(), sm.DashboardRequest{Symbols: []string{"A", "B"}, IncludeBenchmark: &off})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Tip, "A and B moved together"), res.Tip)
	assert.Equal(t, []string{"A", "B"}, res.Correlation.Symbols)
	ex.AssertInDelta(t, "correlation", 1, res.Correlation.Values[0][1].Float64, 1e-9)
}

func TestExportTable_IncludesBenchmark(t *testing.T) {
	sc := newTestContext(dashboardFixture())

	table, err := sc.ExportTable(context.Background(), sm.DashboardRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "MELI", "SPY"}, table.Symbols())

	_, err = sc.ExportTable(context.Background(), sm.DashboardRequest{Symbols: []string{}})
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

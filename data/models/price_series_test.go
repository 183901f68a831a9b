package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) []time.Time {
	res := make([]time.Time, n)
	for i := range n {
		res[i] = time.Date(2024, time.January, 1+i, 0, 0, 0, 0, time.UTC)
	}
	return res
}

func TestNewPriceSeries_CopiesInput(t *testing.T) {
	prices := []float64{100, 110, 121}
	ps, err := NewPriceSeries(days(3), []PriceColumn{{Symbol: "A", Prices: prices}})
	require.NoError(t, err)

	prices[0] = 1
	assert.Equal(t, 100.0, ps.Columns[0].Prices[0])
	assert.Equal(t, 3, ps.Len())
	assert.Equal(t, []string{"A"}, ps.Symbols())
}

func TestPriceSeries_ValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		dates   []time.Time
		columns []PriceColumn
	}{
		{"unordered dates", []time.Time{days(2)[1], days(2)[0]}, []PriceColumn{{Symbol: "A", Prices: []float64{1, 2}}}},
		{"duplicate dates", []time.Time{days(1)[0], days(1)[0]}, []PriceColumn{{Symbol: "A", Prices: []float64{1, 2}}}},
		{"short column", days(3), []PriceColumn{{Symbol: "A", Prices: []float64{1, 2}}}},
		{"missing value", days(2), []PriceColumn{{Symbol: "A", Prices: []float64{1, math.NaN()}}}},
		{"duplicate symbol", days(1), []PriceColumn{{Symbol: "A", Prices: []float64{1}}, {Symbol: "A", Prices: []float64{2}}}},
		{"empty symbol", days(1), []PriceColumn{{Prices: []float64{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceSeries(tt.dates, tt.columns)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSeries))
		})
	}
}

func TestPriceSeries_Select(t *testing.T) {
	ps, err := NewPriceSeries(days(2), []PriceColumn{
		{Symbol: "A", Prices: []float64{1, 2}},
		{Symbol: "SPY", Prices: []float64{3, 4}},
		{Symbol: "B", Prices: []float64{5, 6}},
	})
	require.NoError(t, err)

	sel, err := ps.Select([]string{"B", "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, sel.Symbols())
	assert.Equal(t, []float64{5, 6}, sel.Columns[0].Prices)

	_, err = ps.Select([]string{"C"})
	assert.ErrorIs(t, err, ErrInvalidSeries)
}

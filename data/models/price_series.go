package models

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

var ErrInvalidSeries = errors.New("invalid price series")

// PriceSeries is a rectangular table of closes: one row per date, one column
// per instrument. Operations never mutate the receiver.
type PriceSeries struct {
	Dates   []time.Time
	Columns []PriceColumn
}

type PriceColumn struct {
	Symbol string
	Prices []float64
}

// NewPriceSeries copies its inputs and validates the result
func NewPriceSeries(dates []time.Time, columns []PriceColumn) (PriceSeries, error) {
	ps := PriceSeries{
		Dates:   slices.Clone(dates),
		Columns: make([]PriceColumn, len(columns)),
	}
	for i, c := range columns {
		ps.Columns[i] = PriceColumn{Symbol: c.Symbol, Prices: slices.Clone(c.Prices)}
	}

	if err := ps.Validate(); err != nil {
		return PriceSeries{}, err
	}

	return ps, nil
}

func (ps PriceSeries) Len() int {
	return len(ps.Dates)
}

func (ps PriceSeries) IsEmpty() bool {
	return len(ps.Dates) == 0 || len(ps.Columns) == 0
}

func (ps PriceSeries) Symbols() []string {
	res := make([]string, len(ps.Columns))
	for i, c := range ps.Columns {
		res[i] = c.Symbol
	}
	return res
}

func (ps PriceSeries) Column(symbol string) (PriceColumn, bool) {
	for _, c := range ps.Columns {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return PriceColumn{}, false
}

// Select returns a series restricted to the given symbols, in the given order
func (ps PriceSeries) Select(symbols []string) (PriceSeries, error) {
	columns := make([]PriceColumn, 0, len(symbols))
	for _, s := range symbols {
		c, ok := ps.Column(s)
		if !ok {
			return PriceSeries{}, fmt.Errorf("%w: symbol %s is not in the series", ErrInvalidSeries, s)
		}
		columns = append(columns, c)
	}
	return NewPriceSeries(ps.Dates, columns)
}

// Validate checks dates are strictly increasing and every column is complete
func (ps PriceSeries) Validate() error {
	for i := 1; i < len(ps.Dates); i++ {
		if !ps.Dates[i].After(ps.Dates[i-1]) {
			return fmt.Errorf("%w: dates not strictly increasing at row %d", ErrInvalidSeries, i)
		}
	}

	seen := make(map[string]bool, len(ps.Columns))
	for _, c := range ps.Columns {
		if c.Symbol == "" {
			return fmt.Errorf("%w: empty symbol", ErrInvalidSeries)
		}
		if seen[c.Symbol] {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalidSeries, c.Symbol)
		}
		seen[c.Symbol] = true

		if len(c.Prices) != len(ps.Dates) {
			return fmt.Errorf("%w: column %s has %d values for %d dates", ErrInvalidSeries, c.Symbol, len(c.Prices), len(ps.Dates))
		}
		for i, p := range c.Prices {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("%w: column %s has a missing value at row %d", ErrInvalidSeries, c.Symbol, i)
			}
		}
	}

	return nil
}

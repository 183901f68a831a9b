package core

import (
	"slices"
	"time"

	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
)

// Align joins per symbol closes into one table over the union of their dates.
// Gaps are forward filled per column, then every row still missing a value (a column
// that had not started trading yet) is dropped. Columns follow order.
// A symbol without a single valid close empties the table.
func Align(series []dm.SymbolCloses, order []string) (dm.PriceSeries, error) {
	bySymbol := make(map[string]map[time.Time]float64, len(series))
	for _, s := range series {
		closes, ok := bySymbol[s.Symbol]
		if !ok {
			closes = make(map[time.Time]float64, len(s.Points))
			bySymbol[s.Symbol] = closes
		}
		for _, p := range s.Points {
			if !p.Close.Valid {
				continue
			}
			closes[ex.DateOnly(p.Timestamp)] = p.Close.Float64
		}
	}

	// a column with no close at all leaves no complete row
	for _, symbol := range order {
		if len(bySymbol[symbol]) == 0 {
			return emptySeries(order)
		}
	}

	dateSet := make(map[time.Time]bool)
	for _, symbol := range order {
		for d := range bySymbol[symbol] {
			dateSet[d] = true
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	// forward fill, a row is complete once every column has seen a close
	filled := make([][]float64, len(order))
	complete := make([]bool, len(dates))
	for i := range complete {
		complete[i] = true
	}

	for j, symbol := range order {
		closes := bySymbol[symbol]
		values := make([]float64, len(dates))
		var last float64
		seen := false
		for i, d := range dates {
			if v, ok := closes[d]; ok {
				last, seen = v, true
			}
			if !seen {
				complete[i] = false
				continue
			}
			values[i] = last
		}
		filled[j] = values
	}

	keptDates := make([]time.Time, 0, len(dates))
	columns := make([]dm.PriceColumn, len(order))
	for j, symbol := range order {
		columns[j] = dm.PriceColumn{Symbol: symbol, Prices: make([]float64, 0, len(dates))}
	}

	for i, d := range dates {
		if !complete[i] {
			continue
		}
		keptDates = append(keptDates, d)
		for j := range order {
			columns[j].Prices = append(columns[j].Prices, filled[j][i])
		}
	}

	return dm.NewPriceSeries(keptDates, columns)
}

func emptySeries(order []string) (dm.PriceSeries, error) {
	columns := ex.Map(order, func(symbol string) dm.PriceColumn { return dm.PriceColumn{Symbol: symbol} })
	return dm.NewPriceSeries(nil, columns)
}

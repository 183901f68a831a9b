package models

// ReturnSummary is the buy and hold outcome of one asset over the aligned window.
// TotalReturn is in percent, TerminalValue in the display currency.
type ReturnSummary struct {
	Symbol        string
	StartPrice    float64
	EndPrice      float64
	TotalReturn   float64
	TerminalValue float64
}

// RiskStats holds annualized log return figures as fractions (0.12 is 12%).
// AnnualizedVolatility is NaN when only one return exists.
type RiskStats struct {
	Symbol               string
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	MaxDrawdown          float64
}

// CorrelationMatrix is symmetric with Symbols labelling both axes
type CorrelationMatrix struct {
	Symbols []string
	Values  [][]float64
}

func (c CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, s := range c.Symbols {
		if s == a {
			i = k
		}
		if s == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.Values[i][j], true
}

package models

import "growth.service/config"

// InstrumentsResource lists what a client can offer in its selection widgets.
// Everything comes from the dashboard config so the client and the defaults never drift apart.
type InstrumentsResource struct {
	Suggested        []string `json:"suggested"`
	DefaultSymbols   []string `json:"defaultSymbols"`
	DefaultStart     string   `json:"defaultStart"`
	DefaultCapital   float64  `json:"defaultCapital"`
	DefaultCurrency  string   `json:"defaultCurrency"`
	IncludeBenchmark bool     `json:"includeBenchmark"`
	BenchmarkSymbol  string   `json:"benchmarkSymbol"`
	Currencies       []string `json:"currencies"`

	FxRates map[string]float64 `json:"fxRates"`
}

func GetInstrumentsResource(d config.Dashboard) InstrumentsResource {
	return InstrumentsResource{
		Suggested:        d.SuggestedSymbols,
		DefaultSymbols:   d.DefaultSymbols,
		DefaultStart:     d.DefaultStart,
		DefaultCapital:   d.DefaultCapital,
		DefaultCurrency:  d.DefaultCurrency,
		IncludeBenchmark: d.IncludeBenchmark,
		BenchmarkSymbol:  d.BenchmarkSymbol,
		Currencies:       d.Currencies,
		FxRates:          d.FxRates,
	}
}

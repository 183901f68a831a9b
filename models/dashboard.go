package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/guregu/null/v6"

	"growth.service/config"
	ex "growth.service/data/extensions"
)

const BaseCurrency = "USD"

var ErrInvalidRequest = errors.New("invalid request")

var symbolRegex = regexp.MustCompile(`^[A-Z0-9.\-=^]{1,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("iso4217", func(fl validator.FieldLevel) bool {
		return IsKnownCurrency(fl.Field().String())
	})
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return symbolRegex.MatchString(fl.Field().String())
	})
	return v
}

// DashboardRequest is the configuration of one dashboard render.
// A nil Symbols means "not provided" and takes the defaults, an empty one is an empty selection.
type DashboardRequest struct {
	Symbols          []string `json:"symbols" validate:"max=25,dive,ticker"`
	StartDate        string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	InitialCapital   float64  `json:"initialCapital" validate:"gt=0,lte=1000000000000"`
	Currency         string   `json:"currency" validate:"required,iso4217"`
	FxRate           float64  `json:"fxRate" validate:"gt=0"`
	IncludeBenchmark *bool    `json:"includeBenchmark,omitempty"`
}

// ApplyDefaults fills every field the caller left out
func (r *DashboardRequest) ApplyDefaults(d config.Dashboard) {
	if r.Symbols == nil {
		r.Symbols = append([]string{}, d.DefaultSymbols...)
	}
	if r.StartDate == "" {
		r.StartDate = d.DefaultStart
	}
	if r.InitialCapital == 0 {
		r.InitialCapital = d.DefaultCapital
	}
	if r.Currency == "" {
		r.Currency = d.DefaultCurrency
	}
	if r.FxRate == 0 {
		if ex.AreEqual(strings.TrimSpace(r.Currency), BaseCurrency) {
			r.FxRate = 1
		} else if rate, ok := d.FxRate(r.Currency); ok {
			r.FxRate = rate
		}
	}
	if r.IncludeBenchmark == nil {
		include := d.IncludeBenchmark
		r.IncludeBenchmark = &include
	}
}

// Normalize trims and upper-cases symbols and the currency, dropping blanks and duplicates
func (r *DashboardRequest) Normalize() {
	if r.Symbols != nil {
		symbols := ex.Map(r.Symbols, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })
		symbols = ex.FilterMultiple(symbols, func(s string) bool { return s != "" })
		r.Symbols = append([]string{}, ex.Distinct(symbols)...)
	}
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Validate checks field rules and that the start date is not in the future relative to now
func (r *DashboardRequest) Validate(now time.Time) error {
	if r.FxRate == 0 {
		return fmt.Errorf("%w: fxRate is required for %s, no default rate is configured", ErrInvalidRequest, r.Currency)
	}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if r.Start().After(now) {
		return fmt.Errorf("%w: startDate %s is in the future", ErrInvalidRequest, r.StartDate)
	}

	return nil
}

// Start is the parsed start date, zero when StartDate is malformed
func (r *DashboardRequest) Start() time.Time {
	t, _ := time.Parse(time.DateOnly, r.StartDate)
	return t
}

// Benchmark reports whether the benchmark should be downloaded alongside the selection
func (r *DashboardRequest) Benchmark() bool {
	return r.IncludeBenchmark != nil && *r.IncludeBenchmark
}

// FxMultiplier is the rate applied to capital and terminal values, 1 for the base currency
func (r *DashboardRequest) FxMultiplier() float64 {
	if ex.AreEqual(r.Currency, BaseCurrency) {
		return 1
	}
	return r.FxRate
}

type DashboardStatus string

const (
	StatusOk          DashboardStatus = "ok"
	StatusNoSelection DashboardStatus = "no_selection"
	StatusNoData      DashboardStatus = "no_data"
)

type DashboardResponse struct {
	Status         DashboardStatus  `json:"status"`
	Message        string           `json:"message,omitempty"`
	Request        DashboardRequest `json:"request"`
	Window         *DateWindow      `json:"window,omitempty"`
	CapitalDisplay string           `json:"capitalDisplay,omitempty"`
	TopPerformer   *Performer       `json:"topPerformer,omitempty"`
	WorstPerformer *Performer       `json:"worstPerformer,omitempty"`
	Summaries      []SummaryView    `json:"summaries,omitempty"`
	Growth         *GrowthSeries    `json:"growth,omitempty"`
	Risk           []RiskView       `json:"risk,omitempty"`
	Correlation    *CorrelationView `json:"correlation,omitempty"`
	Tip            string           `json:"tip,omitempty"`
}

// DateWindow is the span actually covered once every series is aligned
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Rows  int    `json:"rows"`
}

type Performer struct {
	Symbol      string  `json:"symbol"`
	TotalReturn float64 `json:"totalReturn"`
	Display     string  `json:"display"`
}

type SummaryView struct {
	Symbol               string  `json:"symbol"`
	StartPrice           float64 `json:"startPrice"`
	EndPrice             float64 `json:"endPrice"`
	TotalReturn          float64 `json:"totalReturn"`
	TotalReturnDisplay   string  `json:"totalReturnDisplay"`
	TerminalValue        float64 `json:"terminalValue"`
	TerminalValueDisplay string  `json:"terminalValueDisplay"`
}

type RiskView struct {
	Symbol                  string      `json:"symbol"`
	AnnualizedReturn        null.Float  `json:"annualizedReturn"`
	AnnualizedVolatility    null.Float  `json:"annualizedVolatility"`
	MaxDrawdown             float64     `json:"maxDrawdown"`
	AnnualizedReturnDisplay null.String `json:"annualizedReturnDisplay"`
	VolatilityDisplay       null.String `json:"volatilityDisplay"`
}

type GrowthSeries struct {
	Dates  []string     `json:"dates"`
	Series []GrowthLine `json:"series"`
}

type GrowthLine struct {
	Symbol    string    `json:"symbol"`
	Benchmark bool      `json:"benchmark"`
	Values    []float64 `json:"values"`
}

type CorrelationView struct {
	Symbols []string       `json:"symbols"`
	Values  [][]null.Float `json:"values"`
}

func NewSummaryView(s ReturnSummary, currency string) SummaryView {
	return SummaryView{
		Symbol:               s.Symbol,
		StartPrice:           s.StartPrice,
		EndPrice:             s.EndPrice,
		TotalReturn:          s.TotalReturn,
		TotalReturnDisplay:   FormatPercent(s.TotalReturn),
		TerminalValue:        s.TerminalValue,
		TerminalValueDisplay: FormatMoney(s.TerminalValue, currency),
	}
}

// NewPerformer signs the display, gains read "+12.00%"
func NewPerformer(s ReturnSummary) *Performer {
	display := FormatPercent(s.TotalReturn)
	if s.TotalReturn > 0 && display != "" {
		display = "+" + display
	}

	return &Performer{
		Symbol:      s.Symbol,
		TotalReturn: s.TotalReturn,
		Display:     display,
	}
}

// NewRiskView surfaces undefined figures as null instead of a misleading number
func NewRiskView(r RiskStats) RiskView {
	return RiskView{
		Symbol:                  r.Symbol,
		AnnualizedReturn:        NullableFloat(r.AnnualizedReturn),
		AnnualizedVolatility:    NullableFloat(r.AnnualizedVolatility),
		MaxDrawdown:             r.MaxDrawdown,
		AnnualizedReturnDisplay: nullPercent(r.AnnualizedReturn),
		VolatilityDisplay:       nullPercent(r.AnnualizedVolatility),
	}
}

func nullPercent(f float64) null.String {
	s := FractionToPercent(f)
	return null.NewString(s, s != "")
}

func NewCorrelationView(c CorrelationMatrix) *CorrelationView {
	values := make([][]null.Float, len(c.Values))
	for i, row := range c.Values {
		values[i] = make([]null.Float, len(row))
		for j, v := range row {
			values[i][j] = NullableFloat(v)
		}
	}
	return &CorrelationView{Symbols: c.Symbols, Values: values}
}

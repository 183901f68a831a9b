package core

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
	sm "growth.service/models"
)

// TradingDaysPerYear annualizes daily figures, applied to every instrument (crypto included)
const TradingDaysPerYear = 252

var ErrInsufficientData = errors.New("insufficient data")

// ComputeSummary ranks every column by total return, best first. Ties keep column order.
func ComputeSummary(prices dm.PriceSeries, initialCapital, fxRate float64) ([]sm.ReturnSummary, error) {
	if err := requireRows(prices, 2); err != nil {
		return nil, err
	}

	last := prices.Len() - 1
	res := make([]sm.ReturnSummary, len(prices.Columns))
	for i, c := range prices.Columns {
		if err := requirePositive(c); err != nil {
			return nil, err
		}

		startPrice, endPrice := c.Prices[0], c.Prices[last]
		growth := endPrice / startPrice

		res[i] = sm.ReturnSummary{
			Symbol:        c.Symbol,
			StartPrice:    startPrice,
			EndPrice:      endPrice,
			TotalReturn:   (growth - 1) * 100,
			TerminalValue: growth * initialCapital * fxRate,
		}
	}

	slices.SortStableFunc(res, func(a, b sm.ReturnSummary) int {
		return cmp.Compare(b.TotalReturn, a.TotalReturn)
	})

	return res, nil
}

// NormalizeGrowth rebases every column to 100 on the first date
func NormalizeGrowth(prices dm.PriceSeries) (dm.PriceSeries, error) {
	if err := requireRows(prices, 1); err != nil {
		return dm.PriceSeries{}, err
	}

	columns := make([]dm.PriceColumn, len(prices.Columns))
	for i, c := range prices.Columns {
		if err := requirePositive(c); err != nil {
			return dm.PriceSeries{}, err
		}

		base := c.Prices[0]
		values := make([]float64, len(c.Prices))
		values[0] = 100
		for j := 1; j < len(c.Prices); j++ {
			values[j] = c.Prices[j] / base * 100
		}
		columns[i] = dm.PriceColumn{Symbol: c.Symbol, Prices: values}
	}

	return dm.NewPriceSeries(prices.Dates, columns)
}

// ComputeRiskStats annualizes the mean and sample std dev of daily log returns, in column order.
// With only two rows the std dev of a single return is undefined and left as NaN.
func ComputeRiskStats(prices dm.PriceSeries) ([]sm.RiskStats, error) {
	if err := requireRows(prices, 2); err != nil {
		return nil, err
	}

	res := make([]sm.RiskStats, len(prices.Columns))
	for i, c := range prices.Columns {
		if err := requirePositive(c); err != nil {
			return nil, err
		}

		returns := LogReturns(c.Prices)

		volatility := math.NaN()
		if len(returns) > 1 {
			volatility = stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
		}

		res[i] = sm.RiskStats{
			Symbol:               c.Symbol,
			AnnualizedReturn:     stat.Mean(returns, nil) * TradingDaysPerYear,
			AnnualizedVolatility: volatility,
			MaxDrawdown:          MaxDrawdown(c.Prices),
		}
	}

	return res, nil
}

// ComputeCorrelation is the pearson correlation of daily log returns between every pair of columns.
// A constant column has no variance so its row and column are NaN.
func ComputeCorrelation(prices dm.PriceSeries) (sm.CorrelationMatrix, error) {
	if err := requireRows(prices, 3); err != nil {
		return sm.CorrelationMatrix{}, err
	}

	returns := make([][]float64, len(prices.Columns))
	for i, c := range prices.Columns {
		if err := requirePositive(c); err != nil {
			return sm.CorrelationMatrix{}, err
		}
		returns[i] = LogReturns(c.Prices)
	}

	corr := GetCorrelationMatrix(GetCovarianceMatrix(returns))

	n := len(returns)
	values := make([][]float64, n)
	for i := range n {
		values[i] = make([]float64, n)
		for j := range n {
			values[i][j] = corr.At(i, j)
		}
	}

	return sm.CorrelationMatrix{Symbols: prices.Symbols(), Values: values}, nil
}

// LogReturns returns ln(p[t]/p[t-1]), one element shorter than prices
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	res := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		res[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return res
}

// MaxDrawdown is the largest peak to trough fall as a fraction of the peak
func MaxDrawdown(prices []float64) float64 {
	var maxDrawdown, peak float64
	for _, p := range prices {
		if p > peak {
			peak = p
		}

		if peak == 0 {
			continue
		}

		drawdown := (peak - p) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

func GetCovarianceMatrix[T ex.Number](data [][]T) *mat.SymDense {
	returnMatrix := ArrToMatrix(data)
	covMatrix := mat.NewSymDense(len(data), nil)
	stat.CovarianceMatrix(covMatrix, returnMatrix, nil)
	return covMatrix
}

// GetCorrelationMatrix builds a correlation matrix from a covariance matrix so diagonal is 1.
// corr_ij = cov_ij / sqrt(cov_ii*cov_jj)
func GetCorrelationMatrix(covMatrix *mat.SymDense) *mat.SymDense {
	n := covMatrix.SymmetricDim()
	corrMatrix := mat.NewSymDense(n, nil)

	for i := range n {
		for j := range i + 1 {
			corr := covMatrix.At(i, j) / math.Sqrt(covMatrix.At(i, i)*covMatrix.At(j, j))
			corrMatrix.SetSym(i, j, corr)
		}
	}

	return corrMatrix
}

// ArrToMatrix lays each inner slice out as a column
func ArrToMatrix[T ex.Number](data [][]T) *mat.Dense {
	nSymbols := len(data)
	nObservations := len(data[0])
	res := mat.NewDense(nObservations, nSymbols, nil)
	for j, col := range data {
		for i, row := range col {
			res.Set(i, j, float64(row))
		}
	}
	return res
}

func requireRows(prices dm.PriceSeries, n int) error {
	if len(prices.Columns) == 0 {
		return fmt.Errorf("%w: series has no columns", ErrInsufficientData)
	}
	if prices.Len() < n {
		return fmt.Errorf("%w: need at least %d rows, got %d", ErrInsufficientData, n, prices.Len())
	}
	return nil
}

func requirePositive(c dm.PriceColumn) error {
	for i, p := range c.Prices {
		if p <= 0 {
			return fmt.Errorf("%w: %s has a non positive price at row %d", dm.ErrInvalidSeries, c.Symbol, i)
		}
	}
	return nil
}

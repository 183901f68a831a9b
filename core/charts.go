package core

import (
	"bytes"
	"fmt"
	"math"

	charts "github.com/vicanso/go-charts/v2"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
	sm "growth.service/models"
)

const (
	chartWidth  = 1000
	chartHeight = 600

	// every selectable symbol plus the benchmark
	maxGrowthSeries = 26
	growthTheme     = "growth-dark"
)

var (
	chartBackground = drawing.ColorFromHex("000000")
	chartForeground = drawing.ColorFromHex("FFFFFF")
	dotColor        = drawing.ColorFromHex("00D4FF")

	// no gold in here, gold is the benchmark's
	lineColors = []charts.Color{
		drawing.ColorFromHex("5470c6"),
		drawing.ColorFromHex("91cc75"),
		drawing.ColorFromHex("ee6666"),
		drawing.ColorFromHex("73c0de"),
		drawing.ColorFromHex("3ba272"),
		drawing.ColorFromHex("fc8452"),
		drawing.ColorFromHex("9a60b4"),
		drawing.ColorFromHex("ea7ccc"),
	}
	benchmarkColor = drawing.ColorFromHex("FFD700")
	benchmarkDash  = []float64{6, 4}
)

// go-charts colors series by index from a named palette, so the benchmark (always drawn last)
// gets one theme per series count whose last color is gold. Themes are registered here once,
// the palette map is not safe for writes while charts render.
func init() {
	charts.AddTheme(growthTheme, growthThemeOption(lineColors))
	for n := 1; n <= maxGrowthSeries; n++ {
		colors := make([]charts.Color, n)
		for i := range n - 1 {
			colors[i] = lineColors[i%len(lineColors)]
		}
		colors[n-1] = benchmarkColor
		charts.AddTheme(benchmarkTheme(n), growthThemeOption(colors))
	}
}

func growthThemeOption(colors []charts.Color) charts.ThemeOption {
	return charts.ThemeOption{
		IsDarkMode:         true,
		AxisStrokeColor:    drawing.ColorFromHex("b9b8ce"),
		AxisSplitLineColor: drawing.ColorFromHex("484753"),
		BackgroundColor:    drawing.ColorFromHex("100c2a"),
		TextColor:          drawing.ColorFromHex("eeeeee"),
		SeriesColors:       colors,
	}
}

func benchmarkTheme(n int) string {
	return fmt.Sprintf("%s-benchmark-%d", growthTheme, n)
}

// RenderGrowthChart draws one line per column of a normalized series, the benchmark listed last
// as a dashed gold line.
func RenderGrowthChart(growth dm.PriceSeries, benchmark string) ([]byte, error) {
	if growth.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to chart", ErrInsufficientData)
	}

	values := make([][]float64, 0, len(growth.Columns))
	names := make([]string, 0, len(growth.Columns))
	var benchmarkColumn *dm.PriceColumn
	for _, c := range growth.Columns {
		if benchmark != "" && c.Symbol == benchmark {
			benchmarkColumn = &c
			continue
		}
		values = append(values, c.Prices)
		names = append(names, c.Symbol)
	}
	if benchmarkColumn != nil {
		values = append(values, benchmarkColumn.Prices)
		names = append(names, benchmarkColumn.Symbol+" (benchmark)")
	}

	xLabels := ex.Map(growth.Dates, ex.FmtShort)

	// y range with padding
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		for _, p := range v {
			minVal = math.Min(minVal, p)
			maxVal = math.Max(maxVal, p)
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = max(len(xLabels)/3, 1)
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	theme := growthTheme
	if benchmarkColumn != nil {
		seriesList[len(seriesList)-1].Style.StrokeDashArray = benchmarkDash
		if len(seriesList) <= maxGrowthSeries {
			theme = benchmarkTheme(len(seriesList))
		}
	}

	p, err := charts.Render(
		charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Comparative growth (start = 100)"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(theme),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render growth chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate growth chart bytes: %w", err)
	}

	return buf, nil
}

// RenderRiskChart plots annualized volatility (x) against annualized return (y), both in percent.
// Assets without a defined volatility are left out.
func RenderRiskChart(stats []sm.RiskStats) ([]byte, error) {
	xs := make([]float64, 0, len(stats))
	ys := make([]float64, 0, len(stats))
	labels := make([]chart.Value2, 0, len(stats))
	for _, s := range stats {
		if math.IsNaN(s.AnnualizedVolatility) || math.IsNaN(s.AnnualizedReturn) {
			continue
		}
		x, y := s.AnnualizedVolatility*100, s.AnnualizedReturn*100
		xs = append(xs, x)
		ys = append(ys, y)
		labels = append(labels, chart.Value2{XValue: x, YValue: y, Label: s.Symbol})
	}

	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no asset has a defined volatility", ErrInsufficientData)
	}

	xMin, xMax := paddedRange(xs)
	yMin, yMax := paddedRange(ys)

	axisStyle := chart.Style{FontColor: chartForeground, StrokeColor: chartForeground}

	graph := chart.Chart{
		Title:      "Risk vs return",
		TitleStyle: chart.Style{FontColor: chartForeground},
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{FillColor: chartBackground, Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Canvas:     chart.Style{FillColor: chartBackground},
		XAxis: chart.XAxis{
			Name:      "Volatility (annualized %)",
			NameStyle: axisStyle,
			Style:     axisStyle,
			Range:     &chart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:      "Return (annualized %)",
			NameStyle: axisStyle,
			Style:     axisStyle,
			Range:     &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    8,
					DotColor:    dotColor,
				},
				XValues: xs,
				YValues: ys,
			},
			chart.AnnotationSeries{
				Annotations: labels,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render risk chart: %w", err)
	}

	return buf.Bytes(), nil
}

// paddedRange never returns an empty range, go-chart refuses to draw one
func paddedRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	padding := (hi - lo) * 0.1
	if padding == 0 {
		padding = math.Max(math.Abs(hi)*0.1, 1)
	}
	return lo - padding, hi + padding
}

package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"growth.service/api"
	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
	"growth.service/logger"
	sm "growth.service/models"
)

const (
	noSelectionMessage = "Pick at least one instrument to compare."
	noDataMessage      = "No prices were returned for the selected instruments and start date."

	// pairs moving together at least this much get a diversification tip
	highCorrelation = 0.8
)

// preparedRun is one request fetched and aligned, before anything is computed
type preparedRun struct {
	request   sm.DashboardRequest
	status    sm.DashboardStatus
	message   string
	prices    dm.PriceSeries // selection first, then the benchmark when it was added
	benchmark string         // empty when the benchmark is off
}

// prepare applies defaults, validates, then fetches and aligns every symbol the request needs.
// An empty selection or an empty table is a status, not an error.
func (sc *ServiceContext) prepare(ctx context.Context, req sm.DashboardRequest) (*preparedRun, error) {
	start := time.Now()
	log := logger.Get()

	req.ApplyDefaults(sc.Config.Dashboard)
	req.Normalize()
	if err := req.Validate(sc.now()); err != nil {
		return nil, err
	}

	run := &preparedRun{request: req}
	if len(req.Symbols) == 0 {
		run.status = sm.StatusNoSelection
		run.message = noSelectionMessage
		return run, nil
	}

	download := slices.Clone(req.Symbols)
	if req.Benchmark() {
		run.benchmark = sc.Config.Dashboard.BenchmarkSymbol
		if !slices.Contains(download, run.benchmark) {
			download = append(download, run.benchmark)
		}
	}

	log.Infof("Fetching %v since %s from %s (time: %v)", download, req.StartDate, sc.MarketData.Name(), time.Since(start))
	closes, err := api.FetchCloses(ctx, sc.MarketData, download, req.Start(), sc.Config.MarketData.FetchConcurrency)
	if err != nil {
		log.Errorf("Error fetching %v: %v", download, err)
		return nil, err
	}

	log.Infof("Aligning %d series (time: %v)", len(closes), time.Since(start))
	prices, err := Align(closes, download)
	if err != nil {
		log.Errorf("Error aligning %v: %v", download, err)
		return nil, err
	}

	if prices.IsEmpty() {
		run.status = sm.StatusNoData
		run.message = noDataMessage
		return run, nil
	}

	run.status = sm.StatusOk
	run.prices = prices
	return run, nil
}

// selected is the aligned table restricted to the user's selection
func (run *preparedRun) selected() (dm.PriceSeries, error) {
	return run.prices.Select(run.request.Symbols)
}

// RunDashboard fetches, aligns and computes everything a dashboard render shows.
func (sc *ServiceContext) RunDashboard(ctx context.Context, req sm.DashboardRequest) (*sm.DashboardResponse, error) {
	start := time.Now()
	log := logger.Get()

	run, err := sc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &sm.DashboardResponse{
		Status:  run.status,
		Message: run.message,
		Request: run.request,
	}
	if run.status != sm.StatusOk {
		log.Infof("Dashboard finished with status %s (time: %v)", run.status, time.Since(start))
		return res, nil
	}

	req = run.request
	selected, err := run.selected()
	if err != nil {
		return nil, err
	}

	fx := req.FxMultiplier()

	log.Infof("Computing summaries for %v (time: %v)", req.Symbols, time.Since(start))
	summaries, err := ComputeSummary(selected, req.InitialCapital, fx)
	if err != nil {
		return nil, err
	}

	growth, err := NormalizeGrowth(run.prices)
	if err != nil {
		return nil, err
	}

	risk, err := ComputeRiskStats(selected)
	if err != nil {
		return nil, err
	}

	var correlation *sm.CorrelationMatrix
	if selected.Len() >= 3 {
		c, err := ComputeCorrelation(selected)
		if err != nil {
			return nil, err
		}
		correlation = &c
		res.Correlation = sm.NewCorrelationView(c)
	}

	res.Window = &sm.DateWindow{
		Start: ex.FmtShort(run.prices.Dates[0]),
		End:   ex.FmtShort(run.prices.Dates[run.prices.Len()-1]),
		Rows:  run.prices.Len(),
	}
	res.CapitalDisplay = sm.FormatMoney(req.InitialCapital*fx, req.Currency)
	res.TopPerformer = sm.NewPerformer(summaries[0])
	res.WorstPerformer = sm.NewPerformer(summaries[len(summaries)-1])
	res.Summaries = ex.Map(summaries, func(s sm.ReturnSummary) sm.SummaryView { return sm.NewSummaryView(s, req.Currency) })
	res.Risk = ex.Map(risk, sm.NewRiskView)
	res.Growth = buildGrowthSeries(growth, run.benchmark)
	res.Tip = sc.tip(correlation)

	log.Infof("Dashboard for %v completed (time: %v)", req.Symbols, time.Since(start))
	return res, nil
}

// ExportTable returns the aligned raw closes of every downloaded symbol
func (sc *ServiceContext) ExportTable(ctx context.Context, req sm.DashboardRequest) (dm.PriceSeries, error) {
	run, err := sc.prepare(ctx, req)
	if err != nil {
		return dm.PriceSeries{}, err
	}
	if run.status != sm.StatusOk {
		return dm.PriceSeries{}, fmt.Errorf("%w: %s", ErrInsufficientData, run.message)
	}
	return run.prices, nil
}

// GrowthChart renders the normalized growth of every downloaded symbol as a PNG
func (sc *ServiceContext) GrowthChart(ctx context.Context, req sm.DashboardRequest) ([]byte, error) {
	run, err := sc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if run.status != sm.StatusOk {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientData, run.message)
	}

	growth, err := NormalizeGrowth(run.prices)
	if err != nil {
		return nil, err
	}
	return RenderGrowthChart(growth, run.benchmark)
}

// RiskChart renders the risk/return scatter of the selected symbols as a PNG
func (sc *ServiceContext) RiskChart(ctx context.Context, req sm.DashboardRequest) ([]byte, error) {
	run, err := sc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if run.status != sm.StatusOk {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientData, run.message)
	}

	selected, err := run.selected()
	if err != nil {
		return nil, err
	}
	risk, err := ComputeRiskStats(selected)
	if err != nil {
		return nil, err
	}
	return RenderRiskChart(risk)
}

func buildGrowthSeries(growth dm.PriceSeries, benchmark string) *sm.GrowthSeries {
	lines := make([]sm.GrowthLine, len(growth.Columns))
	for i, c := range growth.Columns {
		lines[i] = sm.GrowthLine{
			Symbol:    c.Symbol,
			Benchmark: benchmark != "" && c.Symbol == benchmark,
			Values:    c.Prices,
		}
	}

	return &sm.GrowthSeries{
		Dates:  ex.Map(growth.Dates, ex.FmtShort),
		Series: lines,
	}
}

// tip warns about the most correlated pair when it moves together, otherwise picks a configured tip
func (sc *ServiceContext) tip(correlation *sm.CorrelationMatrix) string {
	if correlation != nil {
		best, a, b := 0.0, "", ""
		for i := range correlation.Symbols {
			for j := i + 1; j < len(correlation.Symbols); j++ {
				if v := correlation.Values[i][j]; v > best {
					best, a, b = v, correlation.Symbols[i], correlation.Symbols[j]
				}
			}
		}
		if best >= highCorrelation {
			return fmt.Sprintf("%s and %s moved together (correlation %.2f). Diversify to lower your risk.", a, b, best)
		}
	}

	tips := sc.Config.Dashboard.Tips
	if len(tips) == 0 {
		return ""
	}
	return tips[sc.pickTip(len(tips))]
}

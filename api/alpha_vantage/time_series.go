package alpha_vantage

import (
	"strings"
)

type TimeSeries uint8

// TimeSeries specifies which daily endpoint to query.
const (
	TimeSeriesDaily TimeSeries = iota
	TimeSeriesDailyAdjusted
)

func (t TimeSeries) Name() string {
	switch t {
	case TimeSeriesDaily:
		return "TimeSeriesDaily"
	case TimeSeriesDailyAdjusted:
		return "TimeSeriesDailyAdjusted"
	default:
		return ""
	}
}

func (t TimeSeries) Function() string {
	switch t {
	case TimeSeriesDaily:
		return "TIME_SERIES_DAILY"
	case TimeSeriesDailyAdjusted:
		return "TIME_SERIES_DAILY_ADJUSTED"
	default:
		return ""
	}
}

// TimeSeriesKey is the top level json key holding the rows. Both daily endpoints share it.
func (t TimeSeries) TimeSeriesKey() string {
	switch t {
	case TimeSeriesDaily, TimeSeriesDailyAdjusted:
		return "Time Series (Daily)"
	default:
		return ""
	}
}

// CloseSuffix picks the row field the close is read from
func (t TimeSeries) CloseSuffix() string {
	if t.IsAdjusted() {
		return ". adjusted close"
	}
	return ". close"
}

func (t TimeSeries) IsAdjusted() bool {
	return strings.HasSuffix(t.Function(), "_ADJUSTED")
}

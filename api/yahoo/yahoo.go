package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"growth.service/api"
	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
)

const (
	HostDefault  = "https://query1.finance.yahoo.com"
	ProviderName = "yahoo"

	chartPath = "/v8/finance/chart/"
)

// symbolAliases maps display tickers to the ones the chart endpoint knows
var symbolAliases = map[string]string{
	"SPX500": "^GSPC",
	"NDX100": "^NDX",
	"DJI30":  "^DJI",
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GmtOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []null.Float `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []null.Float `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type YahooClient struct {
	*api.Client
	now func() time.Time
}

func GetClient(baseURL string, timeout time.Duration) (*YahooClient, error) {
	if baseURL == "" {
		baseURL = HostDefault
	}

	c, err := api.ClientFactory(baseURL, "", timeout)
	if err != nil {
		return nil, err
	}

	return &YahooClient{Client: c, now: time.Now}, nil
}

func (yc *YahooClient) Name() string {
	return ProviderName
}

// ResolveSymbol returns the ticker the chart endpoint expects for symbol
func ResolveSymbol(symbol string) string {
	if alias, ok := symbolAliases[strings.ToUpper(symbol)]; ok {
		return alias
	}
	return symbol
}

// DailyCloses implements api.MarketData, preferring split and dividend adjusted closes.
func (yc *YahooClient) DailyCloses(ctx context.Context, symbol string, start time.Time) ([]dm.ClosePoint, error) {
	if yc == nil {
		panic("yahoo client has not been set.")
	}

	endpoint := yc.buildRequestPath(ResolveSymbol(symbol), start)

	response, err := yc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrDataUnavailable, err)
	}

	defer response.Body.Close()

	var body chartResponse
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		if response.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: yahoo returned status %d", api.ErrDataUnavailable, response.StatusCode)
		}
		return nil, fmt.Errorf("error unmarshaling chart response: %w", err)
	}

	if e := body.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s %s", api.ErrDataUnavailable, e.Code, e.Description)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo returned status %d", api.ErrDataUnavailable, response.StatusCode)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no chart result for %s", api.ErrDataUnavailable, symbol)
	}

	points, err := parseChartResult(body.Chart.Result[0])
	if err != nil {
		return nil, err
	}

	from := ex.DateOnly(start)
	points = ex.FilterMultiple(points, func(p dm.ClosePoint) bool { return !p.Timestamp.Before(from) })
	if points == nil {
		points = []dm.ClosePoint{}
	}

	return points, nil
}

func (yc *YahooClient) buildRequestPath(symbol string, start time.Time) *url.URL {
	endpoint := &url.URL{}
	endpoint.Path = chartPath + symbol

	query := endpoint.Query()
	query.Set("period1", strconv.FormatInt(ex.DateOnly(start).Unix(), 10))
	query.Set("period2", strconv.FormatInt(yc.now().Unix(), 10))
	query.Set("interval", "1d")
	query.Set("includeAdjustedClose", "true")
	query.Set("events", "div,splits")

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseChartResult(result chartResult) ([]dm.ClosePoint, error) {
	closes := []null.Float{}
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("error parsing chart for %s: %d timestamps but %d closes", result.Meta.Symbol, len(result.Timestamp), len(closes))
	}

	// timestamps are the session open in utc, shift to exchange time before taking the date
	offset := time.Duration(result.Meta.GmtOffset) * time.Second

	res := make([]dm.ClosePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		date := ex.DateOnly(time.Unix(ts, 0).UTC().Add(offset))

		// intraday rows for the running session can repeat the last date, a null never replaces a close
		if n := len(res); n > 0 && res[n-1].Timestamp.Equal(date) {
			if closes[i].Valid {
				res[n-1].Close = closes[i]
			}
			continue
		}

		res = append(res, dm.ClosePoint{Timestamp: date, Close: closes[i]})
	}

	return res, nil
}

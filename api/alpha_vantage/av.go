package alpha_vantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"growth.service/api"
	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
)

// public
const (
	HostDefault  = "https://www.alphavantage.co"
	ProviderName = "alpha_vantage"
)

// private
const (
	// full history, compact only returns the last 100 sessions
	defaultOutputSize = "full"
	defaultDataType   = "json"

	// api request elements
	query    = "query"
	symbol   = "symbol"
	function = "function"
)

var (
	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	// keys alpha vantage uses instead of an error status
	errorKeys = []string{"Error Message", "Note", "Information"}
)

type AlphaVantageClient struct {
	*api.Client
	Series TimeSeries
}

func GetClient(baseURL, apiKey string, series TimeSeries, timeout time.Duration) (*AlphaVantageClient, error) {
	if baseURL == "" {
		baseURL = HostDefault
	}

	c, err := api.ClientFactory(baseURL, apiKey, timeout)
	if err != nil {
		return nil, err
	}

	return &AlphaVantageClient{Client: c, Series: series}, nil
}

func (avc *AlphaVantageClient) Name() string {
	return ProviderName
}

// DailyCloses implements api.MarketData.
// https://www.alphavantage.co/documentation/#daily
func (avc *AlphaVantageClient) DailyCloses(ctx context.Context, ticker string, start time.Time) ([]dm.ClosePoint, error) {
	if avc == nil {
		panic("alpha vantage client has not been set.")
	}

	endpoint := avc.buildRequestPath(map[string]string{
		function: avc.Series.Function(),
		symbol:   ticker,
	})

	response, err := avc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrDataUnavailable, err)
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: alpha vantage returned status %d", api.ErrDataUnavailable, response.StatusCode)
	}

	raw, err := parseRawJson(response.Body)
	if err != nil {
		return nil, err
	}

	if msg, ok := parseErrorMessage(raw); ok {
		return nil, fmt.Errorf("%w: %s", api.ErrDataUnavailable, msg)
	}

	timeZone, err := parseMetaData(raw)
	if err != nil {
		return nil, err
	}

	points, err := parseTimeSeriesDataResult(raw, avc.Series, timeZone)
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

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = query

	// base parameters
	query := endpoint.Query()
	query.Set("apikey", avc.Client.ApiKey)
	query.Set("datatype", defaultDataType)
	query.Set("outputsize", defaultOutputSize)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return
}

func parseErrorMessage(raw map[string]json.RawMessage) (string, bool) {
	for _, key := range errorKeys {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			s = string(msg)
		}
		return s, true
	}
	return "", false
}

func parseMetaData(raw map[string]json.RawMessage) (*time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw["Meta Data"], &metadataElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))

	// parse time zone
	tzf := func(s string) bool { return strings.HasSuffix(s, ". Time Zone") }
	timeZoneKey, err := ex.FilterSingle(metaDataKeys, tzf)
	if err != nil {
		return nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := getTimeZone(metadataElements[timeZoneKey])
	if err != nil {
		return nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", metadataElements[timeZoneKey], err)
	}

	return timeZone, nil
}

func parseTimeSeriesDataResult(raw map[string]json.RawMessage, series TimeSeries, location *time.Location) ([]dm.ClosePoint, error) {
	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(raw[series.TimeSeriesKey()], &timeSeriesElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling time series: %w", err)
	}

	timeSeries := make([]dm.ClosePoint, 0, len(timeSeriesElements))
	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		// get timestamp
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		cf := func(s string) bool { return strings.HasSuffix(s, series.CloseSuffix()) }
		closeKey, err := ex.FilterSingle(slices.Collect(maps.Keys(timeSeriesValue)), cf)
		if err != nil {
			return nil, fmt.Errorf("error extracting close key for %s: %w", timeSeriesKey, err)
		}

		timeSeries = append(timeSeries, dm.ClosePoint{
			Timestamp: ex.DateOnly(timestamp),
			Close:     parseFloat(timeSeriesValue[closeKey]),
		})
	}

	// map order is random
	slices.SortFunc(timeSeries, func(a, b dm.ClosePoint) int { return a.Timestamp.Compare(b.Timestamp) })

	return timeSeries, nil
}

func getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = "America/New_York"
	default:
		return time.UTC, nil
	}

	res, err := time.LoadLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

func parseFloat(val string) null.Float {
	if val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}

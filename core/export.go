package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	ex "growth.service/data/extensions"
	dm "growth.service/data/models"
)

const (
	CSVFileName    = "price_report.csv"
	CSVContentType = "text/csv; charset=utf-8"
	csvDateHeader  = "Date"
)

// WriteCSV writes a Date column followed by one column per symbol, floats in shortest round trip form
func WriteCSV(w io.Writer, ps dm.PriceSeries) error {
	cw := csv.NewWriter(w)

	header := append([]string{csvDateHeader}, ps.Symbols()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	record := make([]string, len(header))
	for i, d := range ps.Dates {
		record[0] = ex.FmtShort(d)
		for j, c := range ps.Columns {
			record[j+1] = strconv.FormatFloat(c.Prices[i], 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ParseCSV reads back what WriteCSV produced
func ParseCSV(r io.Reader) (dm.PriceSeries, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return dm.PriceSeries{}, fmt.Errorf("%w: error reading csv header: %w", dm.ErrInvalidSeries, err)
	}
	if len(header) == 0 || header[0] != csvDateHeader {
		return dm.PriceSeries{}, fmt.Errorf("%w: first csv column must be %s", dm.ErrInvalidSeries, csvDateHeader)
	}

	columns := make([]dm.PriceColumn, len(header)-1)
	for j, symbol := range header[1:] {
		columns[j] = dm.PriceColumn{Symbol: symbol}
	}

	var dates []time.Time
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dm.PriceSeries{}, fmt.Errorf("%w: error reading csv line %d: %w", dm.ErrInvalidSeries, line, err)
		}

		d, err := time.Parse(time.DateOnly, record[0])
		if err != nil {
			return dm.PriceSeries{}, fmt.Errorf("%w: bad date on line %d: %w", dm.ErrInvalidSeries, line, err)
		}
		dates = append(dates, d)

		for j := range columns {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return dm.PriceSeries{}, fmt.Errorf("%w: bad value for %s on line %d: %w", dm.ErrInvalidSeries, columns[j].Symbol, line, err)
			}
			columns[j].Prices = append(columns[j].Prices, v)
		}
	}

	return dm.NewPriceSeries(dates, columns)
}

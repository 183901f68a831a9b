package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// ClosePoint is a single provider row. Close is not valid when the provider
// reports the date without a price (holidays, halted sessions).
type ClosePoint struct {
	Timestamp time.Time  `db:"timestamp"`
	Close     null.Float `db:"close"`
}

type SymbolCloses struct {
	Symbol string
	Points []ClosePoint
}

// TimeSeriesMetadata tracks what the price cache holds for a symbol
type TimeSeriesMetadata struct {
	Id            int32     `db:"id"`
	Symbol        string    `db:"symbol"`
	Provider      string    `db:"provider"`
	FirstDate     null.Time `db:"first_date"`
	LastRefreshed time.Time `db:"last_refreshed"`
}

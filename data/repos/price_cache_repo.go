package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"

	m "growth.service/data/models"
	q "growth.service/data/queries"
)

func (pg *Postgres) GetMetaDataBySymbol(ctx context.Context, symbol, provider string) (*m.TimeSeriesMetadata, error) {
	args := pgx.NamedArgs{
		"symbol":   symbol,
		"provider": provider,
	}

	res, err := Query[m.TimeSeriesMetadata](ctx, pg, q.Get(q.QueryHelper.Select.MetaDataBySymbol), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query metadata by symbol (%s): %w", symbol, err)
	}

	if len(res) == 0 {
		return nil, nil
	}

	md := res[0]
	md.LastRefreshed = md.LastRefreshed.UTC()
	if md.FirstDate.Valid {
		md.FirstDate = null.TimeFrom(md.FirstDate.Time.UTC())
	}
	return md, nil
}

func (pg *Postgres) GetClosesSince(ctx context.Context, symbol, provider string, start time.Time) ([]m.ClosePoint, error) {
	args := pgx.NamedArgs{
		"symbol":   symbol,
		"provider": provider,
		"start":    start,
	}

	res, err := Query[m.ClosePoint](ctx, pg, q.Get(q.QueryHelper.Select.ClosesSince), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query closes by symbol (%s): %w", symbol, err)
	}

	return utcClosePoints(res), nil
}

// utcClosePoints undoes pgx scanning timestamptz into the local zone, callers take the calendar
// date of each timestamp and it must be the UTC one it was stored as
func utcClosePoints(res []*m.ClosePoint) []m.ClosePoint {
	points := make([]m.ClosePoint, len(res))
	for i, v := range res {
		points[i] = *v
		points[i].Timestamp = v.Timestamp.UTC()
	}
	return points
}

// ReplaceCloses upserts the metadata row and swaps every cached close for the symbol in one transaction
func (pg *Postgres) ReplaceCloses(ctx context.Context, md *m.TimeSeriesMetadata, points []m.ClosePoint) error {
	tx, err := pg.GetTransaction(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	args := pgx.NamedArgs{
		"symbol":         md.Symbol,
		"provider":       md.Provider,
		"first_date":     md.FirstDate.Ptr(),
		"last_refreshed": md.LastRefreshed,
	}
	if err := tx.QueryRow(ctx, q.Get(q.QueryHelper.Insert.Metadata), args).Scan(&md.Id); err != nil {
		return fmt.Errorf("error upserting metadata for %s: %w", md.Symbol, err)
	}

	if _, err := tx.Exec(ctx, q.Get(q.QueryHelper.Delete.ClosesBySourceId), pgx.NamedArgs{"source_id": md.Id}); err != nil {
		return fmt.Errorf("error clearing cached closes for %s: %w", md.Symbol, err)
	}

	if len(points) > 0 {
		rows := make([][]any, len(points))
		for i, p := range points {
			rows[i] = []any{md.Id, p.Timestamp, p.Close.Ptr()}
		}

		columns := []string{"source_id", "timestamp", "close"}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"price_cache_data"}, columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("error inserting cached closes for %s: %w", md.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing closes for %s: %w", md.Symbol, err)
	}

	return nil
}

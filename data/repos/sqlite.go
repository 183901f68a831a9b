package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/guregu/null/v6"
	_ "modernc.org/sqlite"

	m "growth.service/data/models"
)

// SQLite is the zero-setup price cache, timestamps are stored as unix seconds
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// GetSQLiteConnection opens (or creates) the database file and runs migrations
func GetSQLiteConnection(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error setting WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating sqlite: %w", err)
	}

	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_cache_metadata (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol         TEXT    NOT NULL,
			provider       TEXT    NOT NULL,
			first_date     INTEGER NULL,
			last_refreshed INTEGER NOT NULL,
			UNIQUE (symbol, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS price_cache_data (
			source_id INTEGER NOT NULL REFERENCES price_cache_metadata (id) ON DELETE CASCADE,
			timestamp INTEGER NOT NULL,
			close     REAL    NULL,
			PRIMARY KEY (source_id, timestamp)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetMetaDataBySymbol(ctx context.Context, symbol, provider string) (*m.TimeSeriesMetadata, error) {
	query := `
		SELECT id, symbol, provider, first_date, last_refreshed
		FROM price_cache_metadata
		WHERE symbol = ? AND provider = ?`

	var (
		md            m.TimeSeriesMetadata
		firstDate     sql.NullInt64
		lastRefreshed int64
	)
	err := s.db.QueryRowContext(ctx, query, symbol, provider).Scan(&md.Id, &md.Symbol, &md.Provider, &firstDate, &lastRefreshed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query metadata by symbol (%s): %w", symbol, err)
	}

	if firstDate.Valid {
		md.FirstDate = null.TimeFrom(time.Unix(firstDate.Int64, 0).UTC())
	}
	md.LastRefreshed = time.Unix(lastRefreshed, 0).UTC()

	return &md, nil
}

func (s *SQLite) GetClosesSince(ctx context.Context, symbol, provider string, start time.Time) ([]m.ClosePoint, error) {
	query := `
		SELECT d.timestamp, d.close
		FROM price_cache_data d
		JOIN price_cache_metadata md ON d.source_id = md.id
		WHERE md.symbol = ? AND md.provider = ? AND d.timestamp >= ?
		ORDER BY d.timestamp`

	rows, err := s.db.QueryContext(ctx, query, symbol, provider, start.Unix())
	if err != nil {
		return nil, fmt.Errorf("unable to query closes by symbol (%s): %w", symbol, err)
	}
	defer rows.Close()

	var points []m.ClosePoint
	for rows.Next() {
		var (
			ts int64
			p  m.ClosePoint
		)
		if err := rows.Scan(&ts, &p.Close); err != nil {
			return nil, fmt.Errorf("error scanning cached close for %s: %w", symbol, err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		points = append(points, p)
	}

	return points, rows.Err()
}

func (s *SQLite) ReplaceCloses(ctx context.Context, md *m.TimeSeriesMetadata, points []m.ClosePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var firstDate sql.NullInt64
	if md.FirstDate.Valid {
		firstDate = sql.NullInt64{Int64: md.FirstDate.Time.Unix(), Valid: true}
	}

	upsert := `
		INSERT INTO price_cache_metadata (symbol, provider, first_date, last_refreshed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (symbol, provider) DO UPDATE
		SET first_date = excluded.first_date, last_refreshed = excluded.last_refreshed
		RETURNING id`
	if err := tx.QueryRowContext(ctx, upsert, md.Symbol, md.Provider, firstDate, md.LastRefreshed.Unix()).Scan(&md.Id); err != nil {
		return fmt.Errorf("error upserting metadata for %s: %w", md.Symbol, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_cache_data WHERE source_id = ?`, md.Id); err != nil {
		return fmt.Errorf("error clearing cached closes for %s: %w", md.Symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_cache_data (source_id, timestamp, close) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing close insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, md.Id, p.Timestamp.Unix(), p.Close.Ptr()); err != nil {
			return fmt.Errorf("error inserting cached close for %s: %w", md.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing closes for %s: %w", md.Symbol, err)
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-client/internal/weather"
)

const forecastTable = "forecast_days"

// SQLiteStore is the on-disk forecast cache. Each day of a record is one
// row; a city's rows are replaced in a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

var _ weather.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS forecast_days (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		city        TEXT NOT NULL,
		name        TEXT NOT NULL,
		day_date    TEXT NOT NULL,
		temp_min    REAL NOT NULL,
		temp_max    REAL NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cond        TEXT NOT NULL DEFAULT 'unknown',
		fetched_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_forecast_days_city ON forecast_days(city, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Replace deletes every row for city and inserts record's days in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, city string, record weather.ForecastRecord) error {
	del, delArgs, err := sq.Delete(forecastTable).Where(sq.Eq{"city": city}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	var (
		ins     string
		insArgs []interface{}
	)
	if len(record.Days) > 0 {
		fetchedAt := record.FetchedAt.UTC().Format(time.RFC3339Nano)
		b := sq.Insert(forecastTable).Columns(
			"city", "name", "day_date", "temp_min", "temp_max", "description", "cond", "fetched_at",
		)
		for _, d := range record.Days {
			b = b.Values(city, record.City, d.Date.UTC().Format(time.RFC3339), d.TempMin, d.TempMax,
				d.Description, string(d.Condition), fetchedAt)
		}
		ins, insArgs, err = b.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
	}

	return retryOp(ctx, defaultRetryConfig, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete %s: %w", city, err)
		}
		if ins != "" {
			if _, err := tx.ExecContext(ctx, ins, insArgs...); err != nil {
				return fmt.Errorf("insert %s: %w", city, err)
			}
		}
		return tx.Commit()
	})
}

// Read returns the record cached for city, days in stored order.
func (s *SQLiteStore) Read(ctx context.Context, city string) (weather.ForecastRecord, error) {
	query, args, err := sq.Select("name", "day_date", "temp_min", "temp_max", "description", "cond", "fetched_at").
		From(forecastTable).
		Where(sq.Eq{"city": city}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return weather.ForecastRecord{}, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return weather.ForecastRecord{}, fmt.Errorf("query %s: %w", city, err)
	}
	defer rows.Close()

	var rec weather.ForecastRecord
	for rows.Next() {
		var (
			name, date, desc, cond, fetched string
			day                             weather.DayEntry
		)
		if err := rows.Scan(&name, &date, &day.TempMin, &day.TempMax, &desc, &cond, &fetched); err != nil {
			return weather.ForecastRecord{}, fmt.Errorf("scan: %w", err)
		}
		day.Date, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return weather.ForecastRecord{}, fmt.Errorf("parse day_date: %w", err)
		}
		fetchedAt, err := time.Parse(time.RFC3339Nano, fetched)
		if err != nil {
			return weather.ForecastRecord{}, fmt.Errorf("parse fetched_at: %w", err)
		}
		day.Description = desc
		day.Condition = weather.Condition(cond)

		rec.City = name
		rec.FetchedAt = fetchedAt
		rec.Days = append(rec.Days, day)
	}
	if err := rows.Err(); err != nil {
		return weather.ForecastRecord{}, fmt.Errorf("rows iteration: %w", err)
	}

	if len(rec.Days) == 0 {
		return weather.ForecastRecord{}, ErrNotFound
	}
	return rec, nil
}

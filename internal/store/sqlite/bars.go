package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stock-signal/internal/model"
)

// LoadBars returns the stored series for ticker ascending by date, or nil.
func (d *DB) LoadBars(ctx context.Context, ticker string) ([]model.Bar, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM bars
		WHERE ticker = ?
		ORDER BY date ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			b    model.Bar
			date string
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.Date, err = time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("sqlite bad date %q for %s: %w", date, ticker, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveBars replaces the series for ticker in a single transaction.
func (d *DB) SaveBars(ctx context.Context, ticker string, bars []model.Bar) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE ticker = ?`, ticker); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite clear bars: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare bars: %w", err)
	}
	defer stmt.Close()

	for i := range bars {
		b := &bars[i]
		if _, err := stmt.ExecContext(ctx, ticker, model.Day(b.Date).Format(model.DateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar: %w", err)
		}
	}

	return tx.Commit()
}

// LatestDate returns the newest stored date for ticker; ok is false when
// there is none.
func (d *DB) LatestDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	var date sql.NullString
	err := d.db.QueryRowContext(ctx, `SELECT MAX(date) FROM bars WHERE ticker = ?`, ticker).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlite max date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(model.DateLayout, date.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlite bad date %q: %w", date.String, err)
	}
	return t, true, nil
}

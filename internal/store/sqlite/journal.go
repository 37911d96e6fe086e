package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"stock-signal/internal/model"
)

// SignalRecord is a row from the signals table.
type SignalRecord struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
	model.Signal
}

// RecordSignal appends sig to the journal under runID.
func (d *DB) RecordSignal(ctx context.Context, runID string, sig model.Signal) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO signals (run_id, ticker, name, date, close, prob_up, action, reason, limit_price, stop_loss)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		sig.Ticker,
		sig.Name,
		sig.Date,
		sig.Close,
		sig.ProbUp,
		string(sig.Action),
		sig.Reason,
		nullInt(sig.LimitPrice),
		nullInt(sig.StopLoss),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// Recent returns the last limit signals, newest first.
func (d *DB) Recent(ctx context.Context, limit int) ([]SignalRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, run_id, ticker, name, date, close, prob_up, action, reason, limit_price, stop_loss, created_at
		 FROM signals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var (
			r       SignalRecord
			action  string
			reason  sql.NullString
			limitPx sql.NullInt64
			stop    sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Ticker, &r.Name, &r.Date, &r.Close, &r.ProbUp,
			&action, &reason, &limitPx, &stop, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		r.Action = model.Action(action)
		r.Reason = reason.String
		r.LimitPrice = ptrInt(limitPx)
		r.StopLoss = ptrInt(stop)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

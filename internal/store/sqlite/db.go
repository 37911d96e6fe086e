// Package sqlite persists daily bars and produced signals in a single
// SQLite database (WAL mode, single writer connection).
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB owns the connection shared by the bar repository and the signal journal.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; the job is batch-oriented.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &DB{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			ticker  TEXT NOT NULL,
			date    TEXT NOT NULL,
			open    REAL NOT NULL,
			high    REAL NOT NULL,
			low     REAL NOT NULL,
			close   REAL NOT NULL,
			volume  REAL NOT NULL,
			PRIMARY KEY (ticker, date)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT    NOT NULL,
			ticker      TEXT    NOT NULL,
			name        TEXT    NOT NULL,
			date        TEXT    NOT NULL,
			close       REAL    NOT NULL,
			prob_up     REAL    NOT NULL,
			action      TEXT    NOT NULL,
			reason      TEXT,
			limit_price INTEGER,
			stop_loss   INTEGER,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_signals_ticker ON signals(ticker, date);
		CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id);
	`)
	return err
}

// Ping checks the connection.
func (d *DB) Ping() error { return d.db.Ping() }

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Package parquet stores each ticker's daily series as <dir>/<ticker>.parquet
// and exports feature tables for offline analysis.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	goparquet "github.com/parquet-go/parquet-go"

	"stock-signal/internal/model"
)

// ErrBadTicker is returned for codes that cannot be used as a file name.
var ErrBadTicker = errors.New("parquet: ticker is not a valid file name")

type barRow struct {
	Date   string  `parquet:"date"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// Store is a directory of per-ticker Parquet files.
type Store struct {
	dir string
}

// New creates dir if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("parquet mkdir %s: %w", dir, err)
	}
	log.Printf("[parquet] bar store at %s", dir)
	return &Store{dir: dir}, nil
}

// Path returns the file backing ticker.
func (s *Store) Path(ticker string) (string, error) {
	if ticker == "" || ticker != filepath.Base(ticker) || strings.HasPrefix(ticker, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadTicker, ticker)
	}
	return filepath.Join(s.dir, ticker+".parquet"), nil
}

// LoadBars reads the series for ticker; nil, nil when no file exists.
func (s *Store) LoadBars(ctx context.Context, ticker string) ([]model.Bar, error) {
	path, err := s.Path(ticker)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := goparquet.ReadFile[barRow](path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parquet read %s: %w", path, err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("parquet bad date %q in %s: %w", r.Date, path, err)
		}
		bars = append(bars, model.Bar{Date: d, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume})
	}
	model.SortBars(bars)
	return bars, nil
}

// SaveBars replaces the file for ticker atomically.
func (s *Store) SaveBars(ctx context.Context, ticker string, bars []model.Bar) error {
	path, err := s.Path(ticker)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow{
			Date:   model.Day(b.Date).Format(model.DateLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return writeAtomic(path, func(w io.Writer) error {
		return goparquet.Write(w, rows)
	})
}

// Close is a no-op; files are closed after each operation.
func (s *Store) Close() error { return nil }

// writeAtomic writes to a temp file in the target directory and renames it
// over path once fully flushed.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("parquet temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("parquet write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("parquet sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("parquet close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("parquet rename %s: %w", path, err)
	}
	return nil
}

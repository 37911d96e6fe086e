package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the signal pipeline from concrete storage and
// delivery implementations (SQLite, Parquet, Redis, HTTP APIs).

// BarRepository persists the full daily series of each ticker.
type BarRepository interface {
	// LoadBars returns the stored series ascending by date.
	// Returns nil, nil if the ticker has no local history.
	LoadBars(ctx context.Context, ticker string) ([]Bar, error)

	// SaveBars replaces the stored series for ticker.
	SaveBars(ctx context.Context, ticker string, bars []Bar) error

	// Close releases underlying resources.
	Close() error
}

// QuoteFetcher downloads daily bars from a remote quote source.
type QuoteFetcher interface {
	// Name identifies the source in logs.
	Name() string

	// FetchDaily returns the available daily history for ticker, ascending.
	FetchDaily(ctx context.Context, ticker string) ([]Bar, error)
}

// SignalJournal appends produced signals to a persistent history.
type SignalJournal interface {
	RecordSignal(ctx context.Context, runID string, sig Signal) error
}

// SignalPublisher receives every signal produced in one run.
type SignalPublisher interface {
	Publish(ctx context.Context, signals []Signal) error
}

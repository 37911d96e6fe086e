// Package bars keeps each ticker's local daily series in sync with a remote
// quote source.
package bars

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stock-signal/internal/model"
)

var (
	// ErrFetch wraps quote source failures. The local series is untouched.
	ErrFetch = errors.New("bars: fetch failed")
	// ErrNoData is returned when the source answered with zero bars.
	ErrNoData = errors.New("bars: source returned no bars")
	// ErrPersist wraps repository write failures.
	ErrPersist = errors.New("bars: persist failed")
)

// Store combines a repository and a fetcher.
type Store struct {
	repo    model.BarRepository
	fetcher model.QuoteFetcher
	log     *slog.Logger
}

// New creates a Store. logger may be nil.
func New(repo model.BarRepository, fetcher model.QuoteFetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:    repo,
		fetcher: fetcher,
		log:     logger.With(slog.String("component", "bars"), slog.String("source", fetcher.Name())),
	}
}

// Load returns the local series ascending with distinct dates, or nil when
// the ticker has no history.
func (s *Store) Load(ctx context.Context, ticker string) ([]model.Bar, error) {
	bars, err := s.repo.LoadBars(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("bars: load %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return model.MergeBars(nil, bars), nil
}

// Update fetches fresh bars, merges them over the local series (fresh wins
// on equal dates) and persists the result. On any failure the local series
// is left as it was and nil is returned with the error.
func (s *Store) Update(ctx context.Context, ticker string) ([]model.Bar, error) {
	fresh, err := s.fetcher.FetchDaily(ctx, ticker)
	if err != nil {
		s.log.Warn("fetch failed", "ticker", ticker, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, ticker, err)
	}
	if len(fresh) == 0 {
		s.log.Warn("no new data", "ticker", ticker)
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	existing, err := s.repo.LoadBars(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("bars: load %s: %w", ticker, err)
	}

	merged := model.MergeBars(existing, fresh)
	if err := s.repo.SaveBars(ctx, ticker, merged); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersist, ticker, err)
	}

	s.log.Info("bars updated",
		"ticker", ticker,
		"fetched", len(fresh),
		"stored", len(merged),
		"latest", merged[len(merged)-1].DateKey(),
	)
	return merged, nil
}

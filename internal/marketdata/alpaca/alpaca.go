// Package alpaca adapts Alpaca's market-data API to the daily quote source
// used by the bar store. Only US equities are available; tickers use the
// stooq-style "aapl.us" code and are mapped to "AAPL".
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stock-signal/internal/model"
)

// ErrUnsupportedTicker is returned for codes outside the US market.
var ErrUnsupportedTicker = errors.New("alpaca: only .us tickers are supported")

// barsAPI is the subset of *marketdata.Client used here.
type barsAPI interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Source fetches split-adjusted daily bars.
type Source struct {
	api      barsAPI
	lookback time.Duration
	now      func() time.Time
}

// New creates a Source backed by the Alpaca market-data client.
// years bounds how much history is requested.
func New(apiKey, apiSecret string, years int) *Source {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return newSource(client, years)
}

func newSource(api barsAPI, years int) *Source {
	if years <= 0 {
		years = 10
	}
	return &Source{
		api:      api,
		lookback: time.Duration(years) * 366 * 24 * time.Hour,
		now:      time.Now,
	}
}

func (s *Source) Name() string { return "alpaca" }

// Symbol maps "aapl.us" to "AAPL".
func Symbol(ticker string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(ticker))
	base, ok := strings.CutSuffix(code, ".us")
	if !ok || base == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTicker, ticker)
	}
	return strings.ToUpper(base), nil
}

// FetchDaily returns daily bars for ticker over the configured lookback.
func (s *Source) FetchDaily(ctx context.Context, ticker string) ([]model.Bar, error) {
	symbol, err := Symbol(ticker)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := s.now().UTC()
	raw, err := s.api.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Split,
		Start:      end.Add(-s.lookback),
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca: get bars %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, model.Bar{
			Date:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	return model.MergeBars(nil, bars), nil
}

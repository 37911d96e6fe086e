// Package stooq downloads end-of-day history from stooq.com's CSV endpoint.
package stooq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stock-signal/internal/model"
)

const (
	DefaultBaseURL = "https://stooq.com"
	userAgent      = "Mozilla/5.0"
)

var (
	// ErrUnknownTicker is returned when stooq answers with its error page.
	ErrUnknownTicker = errors.New("stooq: invalid ticker or data not found")
	// ErrMissingColumns is returned when the CSV header lacks a required column.
	ErrMissingColumns = errors.New("stooq: missing required columns")
)

var requiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

// Client fetches daily bars. The zero value is not usable; call New.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL ("" means DefaultBaseURL).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
			Timeout: time.Minute,
		},
	}
}

func (c *Client) Name() string { return "stooq" }

// FetchDaily downloads the full daily history for ticker, e.g. "7203.jp".
func (c *Client) FetchDaily(ctx context.Context, ticker string) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("s", ticker)
	q.Set("i", "d")
	endpoint := c.baseURL + "/q/d/l/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("stooq: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stooq: get %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("stooq: get %s: status %d", ticker, resp.StatusCode)
	}

	bars, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, ticker)
	}
	return bars, nil
}

// ParseCSV decodes a stooq daily CSV. Column names are matched
// case-insensitively; extra columns are ignored. Rows that fail to parse are
// skipped. The result is ascending and unique by date.
func ParseCSV(r io.Reader) ([]model.Bar, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stooq: read body: %w", err)
	}
	text := string(raw)
	if strings.Contains(text, "Preceded by") || strings.TrimSpace(text) == "No data" {
		return nil, ErrUnknownTicker
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("stooq: read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumns, col)
		}
	}

	var (
		bars    []model.Bar
		skipped int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stooq: read row: %w", err)
		}
		b, ok := parseRow(rec, idx)
		if !ok {
			skipped++
			continue
		}
		bars = append(bars, b)
	}
	if skipped > 0 {
		log.Printf("[stooq] skipped %d malformed rows", skipped)
	}

	return model.MergeBars(nil, bars), nil
}

func parseRow(rec []string, idx map[string]int) (model.Bar, bool) {
	field := func(name string) (string, bool) {
		i := idx[name]
		if i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}

	ds, ok := field("date")
	if !ok {
		return model.Bar{}, false
	}
	date, err := time.Parse(model.DateLayout, ds)
	if err != nil {
		return model.Bar{}, false
	}

	var vals [5]float64
	for i, name := range requiredColumns[1:] {
		s, ok := field(name)
		if !ok {
			return model.Bar{}, false
		}
		if s == "" && name == "volume" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Bar{}, false
		}
		vals[i] = v
	}

	return model.Bar{
		Date:   date,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}

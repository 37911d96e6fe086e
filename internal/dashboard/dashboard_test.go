package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal/internal/feature"
	"stock-signal/internal/model"
	"stock-signal/internal/testutil"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestPublisher(t *testing.T) (*Publisher, *clock, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "docs")
	clk := &clock{t: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)}
	return New(dir, Options{Now: clk.now}), clk, dir
}

func signal(ticker string, action model.Action) model.Signal {
	return model.Signal{Ticker: ticker, Name: "Name " + ticker, Date: "2024-02-29", Close: 1000, ProbUp: 0.5, Action: action, Reason: "r"}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestPublish_WritesAllFiles(t *testing.T) {
	p, _, dir := newTestPublisher(t)
	rows := feature.Compute(testutil.RandomWalk(300, 2), false)
	charts := []Chart{{Ticker: model.Ticker{Code: "7203.jp", Name: "Toyota"}, Rows: rows}}

	limit := int64(995)
	buy := signal("7203.jp", model.ActionBuy)
	buy.LimitPrice = &limit
	require.NoError(t, p.Publish(context.Background(), []model.Signal{buy}, charts))

	var st State
	readJSON(t, filepath.Join(dir, StateFile), &st)
	assert.Equal(t, "2024-03-01 06:00:00", st.LastUpdate)
	require.Len(t, st.History, 1)
	assert.Equal(t, "2024-03-01", st.History[0].Date)
	assert.Equal(t, []model.Signal{buy}, st.History[0].Signals)

	var hist HistoryData
	readJSON(t, filepath.Join(dir, HistoryFile), &hist)
	require.Contains(t, hist.Tickers, "7203.jp")
	info := hist.Tickers["7203.jp"]
	assert.Equal(t, "Toyota", info.Name)
	require.Len(t, info.Data, DefaultChartRows)
	assert.Equal(t, rows[len(rows)-1].DateKey(), info.Data[DefaultChartRows-1].Date)
	assert.Equal(t, st.History, hist.SignalsHistory)

	html, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Name 7203.jp (7203.jp)")
	assert.Contains(t, string(html), "🔴 BUY")
	assert.Contains(t, string(html), "<td>995</td>")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestPublish_OmitsUndefinedChartFields(t *testing.T) {
	p, _, dir := newTestPublisher(t)
	rows := feature.Compute(testutil.RandomWalk(30, 2), false)
	require.NoError(t, p.Publish(context.Background(), nil,
		[]Chart{{Ticker: model.Ticker{Code: "x.us", Name: "X"}, Rows: rows}}))

	var raw struct {
		Tickers map[string]struct {
			Data []map[string]any `json:"data"`
		} `json:"tickers"`
	}
	readJSON(t, filepath.Join(dir, HistoryFile), &raw)
	data := raw.Tickers["x.us"].Data
	require.Len(t, data, 30)
	assert.NotContains(t, data[0], "return_1d")
	assert.NotContains(t, data[29], "ma_60")
	assert.Contains(t, data[29], "ma_20")
	assert.Contains(t, data[29], "rsi")
}

func TestPublish_RollingHistory(t *testing.T) {
	p, clk, _ := newTestPublisher(t)
	ctx := context.Background()

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		require.NoError(t, p.Publish(ctx, []model.Signal{signal(fmt.Sprintf("t%d", i), model.ActionHold)}, nil))
		clk.t = clk.t.AddDate(0, 0, 1)
	}

	st, err := p.LoadState()
	require.NoError(t, err)
	require.Len(t, st.History, DefaultHistoryLimit)
	assert.Equal(t, "t34", st.History[0].Signals[0].Ticker, "newest first")
	assert.Equal(t, "t5", st.History[DefaultHistoryLimit-1].Signals[0].Ticker)
}

func TestPublish_SameDateReplaces(t *testing.T) {
	p, clk, _ := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, []model.Signal{signal("a", model.ActionHold)}, nil))
	clk.t = clk.t.Add(2 * time.Hour)
	require.NoError(t, p.Publish(ctx, []model.Signal{signal("b", model.ActionSell)}, nil))

	st, err := p.LoadState()
	require.NoError(t, err)
	require.Len(t, st.History, 1)
	assert.Equal(t, "b", st.History[0].Signals[0].Ticker)
	assert.Equal(t, "2024-03-01 08:00:00", st.LastUpdate)
}

func TestPublish_KeepsChartsOfTickersNotInRun(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	ctx := context.Background()
	rows := feature.Compute(testutil.RandomWalk(10, 1), false)

	require.NoError(t, p.Publish(ctx, nil, []Chart{{Ticker: model.Ticker{Code: "a", Name: "A"}, Rows: rows}}))
	require.NoError(t, p.Publish(ctx, nil, []Chart{{Ticker: model.Ticker{Code: "b", Name: "B"}, Rows: rows}}))

	h, err := p.loadHistoryData()
	require.NoError(t, err)
	assert.Len(t, h.Tickers, 2)
}

func TestPublish_CorruptStateFails(t *testing.T) {
	p, _, dir := newTestPublisher(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFile), []byte("{not json"), 0o644))

	err := p.Publish(context.Background(), []model.Signal{signal("a", model.ActionHold)}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), StateFile))
}

func TestAppendRun(t *testing.T) {
	s := State{History: []model.RunEntry{{Date: "2024-01-03"}, {Date: "2024-01-02"}, {Date: "2024-01-01"}}}
	got := AppendRun(s, model.RunEntry{Date: "2024-01-02"}, 2)
	require.Len(t, got.History, 2)
	assert.Equal(t, "2024-01-02", got.History[0].Date)
	assert.Equal(t, "2024-01-03", got.History[1].Date)
	assert.Len(t, s.History, 3, "input not mutated")
}

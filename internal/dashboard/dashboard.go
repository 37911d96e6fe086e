// Package dashboard maintains the static dashboard files under the docs
// directory: state.json (run history), history_data.json (chart data for the
// web front end) and index.html.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"stock-signal/internal/feature"
	"stock-signal/internal/model"
)

const (
	StateFile   = "state.json"
	HistoryFile = "history_data.json"
	IndexFile   = "index.html"

	// DefaultHistoryLimit is the number of run dates kept.
	DefaultHistoryLimit = 30
	// DefaultChartRows is the number of trailing bars exported per ticker.
	DefaultChartRows = 250

	timestampLayout = "2006-01-02 15:04:05"
)

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var indexTmpl = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"pct": func(p float64) string { return fmt.Sprintf("%.1f%%", p*100) },
	"price": func(p *int64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *p)
	},
}).ParseFS(templateFS, "templates/index.html.tmpl"))

// State is the persisted run history.
type State struct {
	LastUpdate string           `json:"last_update"`
	History    []model.RunEntry `json:"history"`
}

// ChartPoint is one row of a ticker's chart series. Undefined indicator
// values are omitted.
type ChartPoint struct {
	Date       string   `json:"date"`
	Open       float64  `json:"open"`
	High       float64  `json:"high"`
	Low        float64  `json:"low"`
	Close      float64  `json:"close"`
	Volume     float64  `json:"volume"`
	Return1D   *float64 `json:"return_1d,omitempty"`
	MA5        *float64 `json:"ma_5,omitempty"`
	MA20       *float64 `json:"ma_20,omitempty"`
	MA60       *float64 `json:"ma_60,omitempty"`
	RSI        *float64 `json:"rsi,omitempty"`
	Volatility *float64 `json:"volatility,omitempty"`
}

// TickerInfo is the chart entry for one ticker.
type TickerInfo struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// HistoryData is the document consumed by the web front end.
type HistoryData struct {
	LastUpdate     string                `json:"last_update"`
	Tickers        map[string]TickerInfo `json:"tickers"`
	SignalsHistory []model.RunEntry      `json:"signals_history"`
}

// Chart carries the full-history feature rows (computed without dropping
// incomplete rows) of one ticker.
type Chart struct {
	Ticker model.Ticker
	Rows   []model.FeatureRow
}

// Options tunes a Publisher. Zero values select the defaults.
type Options struct {
	HistoryLimit int
	ChartRows    int
	Now          func() time.Time
}

// Publisher writes the dashboard files into one directory.
type Publisher struct {
	dir  string
	opts Options
}

// New returns a Publisher writing into dir.
func New(dir string, opts Options) *Publisher {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.ChartRows <= 0 {
		opts.ChartRows = DefaultChartRows
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Publisher{dir: dir, opts: opts}
}

// Publish records signals as today's run and regenerates every file.
// A second run on the same date replaces that date's entry.
func (p *Publisher) Publish(ctx context.Context, signals []model.Signal, charts []Chart) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("dashboard: mkdir: %w", err)
	}

	if signals == nil {
		signals = []model.Signal{}
	}
	now := p.opts.Now()
	state, err := p.LoadState()
	if err != nil {
		return err
	}
	state = AppendRun(state, model.RunEntry{
		Date:    now.Format(model.DateLayout),
		Signals: signals,
	}, p.opts.HistoryLimit)
	state.LastUpdate = now.Format(timestampLayout)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.writeJSON(StateFile, state); err != nil {
		return err
	}

	hist, err := p.loadHistoryData()
	if err != nil {
		return err
	}
	hist.LastUpdate = state.LastUpdate
	hist.SignalsHistory = state.History
	for _, c := range charts {
		hist.Tickers[c.Ticker.Code] = TickerInfo{
			Name: c.Ticker.Name,
			Data: ChartPoints(feature.Tail(c.Rows, p.opts.ChartRows)),
		}
	}
	if err := p.writeJSON(HistoryFile, hist); err != nil {
		return err
	}

	if err := p.renderIndex(state); err != nil {
		return err
	}
	log.Printf("[dashboard] updated %s (%d signals, %d run dates)", p.dir, len(signals), len(state.History))
	return nil
}

// AppendRun puts entry first, dropping any older entry with the same date,
// and caps the history at limit entries.
func AppendRun(s State, entry model.RunEntry, limit int) State {
	hist := make([]model.RunEntry, 0, len(s.History)+1)
	hist = append(hist, entry)
	for _, e := range s.History {
		if e.Date == entry.Date {
			continue
		}
		hist = append(hist, e)
	}
	if len(hist) > limit {
		hist = hist[:limit]
	}
	s.History = hist
	return s
}

// ChartPoints converts feature rows to chart rows.
func ChartPoints(rows []model.FeatureRow) []ChartPoint {
	out := make([]ChartPoint, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = ChartPoint{
			Date:       r.DateKey(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
			Return1D:   r.Return1D.Ptr(),
			MA5:        r.MA5.Ptr(),
			MA20:       r.MA20.Ptr(),
			MA60:       r.MA60.Ptr(),
			RSI:        r.RSI.Ptr(),
			Volatility: r.Volatility.Ptr(),
		}
	}
	return out
}

// LoadState reads state.json; a missing file yields an empty State.
func (p *Publisher) LoadState() (State, error) {
	var s State
	if err := p.readJSON(StateFile, &s); err != nil {
		return State{}, err
	}
	return s, nil
}

func (p *Publisher) loadHistoryData() (HistoryData, error) {
	var h HistoryData
	if err := p.readJSON(HistoryFile, &h); err != nil {
		return HistoryData{}, err
	}
	if h.Tickers == nil {
		h.Tickers = make(map[string]TickerInfo)
	}
	return h, nil
}

func (p *Publisher) readJSON(name string, v any) error {
	raw, err := os.ReadFile(filepath.Join(p.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dashboard: read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("dashboard: decode %s: %w", name, err)
	}
	return nil
}

func (p *Publisher) writeJSON(name string, v any) error {
	return p.writeFile(name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

type indexView struct {
	LastUpdate string
	Latest     []model.Signal
	History    []model.RunEntry
}

func (p *Publisher) renderIndex(s State) error {
	view := indexView{LastUpdate: s.LastUpdate, History: s.History}
	if len(s.History) > 0 {
		view.Latest = s.History[0].Signals
	}
	return p.writeFile(IndexFile, func(w io.Writer) error {
		return indexTmpl.Execute(w, view)
	})
}

// writeFile replaces name atomically via a temp file and rename.
func (p *Publisher) writeFile(name string, write func(io.Writer) error) error {
	path := filepath.Join(p.dir, name)
	tmp, err := os.CreateTemp(p.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("dashboard: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("dashboard: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dashboard: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("dashboard: rename %s: %w", name, err)
	}
	return nil
}

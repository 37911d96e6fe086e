package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date format used in persisted files and signals.
const DateLayout = "2006-01-02"

// Bar is one trading day of OHLCV data for a single ticker.
// Date is normalized to midnight UTC.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey returns the bar date as YYYY-MM-DD.
func (b *Bar) DateKey() string {
	return b.Date.Format(DateLayout)
}

// SortBars sorts bars ascending by date in place. Stable, so callers that
// append newer writes after older ones can rely on order for dedup.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// MergeBars combines an existing series with freshly fetched bars.
// Duplicate dates keep the fresh bar. The result is sorted ascending and
// shares no backing array with either input.
func MergeBars(existing, fresh []Bar) []Bar {
	byDate := make(map[time.Time]int, len(existing)+len(fresh))
	out := make([]Bar, 0, len(existing)+len(fresh))
	for _, src := range [][]Bar{existing, fresh} {
		for _, b := range src {
			b.Date = Day(b.Date)
			if i, ok := byDate[b.Date]; ok {
				out[i] = b
				continue
			}
			byDate[b.Date] = len(out)
			out = append(out, b)
		}
	}
	SortBars(out)
	return out
}

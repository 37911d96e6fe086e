// Package testutil provides deterministic bar series for tests across
// the feature, predict, strategy and pipeline packages.
package testutil

import (
	"math/rand"
	"time"

	"stock-signal/internal/model"
)

// Start is the first session used by the generators unless overridden.
var Start = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

// Sessions returns n weekday dates beginning at from.
func Sessions(n int, from time.Time) []time.Time {
	out := make([]time.Time, 0, n)
	d := model.Day(from)
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// RandomWalk returns n bars following a seeded geometric random walk with
// about 1.5% daily moves. The same seed always yields the same series.
func RandomWalk(n int, seed int64) []model.Bar {
	rng := rand.New(rand.NewSource(seed))
	dates := Sessions(n, Start)
	bars := make([]model.Bar, n)
	price := 1000.0
	for i := range bars {
		open := price
		price *= 1 + rng.NormFloat64()*0.015
		hi, lo := open, price
		if lo > hi {
			hi, lo = lo, hi
		}
		bars[i] = model.Bar{
			Date:   dates[i],
			Open:   open,
			High:   hi * (1 + rng.Float64()*0.005),
			Low:    lo * (1 - rng.Float64()*0.005),
			Close:  price,
			Volume: 100000 + float64(rng.Intn(50000)),
		}
	}
	return bars
}

// Linear returns n bars whose close is base + step*i with constant volume.
func Linear(n int, base, step float64) []model.Bar {
	dates := Sessions(n, Start)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := base + step*float64(i)
		bars[i] = model.Bar{Date: dates[i], Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

// WithCloses returns bars carrying the given closes on consecutive sessions.
func WithCloses(closes ...float64) []model.Bar {
	dates := Sessions(len(closes), Start)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: dates[i], Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

// Package feature derives the technical-indicator feature rows the
// direction model trains and predicts on.
//
// Every value at row i is computed from bars [0..i] only. Rolling values
// inside their warm-up window are left undefined instead of zero-filled.
package feature

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"stock-signal/internal/model"
	"stock-signal/internal/ringbuf"
)

const (
	// RSIPeriod is the number of close-to-close deltas averaged for RSI.
	RSIPeriod = 14

	// VolatilityWindow is the number of daily returns in the volatility std.
	VolatilityWindow = 20

	// MinBars is the history needed before the longest window (ma_60) is defined.
	MinBars = 60

	// MaxVolChange is vol_change when volume rises from a zero-volume
	// session. 0 to 0 stays undefined.
	MaxVolChange = 10.0
)

// Compute derives a FeatureRow for every bar.
//
// The input is copied and sorted by date; it is never mutated. With
// dropIncomplete set, rows with any undefined field are removed, which
// leaves len(bars)-59 rows for a clean series of at least 60 bars. Without
// it, one row per bar is returned and warm-up fields stay undefined.
func Compute(bars []model.Bar, dropIncomplete bool) []model.FeatureRow {
	if len(bars) == 0 {
		return nil
	}

	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	model.SortBars(sorted)

	n := len(sorted)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range sorted {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	ma5 := movingAverage(closes, 5)
	ma20 := movingAverage(closes, 20)
	ma60 := movingAverage(closes, 60)
	rsi := relativeStrength(closes, RSIPeriod)

	vol := ringbuf.New(VolatilityWindow)
	rows := make([]model.FeatureRow, n)
	for i := range rows {
		r := &rows[i]
		r.Bar = sorted[i]

		r.Return1D = pctChange(closes, i, 1)
		r.Return5D = pctChange(closes, i, 5)
		r.Return20D = pctChange(closes, i, 20)

		r.MA5, r.MA20, r.MA60 = ma5[i], ma20[i], ma60[i]
		r.DivMA5 = divergence(closes[i], ma5[i])
		r.DivMA20 = divergence(closes[i], ma20[i])
		r.DivMA60 = divergence(closes[i], ma60[i])

		r.RSI = rsi[i]

		ret, ok := r.Return1D.Get()
		if !ok {
			ret = math.NaN()
		}
		vol.Push(ret)
		r.Volatility = model.Some(vol.StdDev())

		r.VolChange = volumeChange(volumes, i)
	}

	if !dropIncomplete {
		return rows
	}
	return DropIncomplete(rows)
}

// DropIncomplete returns the rows with every derived field defined, in order.
// The result shares no backing array with rows.
func DropIncomplete(rows []model.FeatureRow) []model.FeatureRow {
	out := make([]model.FeatureRow, 0, len(rows))
	for i := range rows {
		if rows[i].Complete() {
			out = append(out, rows[i])
		}
	}
	return out
}

// pctChange is the fractional change of values[i] over values[i-lag].
func pctChange(values []float64, i, lag int) model.NullFloat {
	if i < lag || values[i-lag] == 0 {
		return model.NullFloat{}
	}
	return model.Some(values[i]/values[i-lag] - 1)
}

// volumeChange is pctChange at lag 1 with a zero prior volume mapped to
// MaxVolChange (or undefined when the current volume is zero too).
func volumeChange(volumes []float64, i int) model.NullFloat {
	if i < 1 {
		return model.NullFloat{}
	}
	if volumes[i-1] == 0 {
		if volumes[i] == 0 {
			return model.NullFloat{}
		}
		return model.Some(MaxVolChange)
	}
	return model.Some(volumes[i]/volumes[i-1] - 1)
}

// divergence is (close - ma) / ma.
func divergence(close float64, ma model.NullFloat) model.NullFloat {
	m, ok := ma.Get()
	if !ok || m == 0 {
		return model.NullFloat{}
	}
	return model.Some((close - m) / m)
}

// movingAverage returns the trailing simple mean of values, aligned so that
// out[i] covers values[i-period+1..i]. Leading entries are undefined.
func movingAverage(values []float64, period int) []model.NullFloat {
	out := make([]model.NullFloat, len(values))
	if len(values) < period {
		return out
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	result := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))

	offset := len(values) - len(result)
	for k, v := range result {
		out[k+offset] = model.Some(v)
	}
	return out
}

// relativeStrength computes RSI from simple rolling means of gains and
// losses over the last period deltas. The first value is at index period.
func relativeStrength(closes []float64, period int) []model.NullFloat {
	out := make([]model.NullFloat, len(closes))
	if len(closes) <= period {
		return out
	}

	// deltas[k] is closes[k+1]-closes[k]
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for k := range gains {
		d := closes[k+1] - closes[k]
		if d > 0 {
			gains[k] = d
		} else if d < 0 {
			losses[k] = -d
		}
	}

	gainMean := movingAverage(gains, period)
	lossMean := movingAverage(losses, period)
	for k := range gains {
		g, okG := gainMean[k].Get()
		l, okL := lossMean[k].Get()
		if !okG || !okL {
			continue
		}
		out[k+1] = model.Some(RSIFromMeans(g, l))
	}
	return out
}

// RSIFromMeans converts average gain and loss into RSI.
// A zero average loss (including a flat window) resolves to 100.
func RSIFromMeans(gain, loss float64) float64 {
	if loss <= 0 {
		return 100
	}
	if gain < 0 {
		gain = 0
	}
	return 100 - 100/(1+gain/loss)
}

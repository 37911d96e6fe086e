package predict

import "sort"

// binMapper holds per-feature upper bounds. A value v falls into the first
// bin k with v <= bounds[k], or into bin len(bounds) above every bound.
type binMapper struct {
	bounds [][]float64
}

// newBinMapper builds quantile bin bounds for each feature column.
// Bounds sit midway between neighbouring distinct values so that a split
// on bin k is the raw-value test x <= bounds[k].
func newBinMapper(examples []Example, nFeatures, maxBin int) *binMapper {
	m := &binMapper{bounds: make([][]float64, nFeatures)}
	col := make([]float64, len(examples))
	for f := 0; f < nFeatures; f++ {
		for i := range examples {
			col[i] = examples[i].X[f]
		}
		sort.Float64s(col)
		m.bounds[f] = quantileBounds(col, maxBin)
	}
	return m
}

func quantileBounds(sorted []float64, maxBin int) []float64 {
	distinct := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) <= 1 {
		return nil
	}

	if len(distinct) <= maxBin {
		out := make([]float64, len(distinct)-1)
		for i := range out {
			out[i] = (distinct[i] + distinct[i+1]) / 2
		}
		return out
	}

	out := make([]float64, 0, maxBin-1)
	n := len(sorted)
	for b := 1; b < maxBin; b++ {
		pos := b * n / maxBin
		if pos <= 0 || pos >= n || sorted[pos-1] == sorted[pos] {
			continue
		}
		cut := (sorted[pos-1] + sorted[pos]) / 2
		if len(out) == 0 || cut > out[len(out)-1] {
			out = append(out, cut)
		}
	}
	return out
}

func (m *binMapper) numBins(f int) int {
	return len(m.bounds[f]) + 1
}

func (m *binMapper) bin(f int, v float64) int {
	return sort.SearchFloat64s(m.bounds[f], v)
}

// threshold returns the raw-value split point for "bin <= k".
func (m *binMapper) threshold(f, k int) float64 {
	return m.bounds[f][k]
}

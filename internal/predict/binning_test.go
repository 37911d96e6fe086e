package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileBounds_Distinct(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2.5}, quantileBounds([]float64{1, 1, 2, 3}, 255))
	assert.Nil(t, quantileBounds([]float64{4, 4, 4}, 255))
}

func TestQuantileBounds_Capped(t *testing.T) {
	sorted := make([]float64, 100)
	for i := range sorted {
		sorted[i] = float64(i)
	}
	b := quantileBounds(sorted, 4)
	require.NotEmpty(t, b)
	assert.LessOrEqual(t, len(b), 3)
	for i := 1; i < len(b); i++ {
		assert.Greater(t, b[i], b[i-1])
	}
}

func TestBinMapper_SplitMatchesThreshold(t *testing.T) {
	ex := []Example{{}, {}, {}, {}}
	for i, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		ex[i].X[0] = v
	}
	m := newBinMapper(ex, 1, 255)
	require.Equal(t, 4, m.numBins(0))

	for k := 0; k < m.numBins(0)-1; k++ {
		thr := m.threshold(0, k)
		for _, e := range ex {
			left := m.bin(0, e.X[0]) <= k
			assert.Equal(t, e.X[0] <= thr, left)
		}
	}
}

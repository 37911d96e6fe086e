package parquet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal/internal/feature"
	"stock-signal/internal/model"
	"stock-signal/internal/testutil"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadBars(ctx, "7203.jp")
	require.NoError(t, err)
	assert.Nil(t, got)

	bars := testutil.RandomWalk(40, 3)
	require.NoError(t, s.SaveBars(ctx, "7203.jp", bars))

	path, err := s.Path("7203.jp")
	require.NoError(t, err)
	assert.Equal(t, "7203.jp.parquet", filepath.Base(path))
	assert.FileExists(t, path)

	got, err = s.LoadBars(ctx, "7203.jp")
	require.NoError(t, err)
	require.Len(t, got, len(bars))
	for i := range bars {
		assert.True(t, bars[i].Date.Equal(got[i].Date))
		assert.Equal(t, bars[i].Open, got[i].Open)
		assert.Equal(t, bars[i].Close, got[i].Close)
		assert.Equal(t, bars[i].Volume, got[i].Volume)
	}

	require.NoError(t, s.SaveBars(ctx, "7203.jp", bars[:3]))
	got, err = s.LoadBars(ctx, "7203.jp")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_RejectsPathTickers(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	for _, bad := range []string{"", "../x", "a/b", ".hidden"} {
		_, err := s.LoadBars(context.Background(), bad)
		assert.ErrorIs(t, err, ErrBadTicker, bad)
		assert.ErrorIs(t, s.SaveBars(context.Background(), bad, nil), ErrBadTicker, bad)
	}
}

func TestFeatures_RoundTripKeepsNulls(t *testing.T) {
	rows := feature.Compute(testutil.RandomWalk(80, 9), false)
	path := filepath.Join(t.TempDir(), "features.parquet")
	require.NoError(t, WriteFeatures(path, rows))

	got, err := ReadFeatures(path)
	require.NoError(t, err)
	require.Len(t, got, len(rows))

	assert.False(t, got[0].Return1D.Valid)
	assert.False(t, got[58].MA60.Valid)
	assert.True(t, got[59].MA60.Valid)
	assert.True(t, got[79].Complete())
	assert.Equal(t, rows[79].Vector(), got[79].Vector())
	assert.Equal(t, rows[10].RSI, got[10].RSI)
	assert.Equal(t, rows[10].DateKey(), got[10].DateKey())
}

func TestReadFeatures_Missing(t *testing.T) {
	_, err := ReadFeatures(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

var _ model.BarRepository = (*Store)(nil)

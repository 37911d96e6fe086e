package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-01-05,2700,2750,2690,2740,1200000
2024-01-04,2650,2710,2640,2700,1500000
2024-01-04,2651,2711,2641,2701,1500001
2024-01-08,2740,2760,2720,2755,900000
`

func TestParseCSV_SortsAndDedupes(t *testing.T) {
	bars, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "2024-01-04", bars[0].DateKey())
	assert.Equal(t, 2701.0, bars[0].Close, "later duplicate wins")
	assert.Equal(t, "2024-01-05", bars[1].DateKey())
	assert.Equal(t, "2024-01-08", bars[2].DateKey())
	assert.Equal(t, 900000.0, bars[2].Volume)
	assert.Equal(t, time.UTC, bars[0].Date.Location())
}

func TestParseCSV_CaseInsensitiveExtraColumns(t *testing.T) {
	csv := "DATE,open,HIGH,low,Close,VOLUME,OpenInt\n2024-02-01,1,2,0.5,1.5,10,0\n"
	bars, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
}

func TestParseCSV_SkipsMalformedRows(t *testing.T) {
	csv := "Date,Open,High,Low,Close,Volume\n2024-02-01,1,2,0.5,1.5,10\nnot-a-date,1,2,3,4,5\n2024-02-02,1,2,x,1.5,10\n2024-02-05,1,2\n"
	bars, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestParseCSV_EmptyVolumeIsZero(t *testing.T) {
	bars, err := ParseCSV(strings.NewReader("Date,Open,High,Low,Close,Volume\n2024-02-01,1,2,0.5,1.5,\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 0.0, bars[0].Volume)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Date,Open,High,Low,Close\n2024-02-01,1,2,0.5,1.5\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = ParseCSV(strings.NewReader("<html>Preceded by ...</html>"))
	assert.ErrorIs(t, err, ErrUnknownTicker)

	_, err = ParseCSV(strings.NewReader("No data"))
	assert.ErrorIs(t, err, ErrUnknownTicker)
}

func TestClient_FetchDaily(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	assert.Equal(t, "stooq", c.Name())

	bars, err := c.FetchDaily(context.Background(), "7203.jp")
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, "/q/d/l/", gotPath)
	assert.Contains(t, gotQuery, "s=7203.jp")
	assert.Contains(t, gotQuery, "i=d")
	assert.Equal(t, "Mozilla/5.0", gotUA)
}

func TestClient_FetchDailyFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") == "bad.jp" {
			_, _ = w.Write([]byte("Preceded by an error"))
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchDaily(context.Background(), "bad.jp")
	assert.ErrorIs(t, err, ErrUnknownTicker)

	_, err = c.FetchDaily(context.Background(), "7203.jp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.FetchDaily(ctx, "7203.jp")
	assert.Error(t, err)
}

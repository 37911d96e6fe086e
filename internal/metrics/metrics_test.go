package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Independent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.SignalsTotal.WithLabelValues("BUY").Inc()
	a.TickersSkipped.WithLabelValues("insufficient_data").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SignalsTotal.WithLabelValues("BUY")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.TickersSkipped.WithLabelValues("insufficient_data")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SignalsTotal.WithLabelValues("BUY")))
}

func TestObserveRun(t *testing.T) {
	m := NewMetrics()
	start := time.Unix(1_700_000_000, 0)
	m.ObserveRun(start, start.Add(90*time.Second))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.RunDuration))
	assert.Equal(t, float64(start.Unix()+90), testutil.ToFloat64(m.LastRunTimestamp))
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		buf := new(strings.Builder)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.TickersProcessed.Add(3)
	require.NoError(t, m.Push(context.Background(), srv.URL, "dailysignal"))
	assert.Equal(t, "/metrics/job/dailysignal", path)
	assert.NotEmpty(t, body)

	assert.NoError(t, m.Push(context.Background(), "", "dailysignal"))
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, NewMetrics().Push(context.Background(), srv.URL, "dailysignal"))
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMetrics()
	m.SignalsTotal.WithLabelValues("SELL").Inc()
	health := NewHealthStatus()
	h := NewServer(":0", m, health).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dailysignal_signals_total{action="SELL"} 1`)

	health.RunStarted()
	health.RunFinished(time.Now(), 3, 1, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 3.0, body["last_signals"])
	assert.Equal(t, false, body["running"])

	health.RunFinished(time.Now(), 0, 3, errors.New("dashboard: disk full"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

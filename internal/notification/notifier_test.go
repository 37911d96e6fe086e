package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal/internal/model"
)

type recorder struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (r *recorder) Send(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func buySignal() model.Signal {
	limit, stop := int64(995), int64(980)
	return model.Signal{
		Ticker: "7203.jp", Name: "Toyota", Date: "2024-01-05", Close: 1000, ProbUp: 0.853,
		Action: model.ActionBuy, Reason: "High prob (0.85) & Low Vol (2.0%)",
		LimitPrice: &limit, StopLoss: &stop,
	}
}

func TestFormatSignal(t *testing.T) {
	got := FormatSignal(buySignal(), "https://example.com/dash")
	want := strings.Join([]string{
		"【🔴 BUY】Toyota",
		"(7203.jp)",
		"────────────",
		"Close: 1,000",
		"Prob up: 85.3%",
		"Limit: 995",
		"Stop: 980",
		"Reason: High prob (0.85) & Low Vol (2.0%)",
		"Dashboard: https://example.com/dash",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatSignal_OmitsMissingLevels(t *testing.T) {
	sig := buySignal()
	sig.Action = model.ActionMildSell
	sig.LimitPrice, sig.StopLoss = nil, nil
	sig.Close = 12345.6

	got := FormatSignal(sig, "")
	assert.Contains(t, got, "Close: 12,346")
	assert.NotContains(t, got, "Limit")
	assert.NotContains(t, got, "Stop")
	assert.NotContains(t, got, "Dashboard")
}

func TestSignalNotifier_SkipsHold(t *testing.T) {
	rec := &recorder{}
	n := NewSignalNotifier(rec, "", nil)

	hold := buySignal()
	hold.Action = model.ActionHold
	assert.False(t, n.Notify(context.Background(), hold))
	assert.Empty(t, rec.alerts)

	assert.True(t, n.Notify(context.Background(), buySignal()))
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, AlertWarning, rec.alerts[0].Level)
	assert.Equal(t, "7203.jp", rec.alerts[0].Signal.Ticker)
}

func TestSignalNotifier_SwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("down")}
	n := NewSignalNotifier(rec, "", nil)

	var failed []string
	n.OnFailure = func(sig model.Signal, err error) { failed = append(failed, sig.Ticker) }

	assert.False(t, n.Notify(context.Background(), buySignal()))
	assert.Equal(t, []string{"7203.jp"}, failed)
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok, bad := &recorder{}, &recorder{err: errors.New("bad")}
	err := Multi{ok, bad, NewLogNotifier()}.Send(context.Background(), Alert{Title: "t"})
	assert.ErrorContains(t, err, "bad")
	assert.Len(t, ok.alerts, 1)
	assert.Len(t, bad.alerts, 1)

	assert.NoError(t, Multi{}.Send(context.Background(), Alert{}))
}

func TestLineNotifier(t *testing.T) {
	var (
		auth string
		got  linePush
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		if got.To == "reject" {
			http.Error(w, `{"message":"bad user"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	n := NewLineNotifier("tok", "U1")
	n.endpoint = srv.URL

	alert := SignalAlert(buySignal(), "")
	require.NoError(t, n.Send(context.Background(), alert))
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "U1", got.To)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, alert.Message, got.Messages[0].Text)

	n.userID = "reject"
	err := n.Send(context.Background(), alert)
	assert.ErrorContains(t, err, "400")
	assert.ErrorContains(t, err, "bad user")
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookNotifier(srv.URL).Send(context.Background(), SignalAlert(buySignal(), "")))
	assert.Equal(t, "WARNING", got["level"])
	sig, ok := got["signal"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BUY", sig["action"])
	assert.Equal(t, 995.0, sig["limit_price"])
	assert.NotEmpty(t, got["ts"])

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	assert.Error(t, NewWebhookNotifier(failing.URL).Send(context.Background(), Alert{}))
}

type fakeBot struct {
	params *bot.SendMessageParams
	err    error
}

func (f *fakeBot) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.params = p
	return &models.Message{}, f.err
}

func TestTelegramNotifier(t *testing.T) {
	fb := &fakeBot{}
	n := &TelegramNotifier{bot: fb, chatID: "-100123"}

	require.NoError(t, n.Send(context.Background(), SignalAlert(buySignal(), "")))
	require.NotNil(t, fb.params)
	assert.Equal(t, "-100123", fb.params.ChatID)
	assert.Equal(t, models.ParseModeMarkdown, fb.params.ParseMode)
	assert.Contains(t, fb.params.Text, "Prob up: 85\\.3%")

	fb.err = errors.New("forbidden")
	assert.ErrorContains(t, n.Send(context.Background(), Alert{}), "forbidden")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\.d\!`, escapeMarkdown("a_b*c.d!"))
	assert.Equal(t, `\(7203\.jp\)`, escapeMarkdown("(7203.jp)"))
}

func TestNewTelegramNotifier_RejectsEmptyToken(t *testing.T) {
	_, err := NewTelegramNotifier("", "1")
	assert.Error(t, err)
	_, err = NewTelegramNotifier("123:abc", "")
	assert.Error(t, err)
}

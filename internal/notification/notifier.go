// Package notification delivers produced signals to external channels
// (Telegram, LINE, webhooks, logs).
package notification

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"stock-signal/internal/model"
)

// AlertLevel represents the urgency of an alert.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "INFO"
	AlertWarning AlertLevel = "WARNING"
)

// Alert is one rendered notification. Signal is set for signal alerts.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s\n%s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every backend and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignalNotifier turns signals into alerts for a backend. HOLD signals are
// dropped; delivery errors are logged and counted, never returned.
type SignalNotifier struct {
	backend      Notifier
	dashboardURL string
	log          *slog.Logger

	// OnFailure is called once per failed delivery (for metrics).
	OnFailure func(sig model.Signal, err error)
}

// NewSignalNotifier wraps backend. dashboardURL may be empty.
func NewSignalNotifier(backend Notifier, dashboardURL string, logger *slog.Logger) *SignalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalNotifier{
		backend:      backend,
		dashboardURL: dashboardURL,
		log:          logger.With(slog.String("component", "notify")),
	}
}

// Notify sends sig unless it is HOLD. It reports whether an alert was
// delivered successfully.
func (s *SignalNotifier) Notify(ctx context.Context, sig model.Signal) bool {
	if !sig.Action.Actionable() {
		return false
	}

	alert := SignalAlert(sig, s.dashboardURL)
	if err := s.backend.Send(ctx, alert); err != nil {
		s.log.Error("notification failed", "ticker", sig.Ticker, "action", sig.Action, "error", err)
		if s.OnFailure != nil {
			s.OnFailure(sig, err)
		}
		return false
	}
	s.log.Info("notification sent", "ticker", sig.Ticker, "action", sig.Action)
	return true
}

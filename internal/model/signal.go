package model

// Action is the five-level recommendation produced for a ticker.
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionMildBuy  Action = "MILD_BUY"
	ActionHold     Action = "HOLD"
	ActionMildSell Action = "MILD_SELL"
	ActionSell     Action = "SELL"
)

// Label returns the display label used in notifications and the dashboard.
func (a Action) Label() string {
	switch a {
	case ActionBuy:
		return "🔴 BUY"
	case ActionMildBuy:
		return "🟠 MILD BUY"
	case ActionHold:
		return "⚪ HOLD"
	case ActionMildSell:
		return "🔵 MILD SELL"
	case ActionSell:
		return "🟢 SELL"
	default:
		return string(a)
	}
}

// Actionable is false for HOLD; notifiers skip non-actionable signals.
func (a Action) Actionable() bool {
	return a != ActionHold
}

// Signal is the per-ticker output of one run. Immutable once built.
// LimitPrice and StopLoss are nil when the action carries no price level.
type Signal struct {
	Ticker     string  `json:"ticker"`
	Name       string  `json:"name"`
	Date       string  `json:"date"` // YYYY-MM-DD of the bar the signal was computed on
	Close      float64 `json:"close"`
	ProbUp     float64 `json:"prob_up"`
	Action     Action  `json:"action"`
	Reason     string  `json:"reason"`
	LimitPrice *int64  `json:"limit_price"`
	StopLoss   *int64  `json:"stop_loss"`
}

// Ticker identifies one configured instrument.
type Ticker struct {
	Code    string `json:"code" yaml:"code"`
	Name    string `json:"name" yaml:"name"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled"`
}

// IsEnabled treats a missing enabled flag as true.
func (t Ticker) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// RunEntry groups the signals produced for one run date. It is the element
// type of the dashboard history and of the Redis history list.
type RunEntry struct {
	Date    string   `json:"date"`
	Signals []Signal `json:"signals"`
}

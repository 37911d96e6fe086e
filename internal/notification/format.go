package notification

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stock-signal/internal/model"
)

var printer = message.NewPrinter(language.English)

// SignalAlert renders sig. Strong actions are raised as warnings.
func SignalAlert(sig model.Signal, dashboardURL string) Alert {
	level := AlertInfo
	if sig.Action == model.ActionBuy || sig.Action == model.ActionSell {
		level = AlertWarning
	}
	s := sig
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("【%s】%s", sig.Action.Label(), sig.Name),
		Message: FormatSignal(sig, dashboardURL),
		Signal:  &s,
	}
}

// FormatSignal renders the multi-line text body of a signal alert.
func FormatSignal(sig model.Signal, dashboardURL string) string {
	lines := []string{
		fmt.Sprintf("【%s】%s", sig.Action.Label(), sig.Name),
		fmt.Sprintf("(%s)", sig.Ticker),
		"────────────",
		printer.Sprintf("Close: %.0f", sig.Close),
		fmt.Sprintf("Prob up: %.1f%%", sig.ProbUp*100),
	}
	if sig.LimitPrice != nil {
		lines = append(lines, printer.Sprintf("Limit: %d", *sig.LimitPrice))
	}
	if sig.StopLoss != nil {
		lines = append(lines, printer.Sprintf("Stop: %d", *sig.StopLoss))
	}
	lines = append(lines, "Reason: "+sig.Reason)
	if dashboardURL != "" {
		lines = append(lines, "Dashboard: "+dashboardURL)
	}
	return strings.Join(lines, "\n")
}

package notifier

import (
	"fmt"
	"time"

	"github.com/newthinker/ashare/internal/core"
)

const timeLayout = "2006-01-02 15:04:05"

// SignalTitle is the headline used for a trade signal message.
func SignalTitle(signal core.Signal) string {
	return fmt.Sprintf("Trade signal: %s %s", signal.Symbol, actionLabel(signal.Action))
}

// SignalLines renders a signal as message lines.
func SignalLines(signal core.Signal) []string {
	lines := []string{
		"Symbol: " + signal.Symbol,
		"Action: " + actionLabel(signal.Action),
	}
	if signal.Price > 0 {
		lines = append(lines, fmt.Sprintf("Price: %.2f", signal.Price))
	}
	if signal.Quantity > 0 {
		lines = append(lines, fmt.Sprintf("Quantity: %d", signal.Quantity))
	}
	if signal.Strategy != "" {
		lines = append(lines, "Strategy: "+signal.Strategy)
	}
	if signal.Reason != "" {
		lines = append(lines, "Reason: "+signal.Reason)
	}
	at := signal.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	lines = append(lines, "Time: "+at.In(core.Shanghai).Format(timeLayout))
	return lines
}

// ReportTitle is the headline used for the daily report.
func ReportTitle(report Report) string {
	return "Daily report " + report.Date.In(core.Shanghai).Format("2006-01-02")
}

// ReportLines renders the daily report as message lines.
func ReportLines(report Report) []string {
	lines := []string{
		fmt.Sprintf("Total value: %.2f", report.TotalValue),
		fmt.Sprintf("Cash: %.2f", report.Cash),
		fmt.Sprintf("Total profit: %.2f", report.TotalProfit),
	}

	lines = append(lines, fmt.Sprintf("Positions (%d):", len(report.Positions)))
	for _, p := range report.Positions {
		lines = append(lines, fmt.Sprintf("  %s %d @ %.2f, value %.2f, P/L %.2f",
			p.Symbol, p.Quantity, p.AverageCost, p.MarketValue, p.UnrealizedPL))
	}

	lines = append(lines, fmt.Sprintf("Executions today (%d):", len(report.Executions)))
	for _, e := range report.Executions {
		status := "ok"
		if !e.Success {
			status = "failed: " + e.Error
		}
		lines = append(lines, fmt.Sprintf("  %s %s %s %d @ %.2f, %s",
			e.ExecutedAt.In(core.Shanghai).Format("15:04:05"), actionLabel(e.Action), e.Symbol, e.Quantity, e.Price, status))
	}
	return lines
}

func actionLabel(a core.Action) string {
	switch a {
	case core.ActionBuy:
		return "BUY"
	case core.ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

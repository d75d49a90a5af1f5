// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/notifier"
	"github.com/spf13/cast"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Init reads url and headers. Headers decoded by viper arrive as
// map[string]any and are converted to strings.
func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	if raw, ok := cfg.Params["headers"]; ok && raw != nil {
		headers, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return fmt.Errorf("webhook: invalid headers: %w", err)
		}
		w.headers = headers
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Send(signal core.Signal) error {
	return w.post(map[string]any{
		"type":         "signal",
		"symbol":       signal.Symbol,
		"action":       signal.Action,
		"price":        signal.Price,
		"quantity":     signal.Quantity,
		"reason":       signal.Reason,
		"strategy":     signal.Strategy,
		"generated_at": signal.GeneratedAt.Format(time.RFC3339),
	})
}

func (w *Webhook) SendReport(report notifier.Report) error {
	positions := make([]map[string]any, len(report.Positions))
	for i, p := range report.Positions {
		positions[i] = map[string]any{
			"symbol":        p.Symbol,
			"quantity":      p.Quantity,
			"average_cost":  p.AverageCost,
			"market_value":  p.MarketValue,
			"unrealized_pl": p.UnrealizedPL,
		}
	}
	executions := make([]map[string]any, len(report.Executions))
	for i, e := range report.Executions {
		executions[i] = map[string]any{
			"symbol":      e.Symbol,
			"action":      e.Action,
			"quantity":    e.Quantity,
			"price":       e.Price,
			"order_id":    e.OrderID,
			"success":     e.Success,
			"error":       e.Error,
			"executed_at": e.ExecutedAt.Format(time.RFC3339),
		}
	}

	return w.post(map[string]any{
		"type":         "report",
		"date":         report.Date.In(core.Shanghai).Format("2006-01-02"),
		"cash":         report.Cash,
		"total_value":  report.TotalValue,
		"total_profit": report.TotalProfit,
		"positions":    positions,
		"executions":   executions,
	})
}

func (w *Webhook) post(payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}

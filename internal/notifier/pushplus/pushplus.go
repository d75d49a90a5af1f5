// Package pushplus sends notifications through the PushPlus WeChat relay.
package pushplus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/notifier"
)

// DefaultEndpoint is the PushPlus send API.
const DefaultEndpoint = "http://www.pushplus.plus/send"

// PushPlus implements the Notifier interface for PushPlus.
type PushPlus struct {
	token    string
	endpoint string
	client   *http.Client
}

type message struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
}

// response is the PushPlus envelope; code 200 means accepted.
type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// New creates a PushPlus notifier for token.
func New(token string) *PushPlus {
	return &PushPlus{
		token:    token,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *PushPlus) Name() string { return "pushplus" }

func (p *PushPlus) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["token"].(string); ok {
		p.token = token
	}
	if endpoint, ok := cfg.Params["endpoint"].(string); ok && endpoint != "" {
		p.endpoint = endpoint
	}
	if p.token == "" {
		return fmt.Errorf("pushplus: token is required")
	}
	if p.endpoint == "" {
		p.endpoint = DefaultEndpoint
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	return nil
}

func (p *PushPlus) Send(signal core.Signal) error {
	return p.push(notifier.SignalTitle(signal), strings.Join(notifier.SignalLines(signal), "<br>"))
}

func (p *PushPlus) SendReport(report notifier.Report) error {
	return p.push(notifier.ReportTitle(report), strings.Join(notifier.ReportLines(report), "<br>"))
}

func (p *PushPlus) push(title, content string) error {
	body, err := json.Marshal(message{
		Token:    p.token,
		Title:    title,
		Content:  content,
		Template: "html",
	})
	if err != nil {
		return fmt.Errorf("pushplus: failed to marshal payload: %w", err)
	}

	resp, err := p.client.Post(p.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pushplus: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushplus: server returned %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("pushplus: failed to decode response: %w", err)
	}
	if out.Code != http.StatusOK {
		return fmt.Errorf("pushplus: rejected (code %d): %s", out.Code, out.Msg)
	}
	return nil
}

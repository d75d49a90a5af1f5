package pushplus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/notifier"
)

func TestPushPlus_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*PushPlus)(nil)
}

func TestPushPlus_Init(t *testing.T) {
	p := &PushPlus{}
	if err := p.Init(notifier.Config{Params: map[string]any{}}); err == nil {
		t.Error("expected error for missing token")
	}

	if err := p.Init(notifier.Config{Params: map[string]any{"token": "abc"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint, got %s", p.endpoint)
	}
}

func newServer(t *testing.T, code int, got *message) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(got)
		json.NewEncoder(w).Encode(response{Code: code, Msg: "msg"})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPushPlus_Send(t *testing.T) {
	var got message
	server := newServer(t, 200, &got)

	p := New("abc")
	p.endpoint = server.URL

	err := p.Send(core.Signal{
		Symbol:      "600519.SH",
		Action:      core.ActionBuy,
		Price:       1700.5,
		GeneratedAt: time.Date(2024, 1, 15, 2, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Token != "abc" {
		t.Errorf("expected token abc, got %s", got.Token)
	}
	if got.Template != "html" {
		t.Errorf("expected html template, got %s", got.Template)
	}
	if got.Title != "Trade signal: 600519.SH BUY" {
		t.Errorf("unexpected title %s", got.Title)
	}
	if !strings.Contains(got.Content, "Price: 1700.50<br>") {
		t.Errorf("unexpected content %s", got.Content)
	}
}

func TestPushPlus_SendReport(t *testing.T) {
	var got message
	server := newServer(t, 200, &got)

	p := New("abc")
	p.endpoint = server.URL

	if err := p.SendReport(notifier.Report{Date: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Daily report 2024-01-15" {
		t.Errorf("unexpected title %s", got.Title)
	}
}

func TestPushPlus_Rejected(t *testing.T) {
	var got message
	server := newServer(t, 903, &got)

	p := New("bad-token")
	p.endpoint = server.URL

	err := p.Send(core.Signal{Symbol: "600519.SH", Action: core.ActionSell})
	if err == nil || !strings.Contains(err.Error(), "903") {
		t.Errorf("expected rejection error, got %v", err)
	}
}

func TestPushPlus_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := New("abc")
	p.endpoint = server.URL

	if err := p.Send(core.Signal{Symbol: "600519.SH", Action: core.ActionBuy}); err == nil {
		t.Error("expected error for 502")
	}
}

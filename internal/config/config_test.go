package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
backtest:
  start_date: "2022-01-01"
  end_date: "2022-06-30"
  initial_capital: 500000

strategy:
  name: ma_crossover
  params:
    short_period: 10
    long_period: 30

trading:
  stock_pool: ["600519.SH", "000001.SZ"]

monitor:
  refresh_interval: 5s
  trading_hours:
    - start: "09:30"
      end: "11:30"

notifiers:
  webhook:
    enabled: true
    url: "http://example.com/hook"
    headers:
      Authorization: "Bearer x"

storage:
  archive:
    type: localfs
    path: "/tmp/ashare/reports"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backtest.InitialCapital != 500000 {
		t.Errorf("expected capital 500000, got %f", cfg.Backtest.InitialCapital)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Backtest.CommissionRate != 0.0003 {
		t.Errorf("expected default commission 0.0003, got %f", cfg.Backtest.CommissionRate)
	}
	if cfg.Backtest.LotSize != 100 {
		t.Errorf("expected default lot 100, got %d", cfg.Backtest.LotSize)
	}
	if cfg.Strategy.Params["long_period"] != 30 {
		t.Errorf("expected long_period 30, got %v", cfg.Strategy.Params["long_period"])
	}
	if len(cfg.Trading.StockPool) != 2 || cfg.Trading.StockPool[1] != "000001.SZ" {
		t.Errorf("unexpected stock pool %v", cfg.Trading.StockPool)
	}
	if cfg.Monitor.RefreshInterval != 5*time.Second {
		t.Errorf("expected refresh 5s, got %s", cfg.Monitor.RefreshInterval)
	}
	if len(cfg.Monitor.TradingHours) != 1 {
		t.Errorf("expected 1 session, got %d", len(cfg.Monitor.TradingHours))
	}
	if cfg.Notifiers["webhook"].URL != "http://example.com/hook" {
		t.Errorf("unexpected webhook url %q", cfg.Notifiers["webhook"].URL)
	}
	if cfg.Storage.Archive.Path != "/tmp/ashare/reports" {
		t.Errorf("unexpected archive path %s", cfg.Storage.Archive.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ASHARE_TEST_PUSHPLUS_TOKEN", "secret-token")
	path := writeConfig(t, `
notifiers:
  pushplus:
    enabled: true
    token: "${ASHARE_TEST_PUSHPLUS_TOKEN}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Notifiers["pushplus"].Token != "secret-token" {
		t.Errorf("expected expanded token, got %q", cfg.Notifiers["pushplus"].Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Backtest.InitialCapital != 1_000_000 {
		t.Errorf("expected default capital 1000000, got %f", cfg.Backtest.InitialCapital)
	}
	if cfg.Trading.MaxPositionPct != 0.3 {
		t.Errorf("expected default max_position_pct 0.3, got %f", cfg.Trading.MaxPositionPct)
	}
	if cfg.Monitor.RefreshInterval != 3*time.Second {
		t.Errorf("expected default refresh 3s, got %s", cfg.Monitor.RefreshInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestBacktestConfig_Range(t *testing.T) {
	start, end, err := Defaults().Backtest.Range()
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, core.Shanghai)) {
		t.Errorf("unexpected start %s", start)
	}
	want := time.Date(2023, 12, 11, 0, 0, 0, 0, core.Shanghai).Add(-time.Nanosecond)
	if !end.Equal(want) {
		t.Errorf("expected inclusive end %s, got %s", want, end)
	}
}

func TestNotifierConfig_Params(t *testing.T) {
	p := NotifierConfig{BotToken: "b", ChatID: "c"}.Params()
	if p["bot_token"] != "b" || p["chat_id"] != "c" {
		t.Errorf("unexpected params %v", p)
	}
	if _, ok := p["url"]; ok {
		t.Error("empty fields should be omitted")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"bad date", func(c *Config) { c.Backtest.StartDate = "2023/01/01" }, core.ErrConfigInvalid},
		{"end before start", func(c *Config) { c.Backtest.EndDate = "2022-12-31" }, core.ErrConfigInvalid},
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, core.ErrConfigInvalid},
		{"commission too high", func(c *Config) { c.Backtest.CommissionRate = 1 }, core.ErrConfigInvalid},
		{"zero lot", func(c *Config) { c.Backtest.LotSize = 0 }, core.ErrConfigInvalid},
		{"no strategy", func(c *Config) { c.Strategy.Name = "" }, core.ErrConfigMissing},
		{"unknown broker", func(c *Config) { c.Trading.Broker = "futu" }, core.ErrConfigInvalid},
		{"position pct above one", func(c *Config) { c.Trading.MaxPositionPct = 1.5 }, core.ErrConfigInvalid},
		{"zero refresh", func(c *Config) { c.Monitor.RefreshInterval = 0 }, core.ErrConfigInvalid},
		{"negative cooldown", func(c *Config) { c.Monitor.Cooldown = -time.Second }, core.ErrConfigInvalid},
		{"bad location", func(c *Config) { c.Monitor.Location = "Mars/Olympus" }, core.ErrConfigInvalid},
		{"inverted session", func(c *Config) {
			c.Monitor.TradingHours = []SessionConfig{{Start: "15:00", End: "13:00"}}
		}, core.ErrConfigInvalid},
		{"pushplus without token", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"pushplus": {Enabled: true}}
		}, core.ErrConfigMissing},
		{"disabled notifier unchecked", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"telegram": {Enabled: false}}
		}, nil},
		{"unknown notifier", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"email": {Enabled: true}}
		}, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) { c.Storage.Archive.Type = "s3" }, core.ErrConfigMissing},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, core.ErrConfigMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

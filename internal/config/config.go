package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/spf13/viper"
)

// DateLayout is the layout of backtest start and end dates.
const DateLayout = "2006-01-02"

type Config struct {
	Backtest  BacktestConfig            `mapstructure:"backtest"`
	Strategy  StrategyConfig            `mapstructure:"strategy"`
	Trading   TradingConfig             `mapstructure:"trading"`
	Monitor   MonitorConfig             `mapstructure:"monitor"`
	Collector CollectorConfig           `mapstructure:"collector"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type BacktestConfig struct {
	StartDate      string  `mapstructure:"start_date"`
	EndDate        string  `mapstructure:"end_date"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	LotSize        int64   `mapstructure:"lot_size"`
}

// Range parses the backtest dates as Shanghai calendar days. The end date is
// inclusive, so the returned end is the last instant of that day.
func (b BacktestConfig) Range() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout, b.StartDate, core.Shanghai)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.ParseInLocation(DateLayout, b.EndDate, core.Shanghai)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), nil
}

type StrategyConfig struct {
	Name   string         `mapstructure:"name"`
	Params map[string]any `mapstructure:"params"`
}

type TradingConfig struct {
	Broker         string      `mapstructure:"broker"`
	MaxPositionPct float64     `mapstructure:"max_position_pct"`
	StockPool      []string    `mapstructure:"stock_pool"`
	Paper          PaperConfig `mapstructure:"paper"`
}

// PaperConfig holds settings of the simulated broker.
type PaperConfig struct {
	InitialCash    float64 `mapstructure:"initial_cash"`
	CommissionRate float64 `mapstructure:"commission_rate"`
}

type MonitorConfig struct {
	RefreshInterval time.Duration   `mapstructure:"refresh_interval"`
	HistoryDays     int             `mapstructure:"history_days"`
	TradingHours    []SessionConfig `mapstructure:"trading_hours"`
	Cooldown        time.Duration   `mapstructure:"cooldown"`
	Location        string          `mapstructure:"location"`
}

// SessionConfig is one continuous trading session as local "HH:MM" times.
type SessionConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type CollectorConfig struct {
	Provider   string        `mapstructure:"provider"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// CacheDir enables the Parquet bar cache when set.
	CacheDir string `mapstructure:"cache_dir"`
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// PushPlus notifier fields
	Token string `mapstructure:"token"`
	// Telegram notifier fields
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Params flattens the notifier settings into the form notifiers Init from.
func (n NotifierConfig) Params() map[string]any {
	params := map[string]any{}
	set := func(key, val string) {
		if val != "" {
			params[key] = val
		}
	}
	set("token", n.Token)
	set("bot_token", n.BotToken)
	set("chat_id", n.ChatID)
	set("url", n.URL)
	if len(n.Headers) > 0 {
		params["headers"] = n.Headers
	}
	return params
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
	Journal JournalConfig `mapstructure:"journal"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// JournalConfig holds the live signal journal settings. An empty path keeps
// the journal in memory.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Backtest: BacktestConfig{
			StartDate:      "2023-01-01",
			EndDate:        "2023-12-10",
			InitialCapital: 1_000_000,
			CommissionRate: 0.0003,
			LotSize:        100,
		},
		Strategy: StrategyConfig{
			Name: "ma_crossover",
			Params: map[string]any{
				"short_period": 5,
				"long_period":  20,
			},
		},
		Trading: TradingConfig{
			Broker:         "paper",
			MaxPositionPct: 0.3,
			Paper: PaperConfig{
				InitialCash:    1_000_000,
				CommissionRate: 0.0003,
			},
		},
		Monitor: MonitorConfig{
			RefreshInterval: 3 * time.Second,
			HistoryDays:     60,
			TradingHours: []SessionConfig{
				{Start: "09:30", End: "11:30"},
				{Start: "13:00", End: "15:00"},
			},
			Cooldown: 1 * time.Hour,
			Location: "Asia/Shanghai",
		},
		Collector: CollectorConfig{
			Provider:   "eastmoney",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "./data/reports",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Backtest validation
	start, end, err := c.Backtest.Range()
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if !end.After(start) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end_date %s is before start_date %s", c.Backtest.EndDate, c.Backtest.StartDate))
	}
	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_rate must be in [0, 1), got %f", c.Backtest.CommissionRate))
	}
	if c.Backtest.LotSize <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lot_size must be positive, got %d", c.Backtest.LotSize))
	}

	if c.Strategy.Name == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy name"))
	}

	// Trading validation
	switch c.Trading.Broker {
	case "", "paper":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unsupported broker %q", c.Trading.Broker))
	}
	if c.Trading.MaxPositionPct <= 0 || c.Trading.MaxPositionPct > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_position_pct must be in (0, 1], got %f", c.Trading.MaxPositionPct))
	}

	// Monitor validation
	if c.Monitor.RefreshInterval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("refresh_interval must be positive, got %s", c.Monitor.RefreshInterval))
	}
	if c.Monitor.HistoryDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history_days must be positive, got %d", c.Monitor.HistoryDays))
	}
	if c.Monitor.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooldown cannot be negative, got %s", c.Monitor.Cooldown))
	}
	if c.Monitor.Location != "" {
		if _, err := time.LoadLocation(c.Monitor.Location); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("location: %w", err))
		}
	}
	for i, s := range c.Monitor.TradingHours {
		open, err1 := time.Parse("15:04", s.Start)
		closing, err2 := time.Parse("15:04", s.End)
		if err1 != nil || err2 != nil || !closing.After(open) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("trading_hours[%d] %q-%q is not a valid HH:MM range", i, s.Start, s.End))
		}
	}

	// Notifier validation - enabled notifiers need their credentials
	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "pushplus":
			if n.Token == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("pushplus token required when enabled"))
			}
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("telegram bot_token and chat_id required when enabled"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("webhook url required when enabled"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q", name))
		}
	}

	// Storage validation
	switch c.Storage.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics addr required when metrics are enabled"))
	}

	return nil
}

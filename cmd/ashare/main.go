package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/ashare/internal/broker"
	"github.com/newthinker/ashare/internal/broker/paper"
	"github.com/newthinker/ashare/internal/collector"
	"github.com/newthinker/ashare/internal/collector/cached"
	"github.com/newthinker/ashare/internal/collector/eastmoney"
	"github.com/newthinker/ashare/internal/config"
	"github.com/newthinker/ashare/internal/monitor"
	"github.com/newthinker/ashare/internal/notifier"
	"github.com/newthinker/ashare/internal/notifier/pushplus"
	"github.com/newthinker/ashare/internal/notifier/telegram"
	"github.com/newthinker/ashare/internal/notifier/webhook"
	"github.com/newthinker/ashare/internal/storage/barstore"
	"github.com/newthinker/ashare/internal/strategy"
	"github.com/newthinker/ashare/internal/strategy/ma_crossover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "ashare",
	Short: "ashare - moving average crossover trading for A-shares",
	Long: `ashare backtests a moving average crossover strategy on Shanghai and
Shenzhen listed stocks and runs it live against a paper broker.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config, or the defaults when it is not given, and
// validates the result.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newStrategies(log *zap.Logger) *strategy.Registry {
	reg := strategy.NewRegistry(log)
	reg.Register(ma_crossover.Name, ma_crossover.Factory)
	return reg
}

// splitSymbols parses a comma separated symbol list.
func splitSymbols(s string) []string {
	var out []string
	for _, sym := range strings.Split(s, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// newCollector opens the configured quote provider. History is served
// through the Parquet cache when collector.cache_dir is set.
func newCollector(cfg config.CollectorConfig, log *zap.Logger) (collector.Collector, collector.HistorySource, error) {
	reg := collector.NewRegistry()
	reg.Register(eastmoney.New(eastmoney.WithLogger(log.Named("eastmoney"))))

	c, err := reg.Open(cfg.Provider, collector.Config{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	})
	if err != nil {
		return nil, nil, err
	}

	var history collector.HistorySource = c
	if cfg.CacheDir != "" {
		history = cached.New(c, barstore.NewParquetStore(cfg.CacheDir), log.Named("cache"))
		log.Info("bar cache enabled", zap.String("dir", cfg.CacheDir))
	}
	return c, history, nil
}

func newBroker(cfg config.TradingConfig, log *zap.Logger) (broker.Broker, error) {
	switch cfg.Broker {
	case "", paper.Name:
		pc := paper.DefaultConfig()
		if cfg.Paper.InitialCash > 0 {
			pc.InitialCash = cfg.Paper.InitialCash
		}
		if cfg.Paper.CommissionRate > 0 {
			pc.CommissionRate = cfg.Paper.CommissionRate
		}
		return paper.New(pc, paper.WithLogger(log.Named("paper"))), nil
	default:
		return nil, fmt.Errorf("unknown broker: %s", cfg.Broker)
	}
}

// newNotifiers initializes every enabled notifier, in name order.
func newNotifiers(cfgs map[string]config.NotifierConfig, log *zap.Logger) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nc := cfgs[name]
		if !nc.Enabled {
			continue
		}
		var n notifier.Notifier
		switch name {
		case "pushplus":
			n = pushplus.New("")
		case "telegram":
			n = telegram.New("", "")
		case "webhook":
			n = webhook.New("", nil)
		default:
			return nil, fmt.Errorf("unknown notifier: %s", name)
		}
		if err := n.Init(notifier.Config{Type: name, Params: nc.Params()}); err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
		log.Info("notifier enabled", zap.String("notifier", name))
	}
	return reg, nil
}

func newCalendar(cfg config.MonitorConfig) (monitor.Calendar, error) {
	var loc *time.Location
	if cfg.Location != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Location); err != nil {
			return monitor.Calendar{}, fmt.Errorf("location: %w", err)
		}
	}
	sessions := make([]monitor.Session, 0, len(cfg.TradingHours))
	for _, h := range cfg.TradingHours {
		s, err := monitor.ParseSession(h.Start, h.End)
		if err != nil {
			return monitor.Calendar{}, err
		}
		sessions = append(sessions, s)
	}
	return monitor.NewCalendar(loc, sessions), nil
}

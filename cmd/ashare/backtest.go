package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/newthinker/ashare/internal/backtest"
	"github.com/newthinker/ashare/internal/logger"
	"github.com/newthinker/ashare/internal/metrics"
	"github.com/newthinker/ashare/internal/report"
	"github.com/newthinker/ashare/internal/storage/archive"
	"github.com/newthinker/ashare/internal/strategy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestSymbols    string
	backtestFrom       string
	backtestTo         string
	backtestStrategy   string
	backtestShort      int
	backtestLong       int
	backtestCapital    float64
	backtestCommission float64
	backtestLot        int64
	backtestExport     bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy over historical data",
	Long: `Run a strategy against daily history of each symbol and print its
performance. Symbols run independently; a failing symbol is reported and the
others continue.`,
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestSymbols, "symbols", "", "comma separated symbols (default trading.stock_pool)")
	f.StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD (default backtest.start_date)")
	f.StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD, inclusive (default backtest.end_date)")
	f.StringVar(&backtestStrategy, "strategy", "", "strategy name (default strategy.name)")
	f.IntVar(&backtestShort, "short", 0, "short moving average period")
	f.IntVar(&backtestLong, "long", 0, "long moving average period")
	f.Float64Var(&backtestCapital, "capital", 0, "initial capital")
	f.Float64Var(&backtestCommission, "commission", 0, "commission rate per side")
	f.Int64Var(&backtestLot, "lot", 0, "board lot size")
	f.BoolVar(&backtestExport, "export", false, "archive results as JSON")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("from") {
		cfg.Backtest.StartDate = backtestFrom
	}
	if flags.Changed("to") {
		cfg.Backtest.EndDate = backtestTo
	}
	if flags.Changed("strategy") {
		cfg.Strategy.Name = backtestStrategy
	}
	if flags.Changed("capital") {
		cfg.Backtest.InitialCapital = backtestCapital
	}
	if flags.Changed("commission") {
		cfg.Backtest.CommissionRate = backtestCommission
	}
	if flags.Changed("lot") {
		cfg.Backtest.LotSize = backtestLot
	}
	params := make(map[string]any, len(cfg.Strategy.Params)+2)
	for k, v := range cfg.Strategy.Params {
		params[k] = v
	}
	if flags.Changed("short") {
		params["short_period"] = backtestShort
	}
	if flags.Changed("long") {
		params["long_period"] = backtestLong
	}

	symbols := cfg.Trading.StockPool
	if backtestSymbols != "" {
		symbols = splitSymbols(backtestSymbols)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols: pass --symbols or set trading.stock_pool")
	}

	start, end, err := cfg.Backtest.Range()
	if err != nil {
		return fmt.Errorf("invalid date range: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("end date must be after start date")
	}

	strat, err := newStrategies(log).Build(cfg.Strategy.Name, strategy.Config{Params: params})
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionRate: cfg.Backtest.CommissionRate,
		LotSize:        cfg.Backtest.LotSize,
	}, log.Named("engine"))
	if err != nil {
		return err
	}

	_, history, err := newCollector(cfg.Collector, log)
	if err != nil {
		return err
	}

	var store archive.Storage
	if backtestExport {
		store, err = archive.Open(archive.Config{
			Type: cfg.Storage.Archive.Type,
			Path: cfg.Storage.Archive.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Storage.Archive.S3.Bucket,
				Endpoint:  cfg.Storage.Archive.S3.Endpoint,
				Region:    cfg.Storage.Archive.S3.Region,
				AccessKey: cfg.Storage.Archive.S3.AccessKey,
				SecretKey: cfg.Storage.Archive.S3.SecretKey,
				Prefix:    cfg.Storage.Archive.S3.Prefix,
			},
		})
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
	}

	bt := backtest.New(history, engine,
		backtest.WithLogger(log),
		backtest.WithRecorder(metrics.NewRegistry()),
	)

	fmt.Println("=== ashare backtest ===")
	fmt.Printf("Strategy: %s\n", strat.Name())
	fmt.Printf("Symbols:  %v\n", symbols)
	fmt.Printf("Period:   %s to %s\n", cfg.Backtest.StartDate, cfg.Backtest.EndDate)
	fmt.Println()

	ctx := context.Background()
	items := bt.RunBatch(ctx, strat, symbols, start, end)

	now := time.Now()
	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
			fmt.Printf("=== %s ===\nFAILED: %v\n\n", it.Symbol, it.Err)
			continue
		}
		if err := report.Print(os.Stdout, it.Result); err != nil {
			return err
		}
		if store != nil {
			key, err := report.Export(ctx, store, it.Result, now)
			if err != nil {
				log.Warn("export failed", zap.String("symbol", it.Symbol), zap.Error(err))
				continue
			}
			log.Info("result exported", zap.String("symbol", it.Symbol), zap.String("path", key))
		}
	}

	if len(items) > 1 {
		if err := report.Summary(os.Stdout, items); err != nil {
			return err
		}
	}

	log.Info("backtest finished",
		zap.Int("symbols", len(items)),
		zap.Int("failed", failed),
	)
	if failed == len(items) {
		return fmt.Errorf("all %d backtests failed", failed)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/ashare/internal/broker"
	"github.com/newthinker/ashare/internal/logger"
	"github.com/newthinker/ashare/internal/metrics"
	"github.com/newthinker/ashare/internal/monitor"
	"github.com/newthinker/ashare/internal/router"
	"github.com/newthinker/ashare/internal/storage/journal"
	"github.com/newthinker/ashare/internal/strategy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var liveSymbols string

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Trade the strategy on live quotes",
	Long: `Poll live quotes during trading hours, send signals to the configured
notifiers and execute them on the broker. Runs until interrupted.`,
	RunE: runLive,
}

func init() {
	liveCmd.Flags().StringVar(&liveSymbols, "symbols", "", "comma separated symbols (default trading.stock_pool)")
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	symbols := cfg.Trading.StockPool
	if liveSymbols != "" {
		symbols = splitSymbols(liveSymbols)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols: pass --symbols or set trading.stock_pool")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat, err := newStrategies(log).Build(cfg.Strategy.Name, strategy.Config{Params: cfg.Strategy.Params})
	if err != nil {
		return err
	}

	quotes, history, err := newCollector(cfg.Collector, log)
	if err != nil {
		return err
	}

	b, err := newBroker(cfg.Trading, log)
	if err != nil {
		return err
	}
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer b.Disconnect()

	book := strategy.NewPositionBook()
	if pk, ok := strat.(strategy.PositionKeeper); ok {
		book = pk.Positions()
	}
	if err := broker.SyncBook(ctx, b, book); err != nil {
		return err
	}
	if err := logAccount(ctx, b, log); err != nil {
		return err
	}

	var store journal.Store
	if cfg.Storage.Journal.Path != "" {
		store, err = journal.NewSQLiteStore(cfg.Storage.Journal.Path)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
	} else {
		store = journal.NewMemoryStore(10_000)
		log.Warn("no journal path configured, keeping signals in memory")
	}
	defer store.Close()

	notifiers, err := newNotifiers(cfg.Notifiers, log)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	rcfg := router.DefaultConfig()
	rcfg.Cooldown = cfg.Monitor.Cooldown
	rt := router.New(rcfg, notifiers, log.Named("router"),
		router.WithJournal(store),
		router.WithRecorder(reg),
	)
	if rcfg.Cooldown > 0 {
		rt.StartCleanupRoutine(ctx, rcfg.Cooldown)
	}

	cal, err := newCalendar(cfg.Monitor)
	if err != nil {
		return err
	}

	mon, err := monitor.New(monitor.Config{
		Symbols:         symbols,
		RefreshInterval: cfg.Monitor.RefreshInterval,
		HistoryDays:     cfg.Monitor.HistoryDays,
		Calendar:        cal,
		Sizer: broker.Sizer{
			MaxPositionPct: cfg.Trading.MaxPositionPct,
			LotSize:        cfg.Backtest.LotSize,
		},
	}, monitor.Deps{
		Strategy:  strat,
		History:   history,
		Quotes:    quotes,
		Executor:  broker.NewExecutor(b, log.Named("executor")),
		Router:    rt,
		Journal:   store,
		Notifiers: notifiers,
		Book:      book,
	}, monitor.WithLogger(log.Named("monitor")), monitor.WithRecorder(reg))
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg, log.Named("metrics"))
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	log.Info("starting live trading",
		zap.String("broker", b.Name()),
		zap.Int("notifiers", notifiers.Len()),
		zap.Strings("symbols", symbols),
	)

	err = mon.Start(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

func logAccount(ctx context.Context, b broker.Broker, log *zap.Logger) error {
	balance, err := b.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("getting balance: %w", err)
	}
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("getting positions: %w", err)
	}

	log.Info("account",
		zap.Float64("cash", balance.Cash),
		zap.Float64("total_value", balance.TotalValue),
		zap.Int("positions", len(positions)),
	)
	for _, p := range positions {
		log.Info("position",
			zap.String("symbol", p.Symbol),
			zap.Int64("quantity", p.Quantity),
			zap.Float64("average_cost", p.AverageCost),
		)
	}
	return nil
}

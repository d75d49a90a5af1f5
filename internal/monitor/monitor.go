// Package monitor drives a strategy against live quotes during trading hours
// and turns its signals into orders and notifications.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/ashare/internal/broker"
	"github.com/newthinker/ashare/internal/collector"
	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/notifier"
	"github.com/newthinker/ashare/internal/router"
	"github.com/newthinker/ashare/internal/storage/journal"
	"github.com/newthinker/ashare/internal/strategy"
	"go.uber.org/zap"
)

// Config holds monitor settings.
type Config struct {
	Symbols         []string
	Interval        string // bar interval of the history, "1d" by default
	RefreshInterval time.Duration
	HistoryDays     int
	Calendar        Calendar
	Sizer           broker.Sizer
}

// Recorder observes monitor activity.
type Recorder interface {
	ObserveSignal(strategy string, action core.Action)
	ObserveOrder(side, status string)
	ObserveCycle(d time.Duration)
	SetPoolSize(size int)
}

// Deps are the collaborators of a Monitor. Notifiers may be nil.
type Deps struct {
	Strategy  strategy.Strategy
	History   collector.HistorySource
	Quotes    collector.QuoteSource
	Executor  *broker.Executor
	Router    *router.Router
	Journal   journal.Store
	Notifiers *notifier.Registry
	Book      *strategy.PositionBook
}

type historyEntry struct {
	day  string
	bars []core.Bar
}

// Monitor is the live trading loop.
type Monitor struct {
	cfg      Config
	deps     Deps
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time

	mu         sync.Mutex
	cache      map[string]historyEntry
	lastReport string
	running    bool
	cancel     context.CancelFunc
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder reports activity to rec.
func WithRecorder(rec Recorder) Option {
	return func(m *Monitor) { m.recorder = rec }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New creates a Monitor.
func New(cfg Config, deps Deps, opts ...Option) (*Monitor, error) {
	switch {
	case deps.Strategy == nil:
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("monitor strategy"))
	case deps.History == nil || deps.Quotes == nil:
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("monitor data source"))
	case deps.Executor == nil:
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("monitor executor"))
	case deps.Journal == nil:
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("monitor journal"))
	}
	if cfg.RefreshInterval <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("refresh interval %s", cfg.RefreshInterval))
	}
	if cfg.HistoryDays <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("history days %d", cfg.HistoryDays))
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	if cfg.Calendar.loc == nil {
		cfg.Calendar = NewCalendar(nil, cfg.Calendar.sessions)
	}
	if cfg.Sizer.MaxPositionPct <= 0 {
		cfg.Sizer.MaxPositionPct = broker.DefaultMaxPositionPct
	}
	if cfg.Sizer.LotSize <= 0 {
		cfg.Sizer.LotSize = 100
	}
	if deps.Book == nil {
		if pk, ok := deps.Strategy.(strategy.PositionKeeper); ok {
			deps.Book = pk.Positions()
		} else {
			deps.Book = strategy.NewPositionBook()
		}
	}
	if deps.Router == nil {
		deps.Router = router.New(router.DefaultConfig(), deps.Notifiers, nil)
	}

	m := &Monitor{
		cfg:    cfg,
		deps:   deps,
		logger: zap.NewNop(),
		now:    time.Now,
		cache:  make(map[string]historyEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start runs a cycle immediately and then every RefreshInterval until ctx is
// done or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	m.running = true
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.logger.Info("monitor starting",
		zap.Strings("symbols", m.cfg.Symbols),
		zap.String("strategy", m.deps.Strategy.Name()),
		zap.Duration("refresh_interval", m.cfg.RefreshInterval),
	)
	if m.recorder != nil {
		m.recorder.SetPoolSize(len(m.cfg.Symbols))
	}

	m.RunOnce(ctx)

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// Stop stops a running monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// RunOnce performs one cycle: outside trading hours it only sends the daily
// report when due, inside it evaluates every symbol. A failing symbol is
// logged and does not affect the others.
func (m *Monitor) RunOnce(ctx context.Context) {
	now := m.now()
	cal := m.cfg.Calendar

	if !cal.IsTradingTime(now) {
		if cal.AfterClose(now) {
			m.maybeReport(ctx, now)
		}
		m.logger.Debug("outside trading hours, skipping", zap.Time("now", now))
		return
	}

	start := time.Now()
	for _, symbol := range m.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		if err := m.processSymbol(ctx, symbol, now); err != nil {
			m.logger.Error("symbol cycle failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}
	if m.recorder != nil {
		m.recorder.ObserveCycle(time.Since(start))
	}
}

func (m *Monitor) processSymbol(ctx context.Context, symbol string, now time.Time) error {
	history, err := m.history(ctx, symbol, now)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("no history for %s", symbol))
	}

	quote, err := m.deps.Quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return err
	}
	if quote == nil || !quote.IsValid() {
		return core.WrapError(core.ErrNoData, fmt.Errorf("invalid quote for %s", symbol))
	}

	live := core.BarFromQuote(*quote, m.cfg.Interval)
	if live.Time.IsZero() || !live.Time.After(history[len(history)-1].Time) {
		live.Time = now
	}
	window := make([]core.Bar, len(history), len(history)+1)
	copy(window, history)
	window = append(window, live)

	strat := m.deps.Strategy
	sig, err := strat.Evaluate(window, symbol)
	if err != nil {
		return core.WrapError(core.ErrStrategyFailed, err)
	}
	if m.recorder != nil {
		m.recorder.ObserveSignal(strat.Name(), sig.Action)
	}
	if !sig.IsActionable() {
		return nil
	}

	m.logger.Info("signal detected",
		zap.String("symbol", symbol),
		zap.String("action", string(sig.Action)),
		zap.Float64("price", sig.Price),
		zap.String("reason", sig.Reason),
	)

	qty, err := m.size(ctx, sig)
	if err != nil {
		return err
	}
	if qty <= 0 {
		m.logger.Debug("signal not tradable",
			zap.String("symbol", symbol),
			zap.String("action", string(sig.Action)),
		)
		return nil
	}
	sig.Quantity = qty

	if _, err := m.deps.Router.Route(ctx, sig); err != nil {
		return err
	}
	return m.execute(ctx, sig, now)
}

// history returns the cached bars of symbol before today, refreshing the
// cache once per local day.
func (m *Monitor) history(ctx context.Context, symbol string, now time.Time) ([]core.Bar, error) {
	cal := m.cfg.Calendar
	day := cal.Day(now)

	m.mu.Lock()
	entry, ok := m.cache[symbol]
	m.mu.Unlock()
	if ok && entry.day == day {
		return entry.bars, nil
	}

	today := cal.StartOfDay(now)
	start := today.AddDate(0, 0, -m.cfg.HistoryDays)
	bars, err := m.deps.History.FetchHistory(ctx, symbol, start, now, m.cfg.Interval)
	if err != nil {
		return nil, err
	}

	// Today's partial bar would duplicate the live quote.
	kept := bars[:0:0]
	for _, b := range bars {
		if b.Time.Before(today) {
			kept = append(kept, b)
		}
	}

	m.mu.Lock()
	m.cache[symbol] = historyEntry{day: day, bars: kept}
	m.mu.Unlock()

	m.logger.Debug("history loaded",
		zap.String("symbol", symbol),
		zap.Int("bars", len(kept)),
	)
	return kept, nil
}

// size returns the order quantity for sig: a lot-rounded share of cash for
// a buy while flat, the whole holding for a sell. Zero means skip.
func (m *Monitor) size(ctx context.Context, sig core.Signal) (int64, error) {
	b := m.deps.Executor.Broker()

	positions, err := b.GetPositions(ctx)
	if err != nil {
		return 0, err
	}
	var held int64
	for _, p := range positions {
		if p.Symbol == sig.Symbol {
			held = p.Quantity
			break
		}
	}

	switch sig.Action {
	case core.ActionBuy:
		if held > 0 {
			return 0, nil
		}
		balance, err := b.GetBalance(ctx)
		if err != nil {
			return 0, err
		}
		return m.cfg.Sizer.BuyQuantity(*balance, sig.Price), nil
	case core.ActionSell:
		return m.cfg.Sizer.SellQuantity(held), nil
	}
	return 0, nil
}

func (m *Monitor) execute(ctx context.Context, sig core.Signal, now time.Time) error {
	order, execErr := m.deps.Executor.Execute(ctx, sig)

	exec := journal.Execution{
		Symbol:     sig.Symbol,
		Strategy:   sig.Strategy,
		Action:     sig.Action,
		Quantity:   sig.Quantity,
		Price:      sig.Price,
		Success:    execErr == nil,
		ExecutedAt: now,
	}
	status := "filled"
	if order != nil {
		exec.OrderID = order.OrderID
		status = strings.ToLower(string(order.Status))
	}
	if execErr != nil {
		exec.Error = execErr.Error()
		if order == nil {
			status = "error"
		}
	}
	if m.recorder != nil {
		m.recorder.ObserveOrder(string(sig.Action), status)
	}
	if _, err := m.deps.Journal.SaveExecution(ctx, exec); err != nil {
		m.logger.Error("failed to journal execution", zap.Error(err))
	}

	if execErr != nil {
		return execErr
	}

	switch sig.Action {
	case core.ActionBuy:
		m.deps.Book.Update(sig.Symbol, sig.Quantity)
	case core.ActionSell:
		m.deps.Book.Update(sig.Symbol, 0)
	}
	return nil
}

// maybeReport sends the daily report once per trading day.
func (m *Monitor) maybeReport(ctx context.Context, now time.Time) {
	cal := m.cfg.Calendar
	day := cal.Day(now)

	m.mu.Lock()
	if m.lastReport == day {
		m.mu.Unlock()
		return
	}
	m.lastReport = day
	m.mu.Unlock()

	report, err := m.BuildReport(ctx, now)
	if err != nil {
		m.logger.Error("failed to build daily report", zap.Error(err))
		return
	}

	if m.deps.Notifiers == nil {
		return
	}
	for name, err := range m.deps.Notifiers.NotifyReport(*report) {
		m.logger.Error("daily report failed",
			zap.String("notifier", name),
			zap.Error(err),
		)
	}
	m.logger.Info("daily report sent",
		zap.String("day", day),
		zap.Float64("total_profit", report.TotalProfit),
		zap.Int("executions", len(report.Executions)),
	)
}

// BuildReport assembles the account summary of now's local day.
func (m *Monitor) BuildReport(ctx context.Context, now time.Time) (*notifier.Report, error) {
	b := m.deps.Executor.Broker()

	balance, err := b.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	executions, err := m.deps.Journal.ListExecutions(ctx, journal.ListFilter{
		From: m.cfg.Calendar.StartOfDay(now),
		To:   now,
	})
	if err != nil {
		return nil, err
	}

	return &notifier.Report{
		Date:        now,
		Cash:        balance.Cash,
		TotalValue:  balance.TotalValue,
		TotalProfit: broker.TotalUnrealizedPL(positions),
		Positions:   positions,
		Executions:  executions,
	}, nil
}

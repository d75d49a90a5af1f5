package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistoryProvider defines the interface for fetching historical bars
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error)
}

// Recorder receives run outcomes, typically for Prometheus.
type Recorder interface {
	ObserveBacktest(strategy, status string, duration time.Duration)
	ObserveTrade(action core.Action)
}

// Backtester fetches history and runs the engine for one or many symbols.
type Backtester struct {
	provider    HistoryProvider
	engine      *Engine
	logger      *zap.Logger
	recorder    Recorder
	concurrency int
}

// Option configures a Backtester.
type Option func(*Backtester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) { b.recorder = r }
}

// WithConcurrency limits how many symbols of a batch run at once.
func WithConcurrency(n int) Option {
	return func(b *Backtester) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// New creates a new Backtester with the given history provider and engine
func New(provider HistoryProvider, engine *Engine, opts ...Option) *Backtester {
	b := &Backtester{
		provider:    provider,
		engine:      engine,
		logger:      zap.NewNop(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes a backtest for the given strategy and symbol over the specified time range
func (b *Backtester) Run(ctx context.Context, strat strategy.Strategy, symbol string, start, end time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	began := time.Now()
	res, err := b.run(ctx, strat, symbol, start, end)
	b.observe(strat.Name(), res, err, time.Since(began))
	return res, err
}

func (b *Backtester) run(ctx context.Context, strat strategy.Strategy, symbol string, start, end time.Time) (*Result, error) {
	bars, err := b.provider.FetchHistory(ctx, symbol, start, end, "1d")
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: %w", symbol, err))
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: empty history %s..%s",
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	return b.engine.Run(strat, bars, symbol)
}

func (b *Backtester) observe(strategyName string, res *Result, err error, d time.Duration) {
	if b.recorder == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.recorder.ObserveBacktest(strategyName, status, d)
	if res != nil {
		for _, t := range res.Trades {
			b.recorder.ObserveTrade(t.Action)
		}
	}
}

// BatchItem is the outcome for one symbol of a batch. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Symbol string
	Result *Result
	Err    error
}

// RunBatch backtests every symbol independently. A failing symbol never stops
// the others; items are returned in the order of symbols.
func (b *Backtester) RunBatch(ctx context.Context, strat strategy.Strategy, symbols []string, start, end time.Time) []BatchItem {
	items := make([]BatchItem, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, sym := range symbols {
		g.Go(func() error {
			items[i].Symbol = sym
			res, err := b.Run(gctx, strat, sym, start, end)
			if err != nil {
				b.logger.Warn("backtest failed",
					zap.String("symbol", sym),
					zap.String("strategy", strat.Name()),
					zap.Error(err),
				)
				items[i].Err = err
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	return items
}

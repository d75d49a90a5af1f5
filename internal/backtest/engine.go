package backtest

import (
	"fmt"
	"math"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/strategy"
	"go.uber.org/zap"
)

// Engine replays a bar series through a strategy under a long-only,
// all-in/all-out account with flat commission.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates an engine for cfg. A nil logger disables logging.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns the account settings of the engine.
func (e *Engine) Config() Config {
	return e.cfg
}

// state is the account of a single run.
type state struct {
	cash       float64
	position   int64
	entryPrice float64
	mark       float64 // last valid close
	trades     []Trade
	equity     []EquityPoint
}

// Run executes strat over bars. Each call owns its own state; the engine can
// be shared between goroutines.
func (e *Engine) Run(strat strategy.Strategy, bars []core.Bar, symbol string) (*Result, error) {
	if err := checkOrdered(bars); err != nil {
		return nil, err
	}

	log := e.logger.With(zap.String("symbol", symbol), zap.String("strategy", strat.Name()))
	log.Debug("backtest started", zap.Int("bars", len(bars)))

	st := &state{
		cash:   e.cfg.InitialCapital,
		equity: make([]EquityPoint, 0, len(bars)),
	}

	for i, bar := range bars {
		if i < 1 {
			st.record(bar)
			continue
		}
		if bar.Close <= 0 {
			log.Warn("skipping bar with non-positive close",
				zap.Time("time", bar.Time),
				zap.Float64("close", bar.Close),
			)
			st.record(bar)
			continue
		}

		sig, err := strat.Evaluate(bars[:i+1], symbol)
		if err != nil {
			return nil, core.WrapError(core.ErrStrategyFailed, fmt.Errorf("%s at %s: %w", strat.Name(), bar.Time.Format("2006-01-02"), err))
		}

		switch sig.Action {
		case core.ActionBuy:
			if st.position == 0 {
				e.buy(st, bar, sig, log)
			}
		case core.ActionSell:
			if st.position > 0 {
				e.sell(st, bar, sig, log)
			}
		}

		st.record(bar)
	}

	res := &Result{
		Strategy: strat.Name(),
		Symbol:   symbol,
		Config:   e.cfg,
		Equity:   st.equity,
		Trades:   st.trades,
		Metrics:  CalculateMetrics(st.equity, st.trades),
	}

	log.Info("backtest finished",
		zap.Int("bars", len(bars)),
		zap.Int("trades", res.Metrics.TradeCount),
		zap.Float64("total_return", res.Metrics.TotalReturn),
		zap.Float64("final_equity", res.FinalEquity()),
	)
	return res, nil
}

func (e *Engine) buy(st *state, bar core.Bar, sig core.Signal, log *zap.Logger) {
	price := bar.Close
	lot := e.cfg.LotSize
	rate := e.cfg.CommissionRate

	available := st.cash * (1 - rate)
	qty := int64(math.Floor(available/price/float64(lot))) * lot
	if qty <= 0 {
		log.Debug("buy skipped, cash below one lot",
			zap.Float64("cash", st.cash),
			zap.Float64("price", price),
		)
		return
	}

	cost := float64(qty) * price * (1 + rate)
	for cost > st.cash && qty > 0 {
		log.Warn("buy cost exceeds cash, reducing by one lot",
			zap.Int64("quantity", qty),
			zap.Float64("cost", cost),
			zap.Float64("cash", st.cash),
		)
		qty -= lot
		cost = float64(qty) * price * (1 + rate)
	}
	if qty <= 0 {
		return
	}

	st.cash -= cost
	st.position = qty
	st.entryPrice = price
	st.trades = append(st.trades, Trade{
		Time:     bar.Time,
		Action:   core.ActionBuy,
		Price:    price,
		Quantity: qty,
		Reason:   sig.Reason,
	})
	log.Debug("buy filled",
		zap.Time("time", bar.Time),
		zap.Float64("price", price),
		zap.Int64("quantity", qty),
		zap.Float64("cash", st.cash),
	)
}

func (e *Engine) sell(st *state, bar core.Bar, sig core.Signal, log *zap.Logger) {
	price := bar.Close
	qty := st.position

	st.cash += float64(qty) * price * (1 - e.cfg.CommissionRate)
	profit := (price - st.entryPrice) / st.entryPrice
	st.trades = append(st.trades, Trade{
		Time:     bar.Time,
		Action:   core.ActionSell,
		Price:    price,
		Quantity: qty,
		Profit:   &profit,
		Reason:   sig.Reason,
	})
	st.position = 0
	st.entryPrice = 0
	log.Debug("sell filled",
		zap.Time("time", bar.Time),
		zap.Float64("price", price),
		zap.Int64("quantity", qty),
		zap.Float64("profit", profit),
	)
}

// record appends the equity point for bar, marking the position at the bar's
// close or at the last valid close when the bar has none.
func (st *state) record(bar core.Bar) {
	if bar.Close > 0 {
		st.mark = bar.Close
	}
	st.equity = append(st.equity, EquityPoint{
		Time:     bar.Time,
		Equity:   st.cash + float64(st.position)*st.mark,
		Cash:     st.cash,
		Position: st.position,
		Mark:     st.mark,
	})
}

func checkOrdered(bars []core.Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return core.WrapError(core.ErrInvalidSeries, fmt.Errorf("bar %d at %s does not follow %s",
				i, bars[i].Time.Format("2006-01-02 15:04:05"), bars[i-1].Time.Format("2006-01-02 15:04:05")))
		}
	}
	return nil
}

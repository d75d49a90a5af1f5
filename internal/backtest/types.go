package backtest

import (
	"time"

	"github.com/newthinker/ashare/internal/core"
)

// Result holds the complete backtest output. It is built once at the end of a
// run and not modified afterwards.
type Result struct {
	Strategy string
	Symbol   string
	Config   Config
	Metrics  Metrics
	Equity   []EquityPoint
	Trades   []Trade
}

// Trade is one executed fill.
type Trade struct {
	Time     time.Time
	Action   core.Action // buy or sell
	Price    float64
	Quantity int64
	Profit   *float64 // (sell - entry) / entry, set on sells only
	Reason   string
}

// IsWin returns true if the trade closed a position at a profit
func (t Trade) IsWin() bool {
	return t.Profit != nil && *t.Profit > 0
}

// EquityPoint is the mark-to-market account value after one step.
// Equity always equals Cash + Position*Mark. Mark is the bar's close, or the
// last positive close when the bar's close is not positive.
type EquityPoint struct {
	Time     time.Time
	Equity   float64
	Cash     float64
	Position int64
	Mark     float64
}

// Metrics holds performance statistics
type Metrics struct {
	TotalReturn      float64 // (last - first) / first
	AnnualizedReturn float64
	SharpeRatio      float64 // Annualized, excess over the risk-free rate
	MaxDrawdown      float64 // Largest peak-to-trough decline, as a positive fraction
	WinRate          float64 // Profitable sells / sells
	TradeCount       int     // Buys and sells
}

// FinalEquity returns the last equity value, or 0 for an empty run.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1].Equity
}

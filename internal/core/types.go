package core

import "time"

// Exchange identifies the A-share venue a symbol is listed on.
type Exchange string

const (
	ExchangeShanghai Exchange = "SH"
	ExchangeShenzhen Exchange = "SZ"
)

// Quote represents a real-time price quote
type Quote struct {
	Symbol string
	Price  float64
	Volume int64
	Bid    float64
	Ask    float64
	Time   time.Time
	Source string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// Bar represents one candlestick of a price series.
type Bar struct {
	Symbol   string
	Interval string // "1m", "5m", "1d"
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
}

// BarFromQuote builds the synthetic bar used to extend a history with a live
// quote: every price field is the quote price and volume is zero.
func BarFromQuote(q Quote, interval string) Bar {
	return Bar{
		Symbol:   q.Symbol,
		Interval: interval,
		Time:     q.Time,
		Open:     q.Price,
		High:     q.Price,
		Low:      q.Price,
		Close:    q.Price,
	}
}

// Closes extracts the close prices of a series.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// Signal is a strategy's decision for one symbol at one point in time.
type Signal struct {
	Symbol      string
	Action      Action
	Price       float64 // Price at signal generation, 0 when unknown
	Quantity    int64   // Shares to trade, 0 when the signal is not sized
	Reason      string
	Strategy    string
	GeneratedAt time.Time
}

// Hold returns a HOLD signal for symbol at price.
func Hold(symbol, strategy string, price float64) Signal {
	return Signal{
		Symbol:   symbol,
		Action:   ActionHold,
		Price:    price,
		Strategy: strategy,
	}
}

// IsActionable reports whether the signal asks for a trade.
func (s Signal) IsActionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

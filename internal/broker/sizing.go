package broker

import "math"

// DefaultMaxPositionPct is the share of available cash committed to one buy.
const DefaultMaxPositionPct = 0.3

// LotQuantity returns the largest multiple of lot that budget buys at price.
// It returns 0 when the inputs cannot buy a single lot.
func LotQuantity(budget, price float64, lot int64) int64 {
	if budget <= 0 || price <= 0 || lot <= 0 {
		return 0
	}
	return int64(math.Floor(budget/price/float64(lot))) * lot
}

// Sizer turns unsized signals into order quantities.
type Sizer struct {
	// MaxPositionPct is the fraction of cash spent on a single buy, in (0, 1].
	MaxPositionPct float64
	// LotSize is the board lot, 100 shares on both A-share venues.
	LotSize int64
}

// BuyQuantity sizes a buy at price from the account cash.
func (s Sizer) BuyQuantity(balance Balance, price float64) int64 {
	return LotQuantity(balance.Cash*s.MaxPositionPct, price, s.LotSize)
}

// SellQuantity sizes a sell: the whole holding.
func (s Sizer) SellQuantity(held int64) int64 {
	if held < 0 {
		return 0
	}
	return held
}

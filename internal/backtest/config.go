package backtest

import (
	"fmt"

	"github.com/newthinker/ashare/internal/core"
)

// Config controls the simulated account of one backtest run.
type Config struct {
	InitialCapital float64
	CommissionRate float64 // Flat fraction charged on both sides of a trade
	LotSize        int64   // Buy quantities are whole multiples of this
}

// DefaultLotSize is one board lot on the A-share market.
const DefaultLotSize = 100

// DefaultConfig returns the default account settings.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1_000_000,
		CommissionRate: 0.0003,
		LotSize:        DefaultLotSize,
	}
}

// Validate checks the account settings.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital))
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("commission rate must be in [0, 1), got %v", c.CommissionRate))
	}
	if c.LotSize < 1 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("lot size must be at least 1, got %d", c.LotSize))
	}
	return nil
}

package ma_crossover

import (
	"fmt"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/indicator"
	"github.com/newthinker/ashare/internal/strategy"
)

// Name is the registry name of the strategy.
const Name = "ma_crossover"

const (
	DefaultShortPeriod = 5
	DefaultLongPeriod  = 20
)

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	shortPeriod int
	longPeriod  int
	positions   *strategy.PositionBook
}

// New creates a new MA Crossover strategy
func New(shortPeriod, longPeriod int) (*MACrossover, error) {
	if err := validatePeriods(shortPeriod, longPeriod); err != nil {
		return nil, err
	}
	return &MACrossover{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		positions:   strategy.NewPositionBook(),
	}, nil
}

// Factory builds an MACrossover from short_period/long_period params.
func Factory(cfg strategy.Config) (strategy.Strategy, error) {
	m, err := New(DefaultShortPeriod, DefaultLongPeriod)
	if err != nil {
		return nil, err
	}
	if err := m.Init(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

func validatePeriods(short, long int) error {
	if short < 1 || long < 1 {
		return fmt.Errorf("ma_crossover: periods must be positive, got %d/%d", short, long)
	}
	if short >= long {
		return fmt.Errorf("ma_crossover: short period %d must be less than long period %d", short, long)
	}
	return nil
}

func (m *MACrossover) Name() string {
	return Name
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.shortPeriod, m.longPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: m.longPeriod + 1,
	}
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	short, err := cfg.Int("short_period", m.shortPeriod)
	if err != nil {
		return err
	}
	long, err := cfg.Int("long_period", m.longPeriod)
	if err != nil {
		return err
	}
	if err := validatePeriods(short, long); err != nil {
		return err
	}
	m.shortPeriod, m.longPeriod = short, long
	return nil
}

func (m *MACrossover) Positions() *strategy.PositionBook {
	return m.positions
}

// Evaluate compares the short and long SMAs at the last two steps of window.
// Equal averages never trigger on their own: a tie followed by a strict
// separation fires on the step of separation.
func (m *MACrossover) Evaluate(window []core.Bar, symbol string) (core.Signal, error) {
	need := m.longPeriod + 1
	if len(window) < need {
		return core.Hold(symbol, Name, 0), nil
	}

	last := window[len(window)-1]
	closes := core.Closes(window[len(window)-need:])

	shortMA := indicator.SMA(closes, m.shortPeriod)
	longMA := indicator.SMA(closes, m.longPeriod)

	currShort := shortMA[len(shortMA)-1]
	prevShort := shortMA[len(shortMA)-2]
	currLong := longMA[len(longMA)-1]
	prevLong := longMA[len(longMA)-2]

	sig := core.Signal{
		Symbol:      symbol,
		Action:      core.ActionHold,
		Price:       last.Close,
		Strategy:    Name,
		GeneratedAt: last.Time,
	}

	switch {
	case prevShort <= prevLong && currShort > currLong:
		sig.Action = core.ActionBuy
		sig.Reason = fmt.Sprintf("MA%d crossed above MA%d", m.shortPeriod, m.longPeriod)
	case prevShort >= prevLong && currShort < currLong:
		sig.Action = core.ActionSell
		sig.Reason = fmt.Sprintf("MA%d crossed below MA%d", m.shortPeriod, m.longPeriod)
	}

	return sig, nil
}

package strategy

import (
	"fmt"

	"github.com/newthinker/ashare/internal/core"
	"github.com/spf13/cast"
)

// Config holds strategy configuration
type Config struct {
	Params map[string]any
}

// Int reads an integer parameter, falling back to def when the key is absent.
// Values decoded from YAML, JSON or the environment are all accepted.
func (c Config) Int(key string, def int) (int, error) {
	raw, ok := c.Params[key]
	if !ok || raw == nil {
		return def, nil
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int // Bars of history needed before the first decision
}

// Strategy decides an action for one symbol from a window of bars ending at
// the current step.
//
// Evaluate must be a pure function of its inputs. Insufficient history is not
// an error: strategies return a HOLD signal instead. A returned error means the
// strategy itself is broken and aborts the run using it.
type Strategy interface {
	Name() string
	RequiredData() DataRequirements
	Evaluate(window []core.Bar, symbol string) (core.Signal, error)
}

// Configurable strategies accept parameters after construction.
type Configurable interface {
	Init(cfg Config) error
}

// Factory builds a configured strategy.
type Factory func(cfg Config) (Strategy, error)

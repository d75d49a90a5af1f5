package notifier

import (
	"time"

	"github.com/newthinker/ashare/internal/broker"
	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/storage/journal"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Report is the end-of-day account summary.
type Report struct {
	Date        time.Time
	Cash        float64
	TotalValue  float64
	TotalProfit float64 // unrealized P/L across open positions
	Positions   []broker.Position
	Executions  []journal.Execution
}

// Notifier defines the interface for signal notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send sends a single signal notification
	Send(signal core.Signal) error

	// SendReport sends the daily account report
	SendReport(report Report) error
}

// internal/storage/journal/interface.go
package journal

import (
	"context"
	"time"

	"github.com/newthinker/ashare/internal/core"
)

// Record is a persisted signal.
type Record struct {
	ID         int64
	Signal     core.Signal
	RecordedAt time.Time
}

// Execution is the outcome of sending one signal to the broker.
type Execution struct {
	ID         int64
	Symbol     string
	Strategy   string
	Action     core.Action
	Quantity   int64
	Price      float64
	OrderID    string
	Success    bool
	Error      string
	ExecutedAt time.Time
}

// Store defines the interface for the live trading journal.
type Store interface {
	// SaveSignal persists a signal and returns its ID.
	SaveSignal(ctx context.Context, signal core.Signal) (int64, error)

	// ListSignals retrieves signals matching the filter, oldest first.
	ListSignals(ctx context.Context, filter ListFilter) ([]Record, error)

	// CountSignals returns the number of signals matching the filter.
	CountSignals(ctx context.Context, filter ListFilter) (int, error)

	// SaveExecution persists an execution and returns its ID.
	SaveExecution(ctx context.Context, exec Execution) (int64, error)

	// ListExecutions retrieves executions matching the filter, oldest first.
	// Strategy and Action filter as for signals; From/To apply to ExecutedAt.
	ListExecutions(ctx context.Context, filter ListFilter) ([]Execution, error)

	Close() error
}

// ListFilter defines criteria for listing journal entries.
type ListFilter struct {
	Symbol   string
	Strategy string
	Action   core.Action
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

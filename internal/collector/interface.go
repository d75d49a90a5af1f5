package collector

import (
	"context"
	"time"

	"github.com/newthinker/ashare/internal/core"
)

// Config holds collector configuration
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// HistorySource fetches historical bars. Bars are returned in ascending time
// order; an unknown symbol or empty range yields core.ErrNoData.
type HistorySource interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error)
}

// QuoteSource fetches the latest quote of a symbol.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
}

// Collector defines the interface for data collectors
type Collector interface {
	HistorySource
	QuoteSource

	Name() string
	Init(cfg Config) error
}

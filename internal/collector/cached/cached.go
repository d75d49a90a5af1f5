// Package cached wraps a history source with a local bar store.
package cached

import (
	"context"
	"time"

	"github.com/newthinker/ashare/internal/collector"
	"github.com/newthinker/ashare/internal/core"
	"go.uber.org/zap"
)

// Store is the subset of a bar store used as cache.
type Store interface {
	ReadBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]core.Bar, error)
	WriteBars(ctx context.Context, bars []core.Bar) error
}

// DefaultSlack is how far the cached range may fall short of the requested
// range at either end and still count as covering it. It absorbs weekends and
// the longest exchange holidays.
const DefaultSlack = 10 * 24 * time.Hour

// Source serves history from the store when it covers the requested range
// and otherwise fetches from upstream and stores the result.
type Source struct {
	upstream collector.HistorySource
	store    Store
	slack    time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a read-through source. A nil logger disables logging.
func New(upstream collector.HistorySource, store Store, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		upstream: upstream,
		store:    store,
		slack:    DefaultSlack,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchHistory implements collector.HistorySource.
func (s *Source) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	log := s.logger.With(zap.String("symbol", symbol), zap.String("interval", interval))

	cached, err := s.store.ReadBars(ctx, symbol, interval, start, end)
	if err != nil {
		log.Warn("bar cache read failed", zap.Error(err))
	} else if s.covers(cached, start, end) {
		log.Debug("bar cache hit", zap.Int("bars", len(cached)))
		return cached, nil
	}

	bars, err := s.upstream.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if err := s.store.WriteBars(ctx, bars); err != nil {
		log.Warn("bar cache write failed", zap.Error(err))
	}
	return bars, nil
}

func (s *Source) covers(bars []core.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	if now := s.now(); end.After(now) {
		end = now
	}
	first, last := bars[0].Time, bars[len(bars)-1].Time
	return first.Sub(start) <= s.slack && end.Sub(last) <= s.slack
}

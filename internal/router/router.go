package router

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/notifier"
	"github.com/newthinker/ashare/internal/storage/journal"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	// Cooldown suppresses a repeat of the same (symbol, action) pair.
	Cooldown       time.Duration `mapstructure:"cooldown"`
	EnabledActions []core.Action `mapstructure:"enabled_actions"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		Cooldown:       1 * time.Hour,
		EnabledActions: []core.Action{core.ActionBuy, core.ActionSell},
	}
}

// Recorder observes notification outcomes.
type Recorder interface {
	ObserveNotification(notifier, status string)
}

type cooldownKey struct {
	symbol string
	action core.Action
}

// Router routes signals to notifiers with filtering
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	journal   journal.Store
	recorder  Recorder
	now       func() time.Time
	cooldowns map[cooldownKey]time.Time
	mu        sync.Mutex
}

// Option configures a Router.
type Option func(*Router)

// WithJournal persists every routed signal to store.
func WithJournal(store journal.Store) Option {
	return func(r *Router) { r.journal = store }
}

// WithRecorder reports notification outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Router) { r.recorder = rec }
}

// WithClock overrides the time source used for cooldowns.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a new signal router. A nil registry routes to no one.
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
		cooldowns: make(map[cooldownKey]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route sends signal to the notifiers unless it is filtered out. It reports
// whether the signal was routed. Notifier and journal failures are logged,
// never returned; only a done context stops routing.
func (r *Router) Route(ctx context.Context, signal core.Signal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !r.admit(signal) {
		r.logger.Debug("signal filtered out",
			zap.String("symbol", signal.Symbol),
			zap.String("action", string(signal.Action)),
		)
		return false, nil
	}

	if r.journal != nil {
		if _, err := r.journal.SaveSignal(ctx, signal); err != nil {
			r.logger.Error("failed to persist signal", zap.Error(err))
		}
	}

	if r.registry == nil {
		return true, nil
	}
	errors := r.registry.NotifyAll(signal)

	for _, n := range r.registry.GetAll() {
		err, failed := errors[n.Name()]
		if failed {
			r.logger.Error("notifier failed",
				zap.String("notifier", n.Name()),
				zap.Error(err),
			)
		}
		if r.recorder != nil {
			status := "success"
			if failed {
				status = "error"
			}
			r.recorder.ObserveNotification(n.Name(), status)
		}
	}

	r.logger.Info("signal routed",
		zap.String("symbol", signal.Symbol),
		zap.String("action", string(signal.Action)),
		zap.Float64("price", signal.Price),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errors)),
	)

	return true, nil
}

// admit applies the action filter and claims the cooldown slot atomically, so
// concurrent duplicates cannot both pass.
func (r *Router) admit(signal core.Signal) bool {
	if !signal.IsActionable() {
		return false
	}
	if len(r.cfg.EnabledActions) > 0 {
		allowed := false
		for _, a := range r.cfg.EnabledActions {
			if signal.Action == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	key := cooldownKey{symbol: signal.Symbol, action: signal.Action}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.cooldowns[key]; ok && now.Sub(last) < r.cfg.Cooldown {
		return false
	}
	r.cooldowns[key] = now
	return true
}

// ClearCooldown removes cooldowns for a specific symbol
func (r *Router) ClearCooldown(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cooldowns {
		if key.symbol == symbol {
			delete(r.cooldowns, key)
		}
	}
}

// CleanupExpiredCooldowns removes cooldown entries that can no longer block
// a signal and returns how many were removed.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, last := range r.cooldowns {
		if now.Sub(last) >= r.cfg.Cooldown {
			delete(r.cooldowns, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically cleans up expired cooldowns.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.CleanupExpiredCooldowns(); removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// ActiveCooldowns returns the number of tracked (symbol, action) pairs.
func (r *Router) ActiveCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cooldowns)
}

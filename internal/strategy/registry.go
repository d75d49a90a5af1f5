package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/ashare/internal/core"
	"go.uber.org/zap"
)

// Registry maps strategy names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *zap.Logger
}

// NewRegistry creates a new strategy registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    l,
	}
}

// Register adds a factory under name, replacing any previous one
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the strategy registered under name
func (r *Registry) Build(name string, cfg Config) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("%q (known: %v)", name, r.Names()))
	}

	s, err := f(cfg)
	if err != nil {
		r.logger.Warn("strategy build failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("build strategy %s: %w", name, err)
	}
	r.logger.Debug("strategy built",
		zap.String("strategy", s.Name()),
		zap.Int("price_history", s.RequiredData().PriceHistory),
	)
	return s, nil
}

package strategy

import "sync"

// PositionBook records the quantity a strategy believes it holds per symbol.
// It is bookkeeping only and is never read by decision logic.
type PositionBook struct {
	mu        sync.RWMutex
	positions map[string]int64
}

// NewPositionBook creates an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[string]int64)}
}

// Update sets the held quantity for symbol. Zero removes the entry.
func (b *PositionBook) Update(symbol string, quantity int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if quantity == 0 {
		delete(b.positions, symbol)
		return
	}
	b.positions[symbol] = quantity
}

// Get returns the held quantity for symbol, 0 if none.
func (b *PositionBook) Get(symbol string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.positions[symbol]
}

// Snapshot returns a copy of all non-zero positions.
func (b *PositionBook) Snapshot() map[string]int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int64, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out
}

// PositionKeeper is implemented by strategies that carry a PositionBook.
type PositionKeeper interface {
	Positions() *PositionBook
}

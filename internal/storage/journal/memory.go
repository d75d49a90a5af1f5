// internal/storage/journal/memory.go
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/ashare/internal/core"
)

// MemoryStore is an in-memory journal bounded to maxSize entries per table.
type MemoryStore struct {
	mu         sync.RWMutex
	signals    []Record
	executions []Execution
	maxSize    int
	nextID     int64
	now        func() time.Time
}

// NewMemoryStore creates an in-memory store keeping at most maxSize entries
// of each kind. A non-positive maxSize keeps everything.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize < 0 {
		maxSize = 0
	}
	return &MemoryStore{
		signals: make([]Record, 0, maxSize),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// SaveSignal adds a signal to the store.
func (m *MemoryStore) SaveSignal(ctx context.Context, signal core.Signal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.signals = append(m.signals, Record{ID: m.nextID, Signal: signal, RecordedAt: m.now()})

	// Trim if over capacity (remove oldest)
	if m.maxSize > 0 && len(m.signals) > m.maxSize {
		m.signals = m.signals[len(m.signals)-m.maxSize:]
	}
	return m.nextID, nil
}

// ListSignals returns signals matching the filter.
func (m *MemoryStore) ListSignals(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Record
	for _, rec := range m.signals {
		s := rec.Signal
		if matches(filter, s.Symbol, s.Strategy, s.Action, s.GeneratedAt) {
			result = append(result, rec)
		}
	}
	return page(result, filter), nil
}

// CountSignals returns the count of matching signals.
func (m *MemoryStore) CountSignals(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.signals {
		s := rec.Signal
		if matches(filter, s.Symbol, s.Strategy, s.Action, s.GeneratedAt) {
			count++
		}
	}
	return count, nil
}

// SaveExecution adds an execution to the store.
func (m *MemoryStore) SaveExecution(ctx context.Context, exec Execution) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	exec.ID = m.nextID
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = m.now()
	}
	m.executions = append(m.executions, exec)
	if m.maxSize > 0 && len(m.executions) > m.maxSize {
		m.executions = m.executions[len(m.executions)-m.maxSize:]
	}
	return exec.ID, nil
}

// ListExecutions returns executions matching the filter.
func (m *MemoryStore) ListExecutions(ctx context.Context, filter ListFilter) ([]Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Execution
	for _, e := range m.executions {
		if matches(filter, e.Symbol, e.Strategy, e.Action, e.ExecutedAt) {
			result = append(result, e)
		}
	}
	return page(result, filter), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func matches(filter ListFilter, symbol, strategy string, action core.Action, at time.Time) bool {
	if filter.Symbol != "" && symbol != filter.Symbol {
		return false
	}
	if filter.Strategy != "" && strategy != filter.Strategy {
		return false
	}
	if filter.Action != "" && action != filter.Action {
		return false
	}
	if !filter.From.IsZero() && at.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && at.After(filter.To) {
		return false
	}
	return true
}

func page[T any](items []T, filter ListFilter) []T {
	if filter.Offset >= len(items) && filter.Offset > 0 {
		return []T{}
	}
	if filter.Offset > 0 {
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	return items
}

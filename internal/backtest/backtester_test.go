package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/strategy/ma_crossover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider implements HistoryProvider for testing
type mockProvider struct {
	data map[string][]core.Bar
	errs map[string]error
}

func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	return m.data[symbol], nil
}

type mockRecorder struct {
	mu       sync.Mutex
	statuses map[string]int
	trades   map[core.Action]int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{statuses: map[string]int{}, trades: map[core.Action]int{}}
}

func (r *mockRecorder) ObserveBacktest(strategy, status string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[status]++
}

func (r *mockRecorder) ObserveTrade(action core.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[action]++
}

func crossingBars() []core.Bar {
	return makeBars(100, 95, 90, 85, 80, 120, 125, 90, 70, 65)
}

func TestBacktester_Run(t *testing.T) {
	provider := &mockProvider{data: map[string][]core.Bar{"600519": crossingBars()}}
	engine := newTestEngine(t, DefaultConfig())
	rec := newMockRecorder()
	bt := New(provider, engine, WithRecorder(rec))

	strat, err := ma_crossover.New(2, 4)
	require.NoError(t, err)

	res, err := bt.Run(context.Background(), strat, "600519", baseTime, baseTime.AddDate(0, 0, 10))
	require.NoError(t, err)

	assert.Equal(t, "600519", res.Symbol)
	assert.Equal(t, "ma_crossover", res.Strategy)
	assert.Len(t, res.Equity, 10)
	require.NotEmpty(t, res.Trades)
	assert.Equal(t, core.ActionBuy, res.Trades[0].Action)

	assert.Equal(t, 1, rec.statuses["ok"])
	assert.Equal(t, len(res.Trades), rec.trades[core.ActionBuy]+rec.trades[core.ActionSell])
}

func TestBacktester_RunNoData(t *testing.T) {
	provider := &mockProvider{
		data: map[string][]core.Bar{},
		errs: map[string]error{"000002": errors.New("connection refused")},
	}
	rec := newMockRecorder()
	bt := New(provider, newTestEngine(t, DefaultConfig()), WithRecorder(rec))
	strat, _ := ma_crossover.New(2, 4)

	_, err := bt.Run(context.Background(), strat, "000001", baseTime, baseTime)
	assert.True(t, errors.Is(err, core.ErrNoData), "empty history should be no data, got %v", err)

	_, err = bt.Run(context.Background(), strat, "000002", baseTime, baseTime)
	assert.True(t, errors.Is(err, core.ErrNoData), "fetch failure should be no data, got %v", err)

	assert.Equal(t, 2, rec.statuses["error"])
}

func TestBacktester_RunCancelled(t *testing.T) {
	bt := New(&mockProvider{}, newTestEngine(t, DefaultConfig()))
	strat, _ := ma_crossover.New(2, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bt.Run(ctx, strat, "600519", baseTime, baseTime)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBacktester_RunBatch(t *testing.T) {
	provider := &mockProvider{
		data: map[string][]core.Bar{
			"600519": crossingBars(),
			"000001": makeBars(10, 10, 10, 10, 10, 10),
		},
		errs: map[string]error{"300750": errors.New("timeout")},
	}
	bt := New(provider, newTestEngine(t, DefaultConfig()), WithConcurrency(2))
	strat, _ := ma_crossover.New(2, 4)

	symbols := []string{"600519", "300750", "000001", "688981"}
	items := bt.RunBatch(context.Background(), strat, symbols, baseTime, baseTime.AddDate(0, 1, 0))

	require.Len(t, items, len(symbols))
	for i, sym := range symbols {
		assert.Equal(t, sym, items[i].Symbol, "order preserved")
	}

	assert.NoError(t, items[0].Err)
	assert.NotNil(t, items[0].Result)

	assert.True(t, errors.Is(items[1].Err, core.ErrNoData))
	assert.Nil(t, items[1].Result)

	require.NoError(t, items[2].Err)
	assert.Empty(t, items[2].Result.Trades)

	assert.True(t, errors.Is(items[3].Err, core.ErrNoData), "missing symbol should be no data")
}

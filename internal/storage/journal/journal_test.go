package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(100),
		"sqlite": sqlite,
	}
}

var day = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestStore_SaveAndListSignals(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sig := core.Signal{
				Symbol:      "600519",
				Action:      core.ActionBuy,
				Price:       1700.5,
				Quantity:    100,
				Reason:      "MA5 crossed above MA20",
				Strategy:    "ma_crossover",
				GeneratedAt: day,
			}
			id, err := store.SaveSignal(ctx, sig)
			require.NoError(t, err)
			assert.Positive(t, id)

			_, err = store.SaveSignal(ctx, core.Signal{Symbol: "000001", Action: core.ActionSell, Strategy: "ma_crossover", GeneratedAt: day.Add(time.Minute)})
			require.NoError(t, err)

			recs, err := store.ListSignals(ctx, ListFilter{Symbol: "600519"})
			require.NoError(t, err)
			require.Len(t, recs, 1)

			got := recs[0].Signal
			assert.Equal(t, id, recs[0].ID)
			assert.Equal(t, sig.Symbol, got.Symbol)
			assert.Equal(t, sig.Action, got.Action)
			assert.Equal(t, sig.Price, got.Price)
			assert.Equal(t, sig.Quantity, got.Quantity)
			assert.Equal(t, sig.Reason, got.Reason)
			assert.True(t, sig.GeneratedAt.Equal(got.GeneratedAt))
			assert.False(t, recs[0].RecordedAt.IsZero())
		})
	}
}

func TestStore_FilterAndPage(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				action := core.ActionBuy
				if i%2 == 1 {
					action = core.ActionSell
				}
				_, err := store.SaveSignal(ctx, core.Signal{
					Symbol:      "000001",
					Action:      action,
					Strategy:    "ma_crossover",
					GeneratedAt: day.Add(time.Duration(i) * time.Hour),
				})
				require.NoError(t, err)
			}

			n, err := store.CountSignals(ctx, ListFilter{Action: core.ActionBuy})
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			recs, err := store.ListSignals(ctx, ListFilter{From: day.Add(time.Hour), To: day.Add(3 * time.Hour)})
			require.NoError(t, err)
			assert.Len(t, recs, 3)

			recs, err = store.ListSignals(ctx, ListFilter{Limit: 2, Offset: 1})
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.True(t, recs[0].Signal.GeneratedAt.Equal(day.Add(time.Hour)), "oldest first after offset")

			recs, err = store.ListSignals(ctx, ListFilter{Offset: 10})
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestStore_Executions(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.SaveExecution(ctx, Execution{
				Symbol: "600519", Strategy: "ma_crossover", Action: core.ActionBuy,
				Quantity: 200, Price: 1700, OrderID: "ord-1", Success: true, ExecutedAt: day,
			})
			require.NoError(t, err)
			_, err = store.SaveExecution(ctx, Execution{
				Symbol: "600519", Strategy: "ma_crossover", Action: core.ActionSell,
				Quantity: 200, Price: 1650, Success: false, Error: "broker: not connected", ExecutedAt: day.AddDate(0, 0, 1),
			})
			require.NoError(t, err)

			all, err := store.ListExecutions(ctx, ListFilter{Symbol: "600519"})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.True(t, all[0].Success)
			assert.Equal(t, "ord-1", all[0].OrderID)
			assert.False(t, all[1].Success)
			assert.Equal(t, "broker: not connected", all[1].Error)

			today, err := store.ListExecutions(ctx, ListFilter{From: day.Add(-time.Hour), To: day.Add(time.Hour)})
			require.NoError(t, err)
			require.Len(t, today, 1)
			assert.Equal(t, core.ActionBuy, today[0].Action)
			assert.Equal(t, int64(200), today[0].Quantity)
		})
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		store.SaveSignal(ctx, core.Signal{Symbol: "000001", GeneratedAt: day.Add(time.Duration(i) * time.Minute)})
	}

	recs, _ := store.ListSignals(ctx, ListFilter{})
	require.Len(t, recs, 3)
	assert.True(t, recs[0].Signal.GeneratedAt.Equal(day.Add(2*time.Minute)), "oldest entries trimmed")
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.SaveSignal(ctx, core.Signal{Symbol: "600519", Action: core.ActionBuy})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.ListSignals(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Signal.GeneratedAt.IsZero(), "unset time survives round trip")
}

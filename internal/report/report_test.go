package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/backtest"
	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *backtest.Result {
	day := func(d int) time.Time { return time.Date(2023, 1, d, 15, 0, 0, 0, core.Shanghai) }
	profit := 0.1
	return &backtest.Result{
		Strategy: "ma_crossover",
		Symbol:   "600519.SH",
		Config:   backtest.DefaultConfig(),
		Metrics: backtest.Metrics{
			TotalReturn:      0.0998,
			AnnualizedReturn: 0.25,
			SharpeRatio:      1.234,
			MaxDrawdown:      0.05,
			WinRate:          1,
			TradeCount:       2,
		},
		Equity: []backtest.EquityPoint{
			{Time: day(3), Equity: 1_000_000, Cash: 1_000_000, Mark: 10},
			{Time: day(4), Equity: 999_970, Cash: 0, Position: 100_000, Mark: 10},
			{Time: day(5), Equity: 1_099_800, Cash: 1_099_800, Mark: 11},
		},
		Trades: []backtest.Trade{
			{Time: day(4), Action: core.ActionBuy, Price: 10, Quantity: 100_000, Reason: "MA5 crossed above MA20"},
			{Time: day(5), Action: core.ActionSell, Price: 11, Quantity: 100_000, Profit: &profit, Reason: "MA5 crossed below MA20"},
		},
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "=== 600519.SH / ma_crossover ===")
	assert.Contains(t, out, "2023-01-03 to 2023-01-05 (3 bars)")
	assert.Contains(t, out, "Total return:      9.98%")
	assert.Contains(t, out, "Sharpe ratio:      1.23")
	assert.Contains(t, out, "Max drawdown:      5.00%")
	assert.Contains(t, out, "Trades:            2")
	assert.Contains(t, out, "+10.00%")
	assert.Contains(t, out, "MA5 crossed below MA20")
}

func TestPrint_NoTrades(t *testing.T) {
	res := sampleResult()
	res.Trades = nil

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, res))
	assert.NotContains(t, buf.String(), "ACTION")
}

func TestSummary(t *testing.T) {
	items := []backtest.BatchItem{
		{Symbol: "600519.SH", Result: sampleResult()},
		{Symbol: "000001.SZ", Err: errors.New("no data")},
	}

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, items))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "600519.SH"))
	assert.Contains(t, lines[2], "9.98%")
	assert.Contains(t, lines[3], "FAILED: no data")
}

func TestPath(t *testing.T) {
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC) // already 2 March in Shanghai
	assert.Equal(t, "backtests/2024-03-02/600519.SH_ma_crossover.json", Path(sampleResult(), at))
}

func TestExport(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, core.Shanghai)

	key, err := Export(ctx, store, sampleResult(), at)
	require.NoError(t, err)
	assert.Equal(t, "backtests/2024-03-01/600519.SH_ma_crossover.json", key)

	data, err := store.Read(ctx, key)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "600519.SH", doc.Symbol)
	assert.Equal(t, 2, doc.Metrics.TradeCount)
	assert.InDelta(t, 1_099_800, doc.FinalEquity, 1e-9)
	require.Len(t, doc.Trades, 2)
	assert.Nil(t, doc.Trades[0].Profit)
	require.NotNil(t, doc.Trades[1].Profit)
	assert.InDelta(t, 0.1, *doc.Trades[1].Profit, 1e-12)
	assert.Len(t, doc.Equity, 3)

	assert.InDelta(t, sampleResult().Metrics.MaxDrawdown, doc.Metrics.MaxDrawdown, 1e-12)
	assert.InDelta(t, 11, doc.Equity[2].Mark, 1e-12)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	metrics, ok := raw["metrics"].(map[string]any)
	require.True(t, ok, "metrics object missing")
	assert.Contains(t, metrics, "max_drawdown")
	assert.NotContains(t, raw, "max_drawdown")
}

type failingStore struct{ archive.Storage }

func (failingStore) Write(ctx context.Context, path string, data []byte) error {
	return errors.New("disk full")
}

func TestExport_WriteError(t *testing.T) {
	_, err := Export(context.Background(), failingStore{}, sampleResult(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

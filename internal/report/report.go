// Package report renders backtest results for the console and archives them
// as JSON.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"text/tabwriter"
	"time"

	"github.com/newthinker/ashare/internal/backtest"
	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/storage/archive"
)

const timeLayout = "2006-01-02"

// Print writes the metrics and trade list of one run to w.
func Print(w io.Writer, res *backtest.Result) error {
	m := res.Metrics

	fmt.Fprintf(w, "=== %s / %s ===\n", res.Symbol, res.Strategy)
	if n := len(res.Equity); n > 0 {
		fmt.Fprintf(w, "Period:            %s to %s (%d bars)\n",
			res.Equity[0].Time.In(core.Shanghai).Format(timeLayout),
			res.Equity[n-1].Time.In(core.Shanghai).Format(timeLayout), n)
	}
	fmt.Fprintf(w, "Initial capital:   %.2f\n", res.Config.InitialCapital)
	fmt.Fprintf(w, "Final equity:      %.2f\n", res.FinalEquity())
	fmt.Fprintf(w, "Total return:      %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(w, "Annualized return: %.2f%%\n", m.AnnualizedReturn*100)
	fmt.Fprintf(w, "Sharpe ratio:      %.2f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Max drawdown:      %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(w, "Win rate:          %.2f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Trades:            %d\n", m.TradeCount)

	if len(res.Trades) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tACTION\tQTY\tPRICE\tPROFIT\tREASON\t")
	fmt.Fprintln(tw, "----\t------\t---\t-----\t------\t------\t")
	for _, t := range res.Trades {
		profit := "-"
		if t.Profit != nil {
			profit = fmt.Sprintf("%+.2f%%", *t.Profit*100)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\t\n",
			t.Time.In(core.Shanghai).Format(timeLayout), t.Action, t.Quantity, t.Price, profit, t.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// Summary writes one line per batch item to w, failures included.
func Summary(w io.Writer, items []backtest.BatchItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tRETURN\tANNUAL\tSHARPE\tMAX DD\tWIN RATE\tTRADES\t")
	fmt.Fprintln(tw, "------\t------\t------\t------\t------\t--------\t------\t")
	for _, it := range items {
		if it.Err != nil {
			fmt.Fprintf(tw, "%s\tFAILED: %v\t\t\t\t\t\t\n", it.Symbol, it.Err)
			continue
		}
		m := it.Result.Metrics
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%.2f\t%.2f%%\t%.2f%%\t%d\t\n",
			it.Symbol, m.TotalReturn*100, m.AnnualizedReturn*100, m.SharpeRatio,
			m.MaxDrawdown*100, m.WinRate*100, m.TradeCount)
	}
	return tw.Flush()
}

// Document is the archived JSON form of a result.
type Document struct {
	Symbol      string          `json:"symbol"`
	Strategy    string          `json:"strategy"`
	GeneratedAt time.Time       `json:"generated_at"`
	Config      DocumentConfig  `json:"config"`
	Metrics     DocumentMetrics `json:"metrics"`
	FinalEquity float64         `json:"final_equity"`
	Trades      []DocumentTrade `json:"trades"`
	Equity      []DocumentPoint `json:"equity"`
}

// DocumentConfig is the account configuration of a run.
type DocumentConfig struct {
	InitialCapital float64 `json:"initial_capital"`
	CommissionRate float64 `json:"commission_rate"`
	LotSize        int64   `json:"lot_size"`
}

// DocumentMetrics are fractions, not percentages.
type DocumentMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	TradeCount       int     `json:"trade_count"`
}

// DocumentTrade is one fill.
type DocumentTrade struct {
	Time     time.Time   `json:"time"`
	Action   core.Action `json:"action"`
	Price    float64     `json:"price"`
	Quantity int64       `json:"quantity"`
	Profit   *float64    `json:"profit,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// DocumentPoint is one equity curve sample.
type DocumentPoint struct {
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Cash     float64   `json:"cash"`
	Position int64     `json:"position"`
	Mark     float64   `json:"mark"`
}

// NewDocument converts res for archiving.
func NewDocument(res *backtest.Result, generatedAt time.Time) Document {
	doc := Document{
		Symbol:      res.Symbol,
		Strategy:    res.Strategy,
		GeneratedAt: generatedAt,
		Config: DocumentConfig{
			InitialCapital: res.Config.InitialCapital,
			CommissionRate: res.Config.CommissionRate,
			LotSize:        res.Config.LotSize,
		},
		Metrics: DocumentMetrics{
			TotalReturn:      res.Metrics.TotalReturn,
			AnnualizedReturn: res.Metrics.AnnualizedReturn,
			SharpeRatio:      res.Metrics.SharpeRatio,
			MaxDrawdown:      res.Metrics.MaxDrawdown,
			WinRate:          res.Metrics.WinRate,
			TradeCount:       res.Metrics.TradeCount,
		},
		FinalEquity: res.FinalEquity(),
		Trades:      make([]DocumentTrade, len(res.Trades)),
		Equity:      make([]DocumentPoint, len(res.Equity)),
	}
	for i, t := range res.Trades {
		doc.Trades[i] = DocumentTrade{
			Time:     t.Time,
			Action:   t.Action,
			Price:    t.Price,
			Quantity: t.Quantity,
			Profit:   t.Profit,
			Reason:   t.Reason,
		}
	}
	for i, p := range res.Equity {
		doc.Equity[i] = DocumentPoint(p)
	}
	return doc
}

// Path returns the archive key of res: backtests/<date>/<symbol>_<strategy>.json.
func Path(res *backtest.Result, generatedAt time.Time) string {
	day := generatedAt.In(core.Shanghai).Format(timeLayout)
	return path.Join("backtests", day, fmt.Sprintf("%s_%s.json", res.Symbol, res.Strategy))
}

// Export writes res as indented JSON to store and returns its path.
func Export(ctx context.Context, store archive.Storage, res *backtest.Result, generatedAt time.Time) (string, error) {
	data, err := json.MarshalIndent(NewDocument(res, generatedAt), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	key := Path(res, generatedAt)
	if err := store.Write(ctx, key, append(data, '\n')); err != nil {
		return "", fmt.Errorf("writing report %s: %w", key, err)
	}
	return key, nil
}

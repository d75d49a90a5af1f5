package backtest

import (
	"math"

	"github.com/newthinker/ashare/internal/core"
)

const (
	// TradingDaysPerYear annualizes per-step returns.
	TradingDaysPerYear = 252
	// RiskFreeRate is the annual rate subtracted before computing Sharpe.
	RiskFreeRate = 0.03

	sharpeEpsilon = 1e-10
)

// CalculateMetrics computes performance statistics from an equity trajectory
// and its trade log. Degenerate inputs produce zeros rather than errors.
func CalculateMetrics(equity []EquityPoint, trades []Trade) Metrics {
	m := Metrics{
		TradeCount: len(trades),
		WinRate:    calculateWinRate(trades),
	}
	if len(equity) < 2 {
		return m
	}

	values := make([]float64, len(equity))
	for i, p := range equity {
		values[i] = p.Equity
	}

	first, last := values[0], values[len(values)-1]
	if first > 0 {
		m.TotalReturn = (last - first) / first
		days := int(equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24)
		m.AnnualizedReturn = annualize(m.TotalReturn, days)
	}

	m.SharpeRatio = calculateSharpeRatio(stepReturns(values))
	m.MaxDrawdown = calculateMaxDrawdown(values)
	return m
}

// annualize compounds totalReturn over a year of calendar days.
func annualize(totalReturn float64, days int) float64 {
	if days < 1 {
		days = 1
	}
	return math.Pow(1+totalReturn, 365/float64(days)) - 1
}

// stepReturns returns the percentage change between consecutive values,
// skipping steps whose base is not positive.
func stepReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(values []float64) float64 {
	var maxDD float64
	var peak float64

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes the annualized ratio of mean excess return to
// its sample standard deviation. Zero-variance series yield 0.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	daily := RiskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(returns))
	var sum float64
	for i, r := range returns {
		excess[i] = r - daily
		sum += excess[i]
	}
	mean := sum / float64(len(excess))

	var variance float64
	for _, x := range excess {
		variance += (x - mean) * (x - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(excess)-1))

	if stdDev <= sharpeEpsilon {
		return 0
	}

	return math.Sqrt(TradingDaysPerYear) * mean / (stdDev + sharpeEpsilon)
}

// calculateWinRate returns profitable sells over all sells.
func calculateWinRate(trades []Trade) float64 {
	var sells, wins int
	for _, t := range trades {
		if t.Action != core.ActionSell {
			continue
		}
		sells++
		if t.IsWin() {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}

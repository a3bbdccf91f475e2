// Package analyzer computes summary statistics from a completed equity curve.
// Analyze is a pure function: it never mutates the curve and has no side
// effects, so a report can be recomputed at any time from the same run.
package analyzer

import (
	"math"

	"github.com/aerucodes/emacross/internal/types"
)

// AnnualizationFactor is the number of trading days per year used to
// annualize the Sharpe ratio and the return. Bars are assumed daily.
const AnnualizationFactor = 252

// Analyze computes the performance report for one run. Degenerate inputs
// (empty curve, single bar, zero-variance returns, non-positive initial
// value) report 0 for the affected statistic rather than an error or NaN.
func Analyze(symbol string, curve []types.EquityPoint) types.PerformanceReport {
	report := types.PerformanceReport{
		Symbol: symbol,
		Bars:   len(curve),
	}

	if len(curve) == 0 {
		return report
	}

	report.FinalValue = curve[len(curve)-1].Equity
	report.SharpeRatio = sharpeRatio(curve)
	report.MaxDrawdown = maxDrawdown(curve)
	report.AnnualReturn = annualReturn(curve)

	return report
}

// perBarReturns computes r_i = (e_i - e_{i-1}) / e_{i-1}, skipping entries
// where the previous equity is zero.
func perBarReturns(curve []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}

		returns = append(returns, (curve[i].Equity-prev)/prev)
	}

	return returns
}

// sharpeRatio annualizes mean/stddev of per-bar returns with sqrt(252).
// The standard deviation is the sample deviation (n-1). Returns 0 when fewer
// than 2 returns exist or the deviation is zero.
func sharpeRatio(curve []types.EquityPoint) float64 {
	returns := perBarReturns(curve)
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	return mean / stddev * math.Sqrt(AnnualizationFactor)
}

// maxDrawdown tracks a running peak in one forward pass. The result is in
// [0, 1] and 0 for a non-decreasing curve.
func maxDrawdown(curve []types.EquityPoint) float64 {
	peak := curve[0].Equity
	maxDD := 0.0

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak <= 0 {
			continue
		}

		dd := (peak - point.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// annualReturn is (final/initial)^(252/bars) - 1 over the whole curve.
// Returns 0 for a single-bar curve or a non-positive initial value.
func annualReturn(curve []types.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	initial := curve[0].Equity
	if initial <= 0 {
		return 0
	}

	final := curve[len(curve)-1].Equity

	return math.Pow(final/initial, AnnualizationFactor/float64(len(curve))) - 1
}

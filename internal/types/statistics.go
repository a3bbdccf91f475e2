package types

import "time"

// EquityPoint is one entry of the equity curve: total account value
// (cash + position quantity * close) after processing a bar.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Equity float64   `yaml:"equity" json:"equity" csv:"equity"`
}

// PerformanceReport holds the summary statistics computed from a completed
// equity curve. All fields are derived and read-only.
type PerformanceReport struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// FinalValue is the last entry's equity
	FinalValue float64 `yaml:"final_value" json:"final_value"`
	// SharpeRatio is annualized with sqrt(252) and uses the sample standard
	// deviation of per-bar returns. Zero when fewer than 2 returns exist or
	// the returns have zero variance.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the largest peak-to-trough decline as a fraction of the
	// peak, always in [0, 1].
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// AnnualReturn is (final/initial)^(252/bars) - 1. Zero when the curve is
	// empty or the initial value is not positive.
	AnnualReturn float64 `yaml:"annual_return" json:"annual_return"`
	// Bars is the number of equity-curve entries the report was computed from
	Bars int `yaml:"bars" json:"bars"`
}

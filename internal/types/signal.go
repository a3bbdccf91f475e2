package types

import "time"

type SignalType string

const (
	// SignalTypeGoldenCross is emitted when the fast EMA crosses above the slow EMA
	SignalTypeGoldenCross SignalType = "golden_cross"
	// SignalTypeDeathCross is emitted when the fast EMA crosses below the slow EMA
	SignalTypeDeathCross SignalType = "death_cross"
	// SignalTypeNoAction is emitted when no crossover occurred on this bar
	SignalTypeNoAction SignalType = "no_action"
)

type Signal struct {
	// Time is the time of the bar that produced the signal
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Symbol is the symbol of the signal
	Symbol string
	// Fast is the fast EMA value at signal time
	Fast float64
	// Slow is the slow EMA value at signal time
	Slow float64
}

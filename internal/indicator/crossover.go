package indicator

import (
	"github.com/aerucodes/emacross/internal/types"
	"github.com/moznion/go-optional"
)

// Crossover detects sign reversals of (fast - slow) between consecutive bars.
//
// A golden cross fires when the difference moves from at-or-below zero to
// strictly above; a death cross when it moves from at-or-above zero to
// strictly below. Equality counts as "not above", so values sitting exactly on
// parity never produce duplicate signals.
//
// While either average is still seeding the state counts as parity, so the
// bar on which both averages first become defined can itself fire: a fast
// average that comes out of seeding already above the slow one has overtaken
// it and signals a golden cross on that bar.
type Crossover struct {
	prevDiff optional.Option[float64]
}

// NewCrossover creates a crossover detector with undefined initial state.
func NewCrossover() *Crossover {
	return &Crossover{
		prevDiff: optional.None[float64](),
	}
}

// Update consumes the current bar's fast and slow EMA values and returns the
// signal kind for this bar. Exactly one signal kind is returned per bar.
func (c *Crossover) Update(fast optional.Option[float64], slow optional.Option[float64]) types.SignalType {
	if fast.IsNone() || slow.IsNone() {
		return types.SignalTypeNoAction
	}

	diff := fast.Unwrap() - slow.Unwrap()

	// Undefined previous state counts as parity.
	prev := c.prevDiff.TakeOr(0)
	c.prevDiff = optional.Some(diff)

	switch {
	case prev <= 0 && diff > 0:
		return types.SignalTypeGoldenCross
	case prev >= 0 && diff < 0:
		return types.SignalTypeDeathCross
	default:
		return types.SignalTypeNoAction
	}
}

package indicator

import (
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/moznion/go-optional"
)

// EMA is a streaming exponential moving average over close prices.
//
// Before the average has seen `period` closes its value is undefined. The
// first defined value is the arithmetic mean of the first `period` closes;
// after that each update applies exponential smoothing:
//
//	value = alpha*close + (1-alpha)*value
//
// with alpha = 2/(period+1), matching pandas ewm with adjust=False. State is
// O(1) per instance and never resets mid-run.
type EMA struct {
	period  int
	alpha   float64
	seedSum float64
	seen    int
	value   float64
	seeded  bool
}

// NewEMA creates a streaming EMA with the given period.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}, nil
}

// Period returns the configured period.
func (e *EMA) Period() int {
	return e.period
}

// Update consumes the next close price and returns the EMA value, or None
// while the average is still seeding. Only data through the current bar is
// ever used.
func (e *EMA) Update(close float64) optional.Option[float64] {
	if !e.seeded {
		e.seedSum += close
		e.seen++

		if e.seen < e.period {
			return optional.None[float64]()
		}

		e.value = e.seedSum / float64(e.period)
		e.seeded = true

		return optional.Some(e.value)
	}

	e.value = close*e.alpha + e.value*(1-e.alpha)

	return optional.Some(e.value)
}

// Value returns the current EMA value, or None while seeding.
func (e *EMA) Value() optional.Option[float64] {
	if !e.seeded {
		return optional.None[float64]()
	}

	return optional.Some(e.value)
}

package datasource

import (
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
)

// BarSource produces a finite, date-ordered sequence of OHLCV bars. A source
// is restartable: ReadAll may be called more than once and yields the same
// sequence each time.
type BarSource interface {
	// Initialize loads and validates the bar sequence from the given path
	Initialize(path string) error
	// ReadAll yields every bar in ascending date order
	ReadAll() func(yield func(types.Bar, error) bool)
	// Count returns the number of bars in the source
	Count() (int, error)
	// Symbol returns the symbol this source produces bars for
	Symbol() string
	// Close closes the data source and releases any resources
	Close() error
}

// validateSequence checks every bar and enforces strictly increasing dates.
// Any violation is a fatal data error.
func validateSequence(bars []types.Bar) error {
	if len(bars) == 0 {
		return errors.New(errors.ErrCodeNoDataFound, "bar sequence is empty")
	}

	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeMalformedBar, err, "bar %d is malformed", i)
		}

		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeNonMonotonicData,
				"bar %d at %s is not after previous bar at %s",
				i, bars[i].Time.Format("2006-01-02"), bars[i-1].Time.Format("2006-01-02"))
		}
	}

	return nil
}

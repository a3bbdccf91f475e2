package types

import (
	"time"

	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Bar is a single OHLCV bar. Bars are immutable once produced and arrive in
// strictly ascending time order.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time" validate:"required"`
	Symbol string    `csv:"symbol" yaml:"symbol"`
	Open   float64   `csv:"open" yaml:"open" validate:"gt=0"`
	High   float64   `csv:"high" yaml:"high" validate:"gt=0"`
	Low    float64   `csv:"low" yaml:"low" validate:"gt=0"`
	Close  float64   `csv:"close" yaml:"close" validate:"gt=0"`
	Volume float64   `csv:"volume" yaml:"volume" validate:"gte=0"`
}

// Validate validates the Bar struct.
func (b *Bar) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedBar, "invalid bar", err)
	}

	return nil
}

package commission_fee

// RateCommissionFee charges a fixed fraction of the fill notional. The rate
// is charged on every fill, so a round trip pays it twice.
type RateCommissionFee struct {
	rate float64
}

// NewRateCommissionFee creates a proportional commission model. rate must be
// in [0, 1).
func NewRateCommissionFee(rate float64) CommissionFee {
	return &RateCommissionFee{rate: rate}
}

func (c *RateCommissionFee) Calculate(quantity float64, price float64) float64 {
	return c.rate * quantity * price
}

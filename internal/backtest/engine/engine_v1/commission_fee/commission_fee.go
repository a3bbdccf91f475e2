package commission_fee

type CommissionFee interface {
	// Calculate returns the commission in account currency for a fill of the
	// given quantity at the given price.
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	BrokerRate Broker = "rate"
	BrokerZero Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerRate,
	BrokerZero,
}

// GetCommissionFeeHandler returns the commission model for the given broker.
// rate is only used by BrokerRate.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerRate:
		return NewRateCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}

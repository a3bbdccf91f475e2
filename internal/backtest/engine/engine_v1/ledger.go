package engine

import (
	"time"

	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/shopspring/decimal"
)

// Position is the current holding. Zero quantity means flat.
type Position struct {
	Quantity          int64
	AverageEntryPrice float64
	// EntryFee is the commission paid to open the position, carried so a
	// round trip can report net PnL.
	EntryFee float64
}

// Ledger tracks cash, the open position and the equity curve for a single
// run. It is owned and mutated exclusively by the execution simulator; cash
// arithmetic goes through decimals so repeated fills don't accumulate float
// drift. Cash can never go negative: a buy that would overdraw is rejected
// before any mutation.
type Ledger struct {
	cash     decimal.Decimal
	initial  float64
	position Position
	curve    []types.EquityPoint
}

// NewLedger creates a ledger with the given starting cash and an empty
// equity curve.
func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		cash:    decimal.NewFromFloat(initialCash),
		initial: initialCash,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	cash, _ := l.cash.Float64()

	return cash
}

// InitialCash returns the starting balance.
func (l *Ledger) InitialCash() float64 {
	return l.initial
}

// Position returns the current position.
func (l *Ledger) Position() Position {
	return l.position
}

// Buy opens a position of quantity units at price, paying fee on top. The
// ledger is unchanged if the total cost exceeds available cash.
func (l *Ledger) Buy(quantity int64, price float64, fee float64) error {
	cost := decimal.NewFromInt(quantity).
		Mul(decimal.NewFromFloat(price)).
		Add(decimal.NewFromFloat(fee))

	if cost.GreaterThan(l.cash) {
		costF, _ := cost.Float64()

		return errors.Newf(errors.ErrCodeInsufficientFunds,
			"buy cost %.2f exceeds available cash %.2f", costF, l.Cash())
	}

	l.cash = l.cash.Sub(cost)
	l.position = Position{
		Quantity:          quantity,
		AverageEntryPrice: price,
		EntryFee:          fee,
	}

	return nil
}

// Sell closes the whole position at price, receiving proceeds minus fee, and
// returns the round trip's gross and net PnL.
func (l *Ledger) Sell(price float64, fee float64) (grossPnL float64, netPnL float64) {
	qty := decimal.NewFromInt(l.position.Quantity)

	proceeds := qty.Mul(decimal.NewFromFloat(price)).Sub(decimal.NewFromFloat(fee))
	l.cash = l.cash.Add(proceeds)

	gross := qty.Mul(decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(l.position.AverageEntryPrice)))
	net := gross.Sub(decimal.NewFromFloat(l.position.EntryFee)).Sub(decimal.NewFromFloat(fee))

	grossPnL, _ = gross.Float64()
	netPnL, _ = net.Float64()

	l.position = Position{}

	return grossPnL, netPnL
}

// MarkToMarket appends one equity-curve point valued at the given close.
// Called once per processed bar, signal or not, so the curve stays gap-free.
func (l *Ledger) MarkToMarket(t time.Time, close float64) types.EquityPoint {
	equity := l.cash.Add(decimal.NewFromInt(l.position.Quantity).Mul(decimal.NewFromFloat(close)))
	value, _ := equity.Float64()

	point := types.EquityPoint{Time: t, Equity: value}
	l.curve = append(l.curve, point)

	return point
}

// EquityCurve returns the curve accumulated so far.
func (l *Ledger) EquityCurve() []types.EquityPoint {
	return l.curve
}

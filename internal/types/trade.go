package types

import "time"

// Trade is an executed (simulated) fill of an OrderIntent.
type Trade struct {
	Order         OrderIntent `csv:"order"`
	ExecutedAt    time.Time   `csv:"executed_at"`
	ExecutedQty   int64       `csv:"executed_qty"`
	ExecutedPrice float64     `csv:"executed_price"`
	// Fee is the commission paid on this fill
	Fee float64 `csv:"fee"`
	// GrossPnL is the round-trip profit before commission. Only set on sells;
	// buys open the round trip and carry 0.
	GrossPnL float64 `csv:"gross_pnl"`
	// NetPnL is GrossPnL minus the commission of both legs. Only set on sells.
	NetPnL float64 `csv:"net_pnl"`
}

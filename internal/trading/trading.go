package trading

import (
	"context"

	"github.com/aerucodes/emacross/internal/types"
)

// OrderSink receives order intents produced by the execution simulator. The
// backtest ledger stays authoritative regardless of what the sink answers: a
// rejection is surfaced as a warning, never rolled back.
type OrderSink interface {
	// SubmitOrder submits a market order intent and returns the sink's fill
	// decision. Implementations own their timeout and retry policy; the
	// context bounds the whole call.
	SubmitOrder(ctx context.Context, intent types.OrderIntent) (types.Fill, error)
	// Name identifies the sink implementation
	Name() string
}

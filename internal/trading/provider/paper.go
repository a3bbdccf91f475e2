package tradingprovider

import (
	"context"
	"sync"

	"github.com/aerucodes/emacross/internal/trading"
	"github.com/aerucodes/emacross/internal/types"
)

// PaperOrderSink accepts every valid order at its reference price and keeps
// the submissions in memory. It is the deterministic stand-in for a real
// exchange in tests and dry runs.
type PaperOrderSink struct {
	mu          sync.Mutex
	submissions []types.OrderIntent
}

// NewPaperOrderSink creates an empty paper sink.
func NewPaperOrderSink() *PaperOrderSink {
	return &PaperOrderSink{}
}

// SubmitOrder implements trading.OrderSink. Every order fills at its
// reference price.
func (p *PaperOrderSink) SubmitOrder(_ context.Context, intent types.OrderIntent) (types.Fill, error) {
	if err := intent.Validate(); err != nil {
		return types.Fill{
			OrderID:     intent.ID,
			Accepted:    false,
			ErrorReason: err.Error(),
		}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.submissions = append(p.submissions, intent)

	return types.Fill{
		OrderID:   intent.ID,
		Accepted:  true,
		FillPrice: intent.ReferencePrice,
	}, nil
}

// Name implements trading.OrderSink.
func (p *PaperOrderSink) Name() string {
	return "paper"
}

// Submissions returns a copy of every accepted order in submission order.
func (p *PaperOrderSink) Submissions() []types.OrderIntent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.OrderIntent, len(p.submissions))
	copy(out, p.submissions)

	return out
}

// Reset clears the recorded submissions.
func (p *PaperOrderSink) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.submissions = nil
}

var _ trading.OrderSink = (*PaperOrderSink)(nil)

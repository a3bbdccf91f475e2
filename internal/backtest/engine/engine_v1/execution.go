package engine

import (
	"context"

	"github.com/aerucodes/emacross/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/aerucodes/emacross/internal/logger"
	"github.com/aerucodes/emacross/internal/trading"
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecutionSimulator turns crossover signals into simulated market fills
// against the ledger. Fills happen at the bar's close. At most one position
// is open at a time: a golden cross while long and a death cross while flat
// are no-ops, as is a buy the ledger cannot afford.
//
// When an order sink is attached (live mode), every successful simulated fill
// additionally emits an order intent. A sink rejection is logged as a warning
// and never rolls back the ledger.
type ExecutionSimulator struct {
	ledger     *Ledger
	journal    *TradeJournal
	commission commission_fee.CommissionFee
	stake      int64
	sink       trading.OrderSink
	logger     *logger.Logger
}

// NewExecutionSimulator creates a simulator over the given ledger. sink may
// be nil for pure backtests.
func NewExecutionSimulator(
	ledger *Ledger,
	journal *TradeJournal,
	commission commission_fee.CommissionFee,
	stake int64,
	sink trading.OrderSink,
	log *logger.Logger,
) *ExecutionSimulator {
	return &ExecutionSimulator{
		ledger:     ledger,
		journal:    journal,
		commission: commission,
		stake:      stake,
		sink:       sink,
		logger:     log,
	}
}

// ProcessBar applies the bar's signal to the ledger and appends one
// equity-curve point valued at the bar's close. The equity point is appended
// for every bar, signal or not. Only fatal errors propagate; insufficient
// funds and sink rejections are absorbed here.
func (s *ExecutionSimulator) ProcessBar(ctx context.Context, signal types.Signal, bar types.Bar) error {
	switch signal.Type {
	case types.SignalTypeGoldenCross:
		if err := s.buy(ctx, bar); err != nil {
			return err
		}
	case types.SignalTypeDeathCross:
		if err := s.sell(ctx, bar); err != nil {
			return err
		}
	case types.SignalTypeNoAction:
	}

	s.ledger.MarkToMarket(bar.Time, bar.Close)

	return nil
}

func (s *ExecutionSimulator) buy(ctx context.Context, bar types.Bar) error {
	if s.ledger.Position().Quantity != 0 {
		// Already long; no pyramiding.
		return nil
	}

	fee := s.commission.Calculate(float64(s.stake), bar.Close)

	if err := s.ledger.Buy(s.stake, bar.Close, fee); err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientFunds) {
			s.logger.Warn("Buy rejected",
				zap.Time("time", bar.Time),
				zap.String("symbol", bar.Symbol),
				zap.Error(err),
			)

			return nil
		}

		return err
	}

	order := s.newOrder(bar, types.PurchaseTypeBuy, types.OrderReasonGoldenCross)

	s.logger.Info("BUY EXECUTED",
		zap.Time("time", bar.Time),
		zap.String("symbol", bar.Symbol),
		zap.Int64("quantity", s.stake),
		zap.Float64("price", bar.Close),
		zap.Float64("fee", fee),
	)

	trade := types.Trade{
		Order:         order,
		ExecutedAt:    bar.Time,
		ExecutedQty:   s.stake,
		ExecutedPrice: bar.Close,
		Fee:           fee,
	}

	if err := s.journal.RecordFill(trade); err != nil {
		return err
	}

	s.submitToSink(ctx, order)

	return nil
}

func (s *ExecutionSimulator) sell(ctx context.Context, bar types.Bar) error {
	position := s.ledger.Position()
	if position.Quantity == 0 {
		// Nothing to close; no shorting.
		return nil
	}

	fee := s.commission.Calculate(float64(position.Quantity), bar.Close)
	gross, net := s.ledger.Sell(bar.Close, fee)

	order := s.newOrder(bar, types.PurchaseTypeSell, types.OrderReasonDeathCross)
	order.Quantity = position.Quantity

	s.logger.Info("SELL EXECUTED",
		zap.Time("time", bar.Time),
		zap.String("symbol", bar.Symbol),
		zap.Int64("quantity", position.Quantity),
		zap.Float64("price", bar.Close),
		zap.Float64("fee", fee),
	)
	s.logger.Info("OPERATION PROFIT",
		zap.Float64("gross", gross),
		zap.Float64("net", net),
	)

	trade := types.Trade{
		Order:         order,
		ExecutedAt:    bar.Time,
		ExecutedQty:   position.Quantity,
		ExecutedPrice: bar.Close,
		Fee:           fee,
		GrossPnL:      gross,
		NetPnL:        net,
	}

	if err := s.journal.RecordFill(trade); err != nil {
		return err
	}

	s.submitToSink(ctx, order)

	return nil
}

func (s *ExecutionSimulator) newOrder(bar types.Bar, side types.PurchaseType, reason string) types.OrderIntent {
	return types.OrderIntent{
		ID:             uuid.New().String(),
		Symbol:         bar.Symbol,
		Side:           side,
		Quantity:       s.stake,
		ReferencePrice: bar.Close,
		Timestamp:      bar.Time,
		Reason:         reason,
	}
}

// submitToSink forwards the order in live mode. Historical simulation state
// is never reconciled against the sink's answer.
func (s *ExecutionSimulator) submitToSink(ctx context.Context, order types.OrderIntent) {
	if s.sink == nil {
		return
	}

	if err := order.Validate(); err != nil {
		s.logger.Warn("Order intent failed validation, not submitted",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)

		return
	}

	fill, err := s.sink.SubmitOrder(ctx, order)
	if err != nil {
		s.logger.Warn("Order sink error",
			zap.String("sink", s.sink.Name()),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)

		return
	}

	if !fill.Accepted {
		s.logger.Warn("Order rejected by sink",
			zap.String("sink", s.sink.Name()),
			zap.String("order_id", order.ID),
			zap.String("reason", fill.ErrorReason),
		)

		return
	}

	s.logger.Info("Order accepted by sink",
		zap.String("sink", s.sink.Name()),
		zap.String("order_id", order.ID),
		zap.Float64("fill_price", fill.FillPrice),
	)
}

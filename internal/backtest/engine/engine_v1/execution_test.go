package engine

import (
	"context"
	"testing"
	"time"

	"github.com/aerucodes/emacross/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/aerucodes/emacross/internal/logger"
	"github.com/aerucodes/emacross/internal/trading"
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/mocks"
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ExecutionTestSuite struct {
	suite.Suite
	ledger  *Ledger
	journal *TradeJournal
	log     *logger.Logger
}

func TestExecutionSuite(t *testing.T) {
	suite.Run(t, new(ExecutionTestSuite))
}

func (suite *ExecutionTestSuite) SetupTest() {
	suite.log = logger.NewNopLogger()

	journal, err := NewTradeJournal(suite.log)
	suite.Require().NoError(err)
	suite.Require().NoError(journal.Initialize())

	suite.journal = journal
	suite.ledger = NewLedger(100000)
}

func (suite *ExecutionTestSuite) TearDownTest() {
	suite.journal.Close()
}

func (suite *ExecutionTestSuite) newSimulator(sink trading.OrderSink) *ExecutionSimulator {
	commission := commission_fee.NewRateCommissionFee(0.001)

	return NewExecutionSimulator(suite.ledger, suite.journal, commission, 10, sink, suite.log)
}

func (suite *ExecutionTestSuite) newMockSink() *mocks.MockOrderSink {
	ctrl := gomock.NewController(suite.T())
	sink := mocks.NewMockOrderSink(ctrl)
	sink.EXPECT().Name().Return("mock").AnyTimes()

	return sink
}

func barAt(day int, close float64) types.Bar {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)

	return types.Bar{
		Time:   t,
		Symbol: "AAPL",
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 1000,
	}
}

func signalFor(bar types.Bar, kind types.SignalType) types.Signal {
	return types.Signal{Time: bar.Time, Type: kind, Symbol: bar.Symbol}
}

func (suite *ExecutionTestSuite) TestGoldenCrossBuysStake() {
	simulator := suite.newSimulator(nil)
	bar := barAt(0, 100.0)

	err := simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeGoldenCross), bar)
	suite.Require().NoError(err)

	suite.Equal(int64(10), suite.ledger.Position().Quantity)
	// 100000 - 10*100*(1.001)
	suite.InDelta(98999.0, suite.ledger.Cash(), 1e-9)

	trades, err := suite.journal.GetTrades()
	suite.Require().NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.PurchaseTypeBuy, trades[0].Order.Side)
	suite.Equal(types.OrderReasonGoldenCross, trades[0].Order.Reason)
}

func (suite *ExecutionTestSuite) TestGoldenCrossWhileLongIsNoOp() {
	simulator := suite.newSimulator(nil)
	bar := barAt(0, 100.0)

	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeGoldenCross), bar))
	cash := suite.ledger.Cash()

	bar = barAt(1, 105.0)
	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeGoldenCross), bar))

	suite.Equal(cash, suite.ledger.Cash())
	suite.Equal(int64(10), suite.ledger.Position().Quantity)
}

func (suite *ExecutionTestSuite) TestDeathCrossWhileFlatIsNoOp() {
	simulator := suite.newSimulator(nil)
	bar := barAt(0, 100.0)

	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeDeathCross), bar))

	suite.Equal(100000.0, suite.ledger.Cash())

	trades, err := suite.journal.GetTrades()
	suite.Require().NoError(err)
	suite.Empty(trades)
}

func (suite *ExecutionTestSuite) TestDeathCrossClosesWholePosition() {
	simulator := suite.newSimulator(nil)

	buyBar := barAt(0, 100.0)
	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(buyBar, types.SignalTypeGoldenCross), buyBar))

	sellBar := barAt(1, 110.0)
	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(sellBar, types.SignalTypeDeathCross), sellBar))

	suite.Equal(int64(0), suite.ledger.Position().Quantity)
	// 100000 - 1000 - 1 + 1100 - 1.1
	suite.InDelta(100097.9, suite.ledger.Cash(), 1e-9)

	trades, err := suite.journal.GetTrades()
	suite.Require().NoError(err)
	suite.Require().Len(trades, 2)
	suite.Equal(types.PurchaseTypeSell, trades[1].Order.Side)
	suite.InDelta(100.0, trades[1].GrossPnL, 1e-9)
	suite.InDelta(97.9, trades[1].NetPnL, 1e-9)
}

func (suite *ExecutionTestSuite) TestInsufficientFundsIsAbsorbed() {
	suite.ledger = NewLedger(50)
	simulator := suite.newSimulator(nil)
	bar := barAt(0, 100.0)

	err := simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeGoldenCross), bar)
	suite.Require().NoError(err)

	suite.Equal(50.0, suite.ledger.Cash())
	suite.Equal(int64(0), suite.ledger.Position().Quantity)

	trades, err := suite.journal.GetTrades()
	suite.Require().NoError(err)
	suite.Empty(trades)

	// The bar still contributes an equity point.
	suite.Len(suite.ledger.EquityCurve(), 1)
}

func (suite *ExecutionTestSuite) TestEveryBarAppendsEquityPoint() {
	simulator := suite.newSimulator(nil)

	for day := 0; day < 20; day++ {
		bar := barAt(day, 100.0)
		suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeNoAction), bar))
	}

	suite.Len(suite.ledger.EquityCurve(), 20)
}

func (suite *ExecutionTestSuite) TestSinkReceivesOrders() {
	sink := suite.newMockSink()

	var intents []types.OrderIntent

	sink.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
		func(_ context.Context, intent types.OrderIntent) (types.Fill, error) {
			intents = append(intents, intent)

			return types.Fill{OrderID: intent.ID, Accepted: true, FillPrice: intent.ReferencePrice}, nil
		})

	simulator := suite.newSimulator(sink)

	buyBar := barAt(0, 100.0)
	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(buyBar, types.SignalTypeGoldenCross), buyBar))

	sellBar := barAt(1, 110.0)
	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(sellBar, types.SignalTypeDeathCross), sellBar))

	suite.Require().Len(intents, 2)
	suite.Equal(types.PurchaseTypeBuy, intents[0].Side)
	suite.Equal(types.PurchaseTypeSell, intents[1].Side)
	suite.Equal("AAPL", intents[0].Symbol)
}

func (suite *ExecutionTestSuite) TestSinkRejectionDoesNotRollBackLedger() {
	sink := suite.newMockSink()
	sink.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		Return(types.Fill{Accepted: false, ErrorReason: "insufficient margin"}, nil)

	simulator := suite.newSimulator(sink)

	bar := barAt(0, 100.0)
	suite.Require().NoError(simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeGoldenCross), bar))

	suite.Equal(int64(10), suite.ledger.Position().Quantity)
	suite.InDelta(98999.0, suite.ledger.Cash(), 1e-9)
}

func (suite *ExecutionTestSuite) TestSinkErrorDoesNotAbortRun() {
	sink := suite.newMockSink()
	sink.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		Return(types.Fill{}, errors.New(errors.ErrCodeLiveSinkUnavailable, "connection refused"))

	simulator := suite.newSimulator(sink)

	bar := barAt(0, 100.0)
	err := simulator.ProcessBar(context.Background(), signalFor(bar, types.SignalTypeGoldenCross), bar)
	suite.Require().NoError(err)
	suite.Equal(int64(10), suite.ledger.Position().Quantity)
}

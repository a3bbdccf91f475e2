package engine

import (
	"testing"
	"time"

	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) TestNewLedger() {
	ledger := NewLedger(100000)
	suite.Equal(100000.0, ledger.Cash())
	suite.Equal(100000.0, ledger.InitialCash())
	suite.Equal(int64(0), ledger.Position().Quantity)
	suite.Empty(ledger.EquityCurve())
}

func (suite *LedgerTestSuite) TestBuyDebitsCashAndFee() {
	ledger := NewLedger(100000)

	err := ledger.Buy(10, 150.0, 1.5)
	suite.Require().NoError(err)

	// 100000 - 10*150 - 1.5
	suite.InDelta(98498.5, ledger.Cash(), 1e-9)
	suite.Equal(int64(10), ledger.Position().Quantity)
	suite.Equal(150.0, ledger.Position().AverageEntryPrice)
	suite.Equal(1.5, ledger.Position().EntryFee)
}

func (suite *LedgerTestSuite) TestBuyInsufficientFundsLeavesLedgerUntouched() {
	ledger := NewLedger(1000)

	err := ledger.Buy(10, 150.0, 1.5)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))
	suite.Equal(1000.0, ledger.Cash())
	suite.Equal(int64(0), ledger.Position().Quantity)
}

func (suite *LedgerTestSuite) TestBuyExactCashIsAllowed() {
	ledger := NewLedger(1501.5)

	err := ledger.Buy(10, 150.0, 1.5)
	suite.Require().NoError(err)
	suite.InDelta(0.0, ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestSellRoundTrip() {
	ledger := NewLedger(100000)
	suite.Require().NoError(ledger.Buy(10, 100.0, 1.0))

	gross, net := ledger.Sell(110.0, 1.1)

	// gross = 10 * (110 - 100)
	suite.InDelta(100.0, gross, 1e-9)
	// net = gross - entry fee - exit fee
	suite.InDelta(97.9, net, 1e-9)
	// 100000 - 1000 - 1 + 1100 - 1.1
	suite.InDelta(100097.9, ledger.Cash(), 1e-9)
	suite.Equal(int64(0), ledger.Position().Quantity)
}

func (suite *LedgerTestSuite) TestSellLosingTrade() {
	ledger := NewLedger(100000)
	suite.Require().NoError(ledger.Buy(10, 100.0, 1.0))

	gross, net := ledger.Sell(90.0, 0.9)
	suite.InDelta(-100.0, gross, 1e-9)
	suite.InDelta(-101.9, net, 1e-9)
}

func (suite *LedgerTestSuite) TestNoFloatDriftOverManyRoundTrips() {
	ledger := NewLedger(100000)

	for i := 0; i < 1000; i++ {
		suite.Require().NoError(ledger.Buy(10, 10.1, 0.101))
		ledger.Sell(10.1, 0.101)
	}

	// Each round trip loses exactly both fees.
	suite.InDelta(100000-1000*0.202, ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestMarkToMarketValuesPositionAtClose() {
	ledger := NewLedger(100000)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	point := ledger.MarkToMarket(start, 100.0)
	suite.Equal(100000.0, point.Equity)

	suite.Require().NoError(ledger.Buy(10, 100.0, 1.0))
	point = ledger.MarkToMarket(start.AddDate(0, 0, 1), 120.0)

	// cash 98999 + 10*120
	suite.InDelta(100199.0, point.Equity, 1e-9)
	suite.Len(ledger.EquityCurve(), 2)
}

func (suite *LedgerTestSuite) TestEquityCurveIsGapFree() {
	ledger := NewLedger(1000)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		ledger.MarkToMarket(start.AddDate(0, 0, i), 100.0)
	}

	suite.Len(ledger.EquityCurve(), 50)
}

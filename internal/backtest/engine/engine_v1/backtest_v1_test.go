package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	backtestengine "github.com/aerucodes/emacross/internal/backtest/engine"
	"github.com/aerucodes/emacross/internal/logger"
	"github.com/aerucodes/emacross/internal/trading/provider"
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/mocks"
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1TestSuite struct {
	suite.Suite
	engine *BacktestEngineV1
	dir    string
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.engine = NewBacktestEngineV1(logger.NewNopLogger())
	suite.dir = suite.T().TempDir()
}

func (suite *BacktestEngineV1TestSuite) writeBars(name string, bars []types.Bar) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(mocks.WriteCSV(path, bars))

	return path
}

// reportFile mirrors the parts of the run report the tests assert on.
type reportFile struct {
	RunID       string                  `yaml:"run_id"`
	Performance types.PerformanceReport `yaml:"performance"`
	Trades      TradeSummary            `yaml:"trades"`
	FinalCash   float64                 `yaml:"final_cash"`
}

func (suite *BacktestEngineV1TestSuite) readReport(folder string) reportFile {
	content, err := os.ReadFile(filepath.Join(folder, "report.yaml"))
	suite.Require().NoError(err)

	var report reportFile
	suite.Require().NoError(yaml.Unmarshal(content, &report))

	return report
}

func flatBars(count int, price float64) []types.Bar {
	gen := mocks.NewDataGenerator(42)
	config := mocks.DefaultGeneratorConfig()
	config.Symbol = "AAPL"
	config.Count = count
	config.InitialPrice = price

	return gen.GenerateFlat(config)
}

func linearBars(count int, from float64, to float64) []types.Bar {
	gen := mocks.NewDataGenerator(42)
	config := mocks.DefaultGeneratorConfig()
	config.Symbol = "AAPL"
	config.Count = count
	config.InitialPrice = from
	config.Trend = to/from - 1

	return gen.GenerateLinear(config)
}

func (suite *BacktestEngineV1TestSuite) TestRunRequiresInitialize() {
	err := suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNotInitialized))
}

func (suite *BacktestEngineV1TestSuite) TestRunRequiresDataPath() {
	suite.Require().NoError(suite.engine.Initialize(""))

	err := suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoDataPaths))
}

func (suite *BacktestEngineV1TestSuite) TestSetDataPathNoMatch() {
	err := suite.engine.SetDataPath(filepath.Join(suite.dir, "missing_*.csv"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoDataPaths))
}

func (suite *BacktestEngineV1TestSuite) TestFlatSeriesNeverTrades() {
	path := suite.writeBars("AAPL.csv", flatBars(300, 10.0))

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))
	suite.Require().NoError(suite.engine.SetResultsFolder(suite.dir))

	var resultFolder string

	onRunEnd := backtestengine.OnRunEndCallback(func(_ int, _ string, folder string) {
		resultFolder = folder
	})

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{
		OnRunEnd: &onRunEnd,
	}))

	reports, err := suite.engine.GetReports()
	suite.Require().NoError(err)
	suite.Require().Len(reports, 1)

	report := reports[0]
	suite.Equal("AAPL", report.Symbol)
	suite.Equal(300, report.Bars)
	suite.Equal(100000.0, report.FinalValue)
	suite.Equal(0.0, report.SharpeRatio)
	suite.Equal(0.0, report.MaxDrawdown)

	written := suite.readReport(resultFolder)
	suite.Equal(0, written.Trades.TotalTrades)
	suite.Equal(100000.0, written.FinalCash)
}

func (suite *BacktestEngineV1TestSuite) TestLinearUptrendBuysOnce() {
	bars := linearBars(300, 100, 400)
	path := suite.writeBars("AAPL.csv", bars)

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))
	suite.Require().NoError(suite.engine.SetResultsFolder(suite.dir))

	var resultFolder string

	onRunEnd := backtestengine.OnRunEndCallback(func(_ int, _ string, folder string) {
		resultFolder = folder
	})

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{
		OnRunEnd: &onRunEnd,
	}))

	written := suite.readReport(resultFolder)

	// The slow EMA seeds at bar 200; the fast EMA is already above it, so
	// exactly one golden cross fires there and the position is never closed.
	suite.Equal(1, written.Trades.TotalTrades)

	entryClose := bars[199].Close
	expectedCash := 100000.0 - 10.0*entryClose*1.001
	suite.InDelta(expectedCash, written.FinalCash, 1e-6)

	lastClose := bars[len(bars)-1].Close
	suite.InDelta(expectedCash+10.0*lastClose, written.Performance.FinalValue, 1e-6)
	suite.Greater(written.Performance.AnnualReturn, 0.0)
}

func (suite *BacktestEngineV1TestSuite) TestSingleBarRun() {
	path := suite.writeBars("AAPL.csv", flatBars(1, 10.0))

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{}))

	reports, err := suite.engine.GetReports()
	suite.Require().NoError(err)
	suite.Require().Len(reports, 1)
	suite.Equal(1, reports[0].Bars)
	suite.Equal(0.0, reports[0].SharpeRatio)
	suite.Equal(0.0, reports[0].AnnualReturn)
}

func (suite *BacktestEngineV1TestSuite) TestMultiFileGlobRunsIndependently() {
	suite.writeBars("AAPL_2024.csv", flatBars(250, 10.0))
	suite.writeBars("GOOGL_2024.csv", flatBars(250, 20.0))

	suite.Require().NoError(suite.engine.Initialize("symbols: [AAPL, GOOGL]"))
	suite.Require().NoError(suite.engine.SetDataPath(filepath.Join(suite.dir, "*_2024.csv")))

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{}))

	reports, err := suite.engine.GetReports()
	suite.Require().NoError(err)
	suite.Require().Len(reports, 2)

	symbols := []string{reports[0].Symbol, reports[1].Symbol}
	suite.ElementsMatch([]string{"AAPL", "GOOGL"}, symbols)

	for _, report := range reports {
		suite.Equal(100000.0, report.FinalValue)
	}
}

func (suite *BacktestEngineV1TestSuite) TestCallbacksFire() {
	path := suite.writeBars("AAPL.csv", flatBars(50, 10.0))

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))

	var (
		started      int
		processed    int
		total        int
		endedWithErr error
		sawRunID     string
	)

	onStart := backtestengine.OnBacktestStartCallback(func(files int) error {
		started = files

		return nil
	})
	onRunStart := backtestengine.OnRunStartCallback(func(runID string, _ int, _ string, totalPoints int) error {
		sawRunID = runID
		total = totalPoints

		return nil
	})
	onProcess := backtestengine.OnProcessDataCallback(func(_ int, _ int) error {
		processed++

		return nil
	})
	onEnd := backtestengine.OnBacktestEndCallback(func(err error) {
		endedWithErr = err
	})

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnRunStart:      &onRunStart,
		OnProcessData:   &onProcess,
		OnBacktestEnd:   &onEnd,
	}))

	suite.Equal(1, started)
	suite.NotEmpty(sawRunID)
	suite.Equal(50, total)
	suite.Equal(50, processed)
	suite.NoError(endedWithErr)
}

func (suite *BacktestEngineV1TestSuite) TestLiveModeRequiresSink() {
	path := suite.writeBars("AAPL.csv", flatBars(10, 10.0))

	suite.Require().NoError(suite.engine.Initialize("live_mode: true"))
	suite.Require().NoError(suite.engine.SetDataPath(path))

	err := suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *BacktestEngineV1TestSuite) TestLiveModeRoutesOrdersToSink() {
	bars := linearBars(300, 100, 400)
	path := suite.writeBars("AAPL.csv", bars)

	sink := tradingprovider.NewPaperOrderSink()

	suite.Require().NoError(suite.engine.Initialize("live_mode: true"))
	suite.Require().NoError(suite.engine.SetDataPath(path))
	suite.Require().NoError(suite.engine.SetOrderSink(sink))

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{}))

	submissions := sink.Submissions()
	suite.Require().Len(submissions, 1)
	suite.Equal(types.PurchaseTypeBuy, submissions[0].Side)
	suite.Equal("AAPL", submissions[0].Symbol)
	suite.Equal(int64(10), submissions[0].Quantity)
}

func (suite *BacktestEngineV1TestSuite) TestBacktestModeNeverCallsSink() {
	path := suite.writeBars("AAPL.csv", linearBars(300, 100, 400))

	// No expectations registered, so any call on the sink fails the test.
	ctrl := gomock.NewController(suite.T())
	sink := mocks.NewMockOrderSink(ctrl)

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))
	suite.Require().NoError(suite.engine.SetOrderSink(sink))

	suite.Require().NoError(suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{}))
}

func (suite *BacktestEngineV1TestSuite) TestCancelledContextAbortsRun() {
	path := suite.writeBars("AAPL.csv", flatBars(100, 10.0))

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := suite.engine.Run(ctx, backtestengine.LifecycleCallbacks{})
	suite.Require().Error(err)
}

func (suite *BacktestEngineV1TestSuite) TestNonMonotonicDataIsFatal() {
	path := filepath.Join(suite.dir, "AAPL.csv")
	content := "date,open,high,low,close,volume\n" +
		"2024-01-02,10,10,10,10,100\n" +
		"2024-01-01,10,10,10,10,100\n"
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	suite.Require().NoError(suite.engine.Initialize(""))
	suite.Require().NoError(suite.engine.SetDataPath(path))

	err := suite.engine.Run(context.Background(), backtestengine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicData))
	suite.True(errors.IsFatal(err))
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	schema, err := suite.engine.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "fast_period")
}

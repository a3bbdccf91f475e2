package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aerucodes/emacross/internal/analyzer"
	backtestengine "github.com/aerucodes/emacross/internal/backtest/engine"
	"github.com/aerucodes/emacross/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/aerucodes/emacross/internal/backtest/engine/engine_v1/datasource"
	"github.com/aerucodes/emacross/internal/indicator"
	"github.com/aerucodes/emacross/internal/logger"
	"github.com/aerucodes/emacross/internal/trading"
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BacktestEngineV1 runs the dual EMA crossover strategy over CSV data files.
// Each matched data file is one independent run with its own ledger, journal
// and indicator state, so runs never contaminate each other.
type BacktestEngineV1 struct {
	config        BacktestConfig
	initialized   bool
	dataPaths     []string
	resultsFolder string
	sink          trading.OrderSink
	log           *logger.Logger
	reports       []types.PerformanceReport
}

// runReport is the YAML document written next to the Parquet exports.
type runReport struct {
	RunID       string                  `yaml:"run_id"`
	DataFile    string                  `yaml:"data_file"`
	Config      BacktestConfig          `yaml:"config"`
	Performance types.PerformanceReport `yaml:"performance"`
	Trades      TradeSummary            `yaml:"trades"`
	FinalCash   float64                 `yaml:"final_cash"`
}

// NewBacktestEngineV1 creates an engine with the strategy defaults. Initialize
// or SetConfigPath must be called before Run.
func NewBacktestEngineV1(log *logger.Logger) *BacktestEngineV1 {
	return &BacktestEngineV1{
		config: DefaultConfig(),
		log:    log,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed, err := ParseConfig(config)
	if err != nil {
		return err
	}

	if parsed.IsDegenerate() {
		b.log.Warn("Slow period does not exceed fast period; crossovers are unlikely to be meaningful",
			zap.Int("fast_period", parsed.FastPeriod),
			zap.Int("slow_period", parsed.SlowPeriod),
		)
	}

	b.config = parsed
	b.initialized = true

	return nil
}

// SetConfigPath implements engine.Engine.
func (b *BacktestEngineV1) SetConfigPath(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return b.Initialize(string(content))
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	matches, err := filepath.Glob(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestNoDataPaths, err, "invalid data path pattern %s", path)
	}

	if len(matches) == 0 {
		return errors.Newf(errors.ErrCodeBacktestNoDataPaths, "no data files match %s", path)
	}

	b.dataPaths = matches

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// SetOrderSink implements engine.Engine.
func (b *BacktestEngineV1) SetOrderSink(sink trading.OrderSink) error {
	b.sink = sink

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks backtestengine.LifecycleCallbacks) (runErr error) {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestNotInitialized, "engine not initialized, call Initialize first")
	}

	if len(b.dataPaths) == 0 {
		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data paths set, call SetDataPath first")
	}

	if b.config.LiveMode && b.sink == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "live mode enabled but no order sink attached")
	}

	defer func() {
		if callbacks.OnBacktestEnd != nil {
			(*callbacks.OnBacktestEnd)(runErr)
		}
	}()

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(b.dataPaths)); err != nil {
			return err
		}
	}

	b.reports = b.reports[:0]

	for i, path := range b.dataPaths {
		report, resultFolder, err := b.runOne(ctx, i, path, callbacks)
		if err != nil {
			return err
		}

		b.reports = append(b.reports, report)

		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(i, path, resultFolder)
		}
	}

	return nil
}

// runOne executes one data file end to end and returns its report.
func (b *BacktestEngineV1) runOne(
	ctx context.Context,
	index int,
	path string,
	callbacks backtestengine.LifecycleCallbacks,
) (types.PerformanceReport, string, error) {
	runID := uuid.New().String()
	symbol := symbolFromPath(path)

	if !b.symbolConfigured(symbol) {
		b.log.Warn("Data file symbol is not in the configured symbol list",
			zap.String("symbol", symbol),
			zap.Strings("configured", b.config.Symbols),
		)
	}

	source := datasource.NewCSVBarSource(symbol)
	if err := source.Initialize(path); err != nil {
		return types.PerformanceReport{}, "", err
	}
	defer source.Close()

	total, err := source.Count()
	if err != nil {
		return types.PerformanceReport{}, "", err
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, index, path, total); err != nil {
			return types.PerformanceReport{}, "", err
		}
	}

	b.log.Info("Starting run",
		zap.String("run_id", runID),
		zap.String("data_file", path),
		zap.String("symbol", symbol),
		zap.Int("bars", total),
		zap.Float64("starting_portfolio_value", b.config.InitialCash),
	)

	journal, err := NewTradeJournal(b.log)
	if err != nil {
		return types.PerformanceReport{}, "", err
	}
	defer journal.Close()

	if err := journal.Initialize(); err != nil {
		return types.PerformanceReport{}, "", err
	}

	ledger := NewLedger(b.config.InitialCash)
	commission := commission_fee.GetCommissionFeeHandler(b.config.Broker, b.config.CommissionRate)

	var sink trading.OrderSink
	if b.config.LiveMode {
		sink = b.sink
	}

	simulator := NewExecutionSimulator(ledger, journal, commission, b.config.Stake, sink, b.log)

	fast, err := indicator.NewEMA(b.config.FastPeriod)
	if err != nil {
		return types.PerformanceReport{}, "", err
	}

	slow, err := indicator.NewEMA(b.config.SlowPeriod)
	if err != nil {
		return types.PerformanceReport{}, "", err
	}

	crossover := indicator.NewCrossover()

	current := 0

	var loopErr error

	source.ReadAll()(func(bar types.Bar, readErr error) bool {
		if readErr != nil {
			loopErr = readErr
			return false
		}

		if err := ctx.Err(); err != nil {
			loopErr = errors.Wrap(errors.ErrCodeUnknown, "backtest cancelled", err)
			return false
		}

		current++

		if !b.inWindow(bar) {
			return true
		}

		fastValue := fast.Update(bar.Close)
		slowValue := slow.Update(bar.Close)
		signalType := crossover.Update(fastValue, slowValue)

		b.log.Debug("Bar processed",
			zap.Time("time", bar.Time),
			zap.Float64("close", bar.Close),
			zap.Float64("fast", fastValue.TakeOr(0)),
			zap.Float64("slow", slowValue.TakeOr(0)),
			zap.String("signal", string(signalType)),
		)

		signal := types.Signal{
			Time:   bar.Time,
			Type:   signalType,
			Symbol: bar.Symbol,
			Fast:   fastValue.TakeOr(0),
			Slow:   slowValue.TakeOr(0),
		}

		if err := simulator.ProcessBar(ctx, signal, bar); err != nil {
			loopErr = err
			return false
		}

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(current, total); err != nil {
				loopErr = err
				return false
			}
		}

		return true
	})

	if loopErr != nil {
		return types.PerformanceReport{}, "", loopErr
	}

	curve := ledger.EquityCurve()

	if err := journal.RecordEquityCurve(curve); err != nil {
		return types.PerformanceReport{}, "", err
	}

	report := analyzer.Analyze(symbol, curve)

	b.log.Info("Run finished",
		zap.String("run_id", runID),
		zap.String("symbol", symbol),
		zap.Float64("final_portfolio_value", report.FinalValue),
		zap.Float64("final_cash", ledger.Cash()),
		zap.Float64("sharpe_ratio", report.SharpeRatio),
		zap.Float64("max_drawdown", report.MaxDrawdown),
		zap.Float64("annual_return", report.AnnualReturn),
	)

	resultFolder := ""
	if b.resultsFolder != "" {
		resultFolder = filepath.Join(b.resultsFolder, symbol+"_"+runID)
		if err := b.writeResults(resultFolder, runID, path, report, ledger, journal); err != nil {
			return types.PerformanceReport{}, "", err
		}
	}

	return report, resultFolder, nil
}

// writeResults exports the journal as Parquet plus a YAML report.
func (b *BacktestEngineV1) writeResults(
	folder string,
	runID string,
	dataFile string,
	report types.PerformanceReport,
	ledger *Ledger,
	journal *TradeJournal,
) error {
	if err := journal.Write(folder); err != nil {
		return err
	}

	summary, err := journal.Summary()
	if err != nil {
		return err
	}

	document := runReport{
		RunID:       runID,
		DataFile:    dataFile,
		Config:      b.config,
		Performance: report,
		Trades:      summary,
		FinalCash:   ledger.Cash(),
	}

	content, err := yaml.Marshal(document)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to marshal run report", err)
	}

	target := filepath.Join(folder, "report.yaml")
	if err := os.WriteFile(target, content, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to write %s", target)
	}

	b.log.Info("Wrote run report", zap.String("path", target))

	return nil
}

// GetReports implements engine.Engine.
func (b *BacktestEngineV1) GetReports() ([]types.PerformanceReport, error) {
	if !b.initialized {
		return nil, errors.New(errors.ErrCodeBacktestNotInitialized, "engine not initialized")
	}

	return b.reports, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	return b.config.GenerateSchemaJSON()
}

// inWindow reports whether the bar falls inside the configured time window.
func (b *BacktestEngineV1) inWindow(bar types.Bar) bool {
	if start, err := b.config.StartTime.Take(); err == nil && bar.Time.Before(start) {
		return false
	}

	if end, err := b.config.EndTime.Take(); err == nil && bar.Time.After(end) {
		return false
	}

	return true
}

func (b *BacktestEngineV1) symbolConfigured(symbol string) bool {
	for _, s := range b.config.Symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}

	return false
}

// symbolFromPath derives the run's symbol from the data file name. The part
// before the first underscore is used, so AAPL_2020.csv and AAPL.csv both map
// to AAPL.
func symbolFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if i := strings.Index(base, "_"); i > 0 {
		base = base[:i]
	}

	return strings.ToUpper(base)
}

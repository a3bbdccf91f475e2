package engine

import (
	"context"

	"github.com/aerucodes/emacross/internal/trading"
	"github.com/aerucodes/emacross/internal/types"
)

// Lifecycle callback types for backtest phases.
// All callbacks with an error return can abort execution if they return an error.

// OnBacktestStartCallback is called once before any data file is processed.
type OnBacktestStartCallback func(totalDataFiles int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when processing of one data file begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, dataFileIndex int, dataFilePath string, totalDataPoints int) error

// OnRunEndCallback is called when processing of one data file ends.
type OnRunEndCallback func(dataFileIndex int, dataFilePath string, resultFolderPath string)

// OnProcessDataCallback is called for each bar processed.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
}

// Engine runs the dual EMA crossover strategy over one or more data files and
// produces a performance report per run.
type Engine interface {
	// Initialize the engine with the given YAML configuration content.
	// Missing keys fall back to the strategy defaults.
	Initialize(config string) error
	// SetConfigPath reads the configuration from a YAML file.
	SetConfigPath(path string) error
	// SetDataPath sets the path to the market data. Accepts glob patterns for
	// batch runs (e.g. "data/*.csv"); each matched file is one independent run.
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for run results. Each run
	// writes into <folder>/<symbol>_<runID>/.
	SetResultsFolder(folder string) error
	// SetOrderSink attaches a live order sink. Only consulted when the
	// configuration enables live mode.
	SetOrderSink(sink trading.OrderSink) error
	// Run executes the strategy over every data file.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different phases.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetReports returns one performance report per completed run, in run order.
	GetReports() ([]types.PerformanceReport, error)
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}

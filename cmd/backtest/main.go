package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	backtestengine "github.com/aerucodes/emacross/internal/backtest/engine"
	engine "github.com/aerucodes/emacross/internal/backtest/engine/engine_v1"
	"github.com/aerucodes/emacross/internal/logger"
	tradingprovider "github.com/aerucodes/emacross/internal/trading/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// backtestAction is the core logic executed by the CLI command.
// It merges the config file with flag overrides, wires the engine and runs it.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	content, err := mergedConfig(cmd)
	if err != nil {
		return err
	}

	backtester := engine.NewBacktestEngineV1(log)

	if err := backtester.Initialize(content); err != nil {
		return err
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	// The merged config decides live mode; the sink is only built when needed
	// so a pure backtest never asks for credentials.
	parsed, err := engine.ParseConfig(content)
	if err != nil {
		return err
	}

	if parsed.LiveMode {
		sink, err := tradingprovider.NewBinanceOrderSink(tradingprovider.BinanceSinkConfig{
			ApiKey:    cmd.String("api-key"),
			SecretKey: cmd.String("secret-key"),
		}, cmd.Bool("testnet"))
		if err != nil {
			return err
		}

		if err := backtester.SetOrderSink(sink); err != nil {
			return err
		}
	}

	fmt.Printf("Starting Portfolio Value: %.2f\n", parsed.InitialCash)

	var bar *progressbar.ProgressBar

	onRunStart := backtestengine.OnRunStartCallback(func(_ string, _ int, dataPath string, total int) error {
		bar = progressbar.Default(int64(total))
		bar.Describe(fmt.Sprintf("Processing %s", filepath.Base(dataPath)))

		return nil
	})
	onProcessData := backtestengine.OnProcessDataCallback(func(current int, _ int) error {
		return bar.Set(current)
	})
	onRunEnd := backtestengine.OnRunEndCallback(func(_ int, _ string, _ string) {
		_ = bar.Finish()
	})

	err = backtester.Run(ctx, backtestengine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	})
	if err != nil {
		return err
	}

	reports, err := backtester.GetReports()
	if err != nil {
		return err
	}

	for _, report := range reports {
		fmt.Printf("Final Portfolio Value (%s): %.2f\n", report.Symbol, report.FinalValue)
		fmt.Printf("  Sharpe Ratio:  %.4f\n", report.SharpeRatio)
		fmt.Printf("  Max Drawdown:  %.2f%%\n", report.MaxDrawdown*100)
		fmt.Printf("  Annual Return: %.2f%%\n", report.AnnualReturn*100)
	}

	return nil
}

// schemaAction prints the JSON schema of the engine configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	backtester := engine.NewBacktestEngineV1(log)

	schema, err := backtester.GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// mergedConfig loads the YAML config file (when given) and overlays the flags
// the user set explicitly, returning YAML content for the engine.
func mergedConfig(cmd *cli.Command) (string, error) {
	document := map[string]any{}

	if path := cmd.String("config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(content, &document); err != nil {
			return "", fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	overrides := map[string]string{
		"fast":       "fast_period",
		"slow":       "slow_period",
		"cash":       "initial_cash",
		"commission": "commission_rate",
		"stake":      "stake",
		"live":       "live_mode",
	}

	for flag, key := range overrides {
		if !cmd.IsSet(flag) {
			continue
		}

		switch key {
		case "fast_period", "slow_period":
			document[key] = cmd.Int(flag)
		case "stake":
			document[key] = cmd.Int(flag)
		case "initial_cash", "commission_rate":
			document[key] = cmd.Float(flag)
		case "live_mode":
			document[key] = cmd.Bool(flag)
		}
	}

	if cmd.IsSet("symbols") {
		document["symbols"] = cmd.StringSlice("symbols")
	}

	content, err := yaml.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("failed to build config: %w", err)
	}

	return string(content), nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Backtest the dual EMA crossover strategy over historical OHLCV data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path or glob of CSV data files (date,open,high,low,close,volume)",
				Value:   "data/*.csv",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file; flags override its values",
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Output directory for run reports and Parquet exports",
				Value:   "results",
			},
			&cli.IntFlag{
				Name:  "fast",
				Usage: "Fast EMA period",
			},
			&cli.IntFlag{
				Name:  "slow",
				Usage: "Slow EMA period",
			},
			&cli.FloatFlag{
				Name:  "cash",
				Usage: "Initial cash",
			},
			&cli.FloatFlag{
				Name:  "commission",
				Usage: "Commission rate per fill, in [0, 1)",
			},
			&cli.IntFlag{
				Name:  "stake",
				Usage: "Units bought per buy signal",
			},
			&cli.StringSliceFlag{
				Name:  "symbols",
				Usage: "Symbols the data files are expected to cover",
			},
			&cli.BoolFlag{
				Name:  "live",
				Usage: "Route fills to the Binance order sink",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Binance API key (live mode)",
				Sources: cli.EnvVars("BINANCE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "secret-key",
				Usage:   "Binance secret key (live mode)",
				Sources: cli.EnvVars("BINANCE_SECRET_KEY"),
			},
			&cli.BoolFlag{
				Name:  "testnet",
				Usage: "Use the Binance testnet endpoint",
			},
		},
		Action: backtestAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the engine configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/moznion/go-optional"
	backtest "github.com/rxtech-lab/signal-backtest/internal/backtest/engine"
	engine "github.com/rxtech-lab/signal-backtest/internal/backtest/engine/engine_v1"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// runAction is the core logic executed by the run command. It loads the
// engine configuration, bar file and signal file, replays the batch and
// prints a summary.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataPath := cmd.String("data")
	signalsPath := cmd.String("signals")
	outputPath := cmd.String("output")

	config, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	backtester := engine.NewBacktestEngineV1()
	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}
	defer backtester.Close()

	if err := backtester.SetDataPath(dataPath); err != nil {
		return fmt.Errorf("failed to set data path: %w", err)
	}

	if err := backtester.LoadSignalsFromFile(signalsPath); err != nil {
		return fmt.Errorf("failed to load signals: %w", err)
	}

	if outputPath != "" {
		if err := backtester.SetResultsFolder(outputPath); err != nil {
			return fmt.Errorf("failed to set results folder: %w", err)
		}
	}

	// Progress over the normalized signal stream.
	var bar *progressbar.ProgressBar

	var onProcessSignal backtest.OnProcessSignalCallback = func(current int, total int) error {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Replaying %s", signalsPath))
		}

		return bar.Add(1)
	}

	result, err := backtester.Run(optional.Some(onProcessSignal))
	if err != nil {
		return fmt.Errorf("backtest run failed: %w", err)
	}

	log.Printf("Run %s completed", result.ID)
	log.Printf("  Trades=%d, WinRate=%.1f%%, ProfitFactor=%.2f", result.Metrics.TotalTrades, result.Metrics.WinRate, result.Metrics.ProfitFactor)
	log.Printf("  NetProfit=%.2f (%.2f%%), Expectancy=%.2f, Sharpe=%.2f", result.Metrics.TotalNetProfit, result.Metrics.TotalReturnPercent, result.Metrics.Expectancy, result.Metrics.SharpeRatio)
	log.Printf("  MaxDrawdown=%.2f (%.2f%%), SkippedSignals=%d", result.Drawdown.MaxDrawdown, result.Drawdown.MaxDrawdownPercent, result.SkippedSignals)

	return nil
}

// schemaAction prints the JSON schema for the engine configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	backtester := engine.NewBacktestEngineV1()

	schema, err := backtester.GetConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay trading signals against historical price bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest over one signal batch",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine YAML configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the price bar CSV or Parquet file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "signals",
						Aliases:  []string{"s"},
						Usage:    "Path to the signal JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Folder to write run artifacts to (result.yaml, trades.csv)",
						Required: false,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the engine configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

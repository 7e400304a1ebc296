package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	engine_types "github.com/rxtech-lab/argo-signal/internal/backtest/engine"
	engine "github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-signal/internal/datasource"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/version"
	"github.com/rxtech-lab/argo-signal/pkg/marketdata"
	"github.com/rxtech-lab/argo-signal/pkg/marketdata/writer"
	"github.com/rxtech-lab/argo-signal/pkg/strategy"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// runSummary is the per-symbol output of the run command without the action stream.
type runSummary struct {
	RunID    string             `yaml:"run_id" json:"run_id"`
	Strategy string             `yaml:"strategy" json:"strategy"`
	Symbol   string             `yaml:"symbol" json:"symbol"`
	Candles  int                `yaml:"candles" json:"candles"`
	Stats    engine_types.Stats `yaml:"stats" json:"stats"`
	Open     *types.Position    `yaml:"open,omitempty" json:"open,omitempty"`
}

func engineConfig(cmd *cli.Command) (engine.BacktestEngineV1Config, error) {
	config := engine.EmptyConfig()

	if path := cmd.String("engine-config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("failed to read engine config: %w", err)
		}

		config, err = engine.ParseConfig(data)
		if err != nil {
			return config, err
		}
	}

	if cmd.IsSet("broker") {
		config.Broker = commission_fee.Broker(cmd.String("broker"))
	}

	if cmd.IsSet("fee") {
		config.FeeRate = cmd.Float("fee")
	}

	if cmd.IsSet("stake") {
		config.StakeAmount = cmd.Float("stake")
	}

	if cmd.IsSet("side") {
		config.Side = types.PositionSide(cmd.String("side"))
	}

	if cmd.IsSet("start") {
		config.StartTime = optional.Some(cmd.Timestamp("start"))
	}

	if cmd.IsSet("end") {
		config.EndTime = optional.Some(cmd.Timestamp("end"))
	}

	return config, config.Validate()
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	cfg, err := strategy.Resolve(cmd.String("strategy"))
	if err != nil {
		return err
	}

	strat, err := strategy.Build(cfg, strategy.Options{})
	if err != nil {
		return err
	}

	config, err := engineConfig(cmd)
	if err != nil {
		return err
	}

	backtest, err := engine.NewBacktestEngineV1(strat, config, log)
	if err != nil {
		return err
	}

	source, err := datasource.NewDataSource(log)
	if err != nil {
		return err
	}

	defer func() { _ = source.Close() }()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	log.Info("Starting backtest",
		zap.String("strategy", strat.Name()),
		zap.String("timeframe", string(strat.Timeframe)),
		zap.String("data", cmd.String("data")),
		zap.Strings("symbols", cmd.StringSlice("symbol")),
	)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", strat.Name())),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	var once sync.Once

	onProcess := engine_types.OnProcessDataCallback(func(current int, total int) error {
		once.Do(func() { bar.ChangeMax(total) })

		return bar.Set(current)
	})

	results, err := backtest.RunSource(ctx, source, cmd.StringSlice("symbol"), datasource.LoadParams{
		Timeframe: strat.Timeframe,
		Resample:  cmd.Bool("resample"),
	}, engine_types.LifecycleCallbacks{OnProcessData: &onProcess})

	_ = bar.Finish()

	if err != nil {
		return err
	}

	var out any = results

	if !cmd.Bool("actions") {
		summaries := make([]runSummary, len(results))
		for i, r := range results {
			summaries[i] = runSummary{
				RunID:    r.RunID,
				Strategy: r.Strategy,
				Symbol:   r.Symbol,
				Candles:  r.Candles,
				Stats:    r.Stats,
				Open:     r.Open,
			}
		}

		out = summaries
	}

	return write(cmd.Root().Writer, out, cmd.String("output"))
}

func write(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		defer func() { _ = encoder.Close() }()

		return encoder.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	timeframe, err := marketdata.ParseTimespan(cmd.String("timeframe"))
	if err != nil {
		return err
	}

	source, err := datasource.NewDataSource(log)
	if err != nil {
		return err
	}

	defer func() { _ = source.Close() }()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	symbols := cmd.StringSlice("symbol")
	if len(symbols) == 0 {
		symbols, err = source.Symbols(ctx)
		if err != nil {
			return err
		}
	}

	params := datasource.LoadParams{Timeframe: timeframe, Resample: true}
	if cmd.IsSet("start") {
		params.Start = optional.Some(cmd.Timestamp("start"))
	}

	if cmd.IsSet("end") {
		params.End = optional.Some(cmd.Timestamp("end"))
	}

	out := writer.NewDuckDBWriter(cmd.String("out"))
	if err := out.Initialize(); err != nil {
		return err
	}

	defer func() { _ = out.Close() }()

	bar := progressbar.NewOptions(len(symbols),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	for _, symbol := range symbols {
		p := params
		p.Symbol = symbol

		series, err := source.Load(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", symbol, err)
		}

		if err := out.WriteSeries(series); err != nil {
			return err
		}

		_ = bar.Add(1)
	}

	path, err := out.Finalize()
	if err != nil {
		return err
	}

	log.Info("Export finished",
		zap.String("path", path),
		zap.String("timeframe", string(timeframe)),
		zap.Int("symbols", len(symbols)),
	)

	return nil
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	if cmd.Bool("engine") {
		config := engine.EmptyConfig()
		schema, err = config.GenerateSchemaJSON()
	} else {
		schema, err = strategy.ConfigSchema()
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func presetsAction(ctx context.Context, cmd *cli.Command) error {
	if name := cmd.Args().First(); name != "" {
		source, err := strategy.PresetSource(name)
		if err != nil {
			return err
		}

		_, err = cmd.Root().Writer.Write(source)

		return err
	}

	for _, name := range strategy.Presets() {
		cfg, err := strategy.Preset(name)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(cmd.Root().Writer, "%-20s %-4s %s\n", name, cfg.Timeframe, cfg.Description); err != nil {
			return err
		}
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Evaluate signal strategies over historical candles",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Backtest a strategy file or preset over parquet or csv market data",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    "Strategy YAML file or preset name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Parquet or csv file (glob patterns accepted)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "symbol",
						Usage: "Symbol to backtest, repeatable. Defaults to every symbol in the data",
					},
					&cli.TimestampFlag{
						Name:  "start",
						Usage: "Start date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "End date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.StringFlag{
						Name:  "engine-config",
						Usage: "Engine config YAML file; flags below override it",
					},
					&cli.StringFlag{
						Name:  "broker",
						Usage: fmt.Sprintf("Commission model (%s, %s, %s)", commission_fee.BrokerZero, commission_fee.BrokerPercentage, commission_fee.BrokerInteractiveBroker),
						Value: string(commission_fee.BrokerZero),
					},
					&cli.FloatFlag{
						Name:  "fee",
						Usage: "Fee rate of the percentage broker",
					},
					&cli.FloatFlag{
						Name:  "stake",
						Usage: "Quote amount per position",
						Value: engine.DefaultStakeAmount,
					},
					&cli.StringFlag{
						Name:  "side",
						Usage: "Position side opened on entry signals (LONG or SHORT)",
						Value: string(types.PositionSideLong),
					},
					&cli.BoolFlag{
						Name:  "resample",
						Usage: "Aggregate finer rows into the strategy timeframe",
					},
					&cli.BoolFlag{
						Name:  "actions",
						Usage: "Print every action and trade instead of a summary",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output format (yaml or json)",
						Value:   "yaml",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "warn",
					},
				},
				Action: runAction,
			},
			{
				Name:  "export",
				Usage: "Resample market data to a timeframe and write it as parquet or csv",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Parquet or csv file (glob patterns accepted)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "out",
						Usage:    "Output file, .parquet or .csv",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "timeframe",
						Usage: "Target candle timeframe",
						Value: string(marketdata.TimespanFiveMinutes),
					},
					&cli.StringSliceFlag{
						Name:  "symbol",
						Usage: "Symbol to export, repeatable. Defaults to every symbol in the data",
					},
					&cli.TimestampFlag{
						Name:  "start",
						Usage: "Start date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "End date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "info",
					},
				},
				Action: exportAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of strategy files",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "engine",
						Usage: "Print the engine config schema instead",
					},
				},
				Action: schemaAction,
			},
			{
				Name:      "presets",
				Usage:     "List built-in strategies, or print one",
				ArgsUsage: "[name]",
				Action:    presetsAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

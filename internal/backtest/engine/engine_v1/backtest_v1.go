package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	engine_types "github.com/rxtech-lab/argo-signal/internal/backtest/engine"
	"github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-signal/internal/datasource"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/strategy"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type BacktestEngineV1 struct {
	strategy *strategy.Strategy
	config   BacktestEngineV1Config
	fee      commission_fee.CommissionFee
	log      *logger.Logger
}

// NewBacktestEngineV1 returns an engine simulating strat. A nil log discards all output.
func NewBacktestEngineV1(strat *strategy.Strategy, config BacktestEngineV1Config, log *logger.Logger) (engine_types.Engine, error) {
	if strat == nil {
		return nil, errors.NewConfig(errors.ErrCodeInvalidConfiguration, "strategy", "strategy is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Side == "" {
		config.Side = types.PositionSideLong
	}

	if config.Concurrency == 0 {
		config.Concurrency = runtime.GOMAXPROCS(0)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	log.Debug("Backtest engine initialized",
		zap.String("strategy", strat.Name()),
		zap.String("timeframe", string(strat.Timeframe)),
		zap.String("broker", string(config.Broker)),
		zap.Float64("stake_amount", config.StakeAmount),
	)

	return &BacktestEngineV1{
		strategy: strat,
		config:   config,
		fee:      commission_fee.GetCommissionFeeHandler(config.Broker, config.FeeRate),
		log:      log,
	}, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, series *types.Series) (*engine_types.Result, error) {
	return b.run(ctx, series, engine_types.LifecycleCallbacks{}, nil)
}

// RunAll implements engine.Engine.
func (b *BacktestEngineV1) RunAll(ctx context.Context, series []*types.Series, callbacks engine_types.LifecycleCallbacks) ([]*engine_types.Result, error) {
	total := 0
	for _, s := range series {
		total += s.Len()
	}

	var processed atomic.Int64

	progress := func() error {
		current := processed.Add(1)
		if callbacks.OnProcessData != nil {
			return (*callbacks.OnProcessData)(int(current), total)
		}

		return nil
	}

	results := make([]*engine_types.Result, len(series))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.Concurrency)

	for i, s := range series {
		i, s := i, s
		group.Go(func() error {
			result, err := b.run(groupCtx, s, callbacks, progress)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Symbol(), err)
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// RunSource implements engine.Engine.
func (b *BacktestEngineV1) RunSource(ctx context.Context, source datasource.CandleSource, symbols []string, params datasource.LoadParams, callbacks engine_types.LifecycleCallbacks) ([]*engine_types.Result, error) {
	if len(symbols) == 0 {
		var err error

		symbols, err = source.Symbols(ctx)
		if err != nil {
			return nil, err
		}
	}

	if params.Timeframe == "" {
		params.Timeframe = b.strategy.Timeframe
	}

	if params.Start.IsNone() {
		params.Start = b.config.StartTime
	}

	if params.End.IsNone() {
		params.End = b.config.EndTime
	}

	series := make([]*types.Series, 0, len(symbols))

	for _, symbol := range symbols {
		p := params
		p.Symbol = symbol

		s, err := source.Load(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", symbol, err)
		}

		series = append(series, s)
	}

	return b.RunAll(ctx, series, callbacks)
}

// NewSession implements engine.Engine.
func (b *BacktestEngineV1) NewSession(symbol string) (engine_types.Session, error) {
	stream, err := b.strategy.Pipeline.NewStream()
	if err != nil {
		return nil, err
	}

	return &session{
		simulator: newSimulator(b.strategy, b.config, b.fee, symbol, b.log),
		stream:    stream,
	}, nil
}

func (b *BacktestEngineV1) run(ctx context.Context, series *types.Series, callbacks engine_types.LifecycleCallbacks, progress func() error) (*engine_types.Result, error) {
	if err := b.checkTimeframe(series); err != nil {
		return nil, err
	}

	runID := uuid.New().String()

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, series.Symbol(), series.Len()); err != nil {
			return nil, fmt.Errorf("run start callback failed: %w", err)
		}
	}

	frame, err := b.strategy.Pipeline.Compute(series)
	if err != nil {
		return nil, err
	}

	sim := newSimulator(b.strategy, b.config, b.fee, series.Symbol(), b.log)

	for i := 0; i < frame.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := sim.step(frame, i, true); err != nil {
			return nil, err
		}

		if progress != nil {
			if err := progress(); err != nil {
				return nil, fmt.Errorf("process data callback failed: %w", err)
			}
		}
	}

	result := sim.result(runID)

	b.log.Info("Backtest run finished",
		zap.String("run_id", runID),
		zap.String("strategy", result.Strategy),
		zap.String("symbol", result.Symbol),
		zap.Int("candles", result.Candles),
		zap.Int("trades", result.Stats.Trades),
		zap.String("total_profit", result.Stats.TotalProfit.String()),
	)

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(result)
	}

	return result, nil
}

// checkTimeframe rejects series sampled at another interval than the strategy. A zero
// series timeframe is accepted as unknown.
func (b *BacktestEngineV1) checkTimeframe(series *types.Series) error {
	want := b.strategy.Timeframe.Duration()
	if got := series.Timeframe(); got != 0 && got != want {
		return errors.NewConfig(errors.ErrCodeInvalidTimeframe, "timeframe",
			fmt.Sprintf("series %s is sampled every %s, strategy %s expects %s", series.Symbol(), got, b.strategy.Name(), want))
	}

	return nil
}

package engine

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	engine_types "github.com/rxtech-lab/argo-signal/internal/backtest/engine"
	"github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/metrics"
	"github.com/rxtech-lab/argo-signal/internal/utils"
	"github.com/rxtech-lab/argo-signal/pkg/exit"
	"github.com/rxtech-lab/argo-signal/pkg/indicator"
	"github.com/rxtech-lab/argo-signal/pkg/strategy"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// simulator holds the trading state of one instrument. Positions are entered and
// observed at the close of a candle, which is its open time plus the timeframe.
type simulator struct {
	strategy *strategy.Strategy
	machine  *exit.Machine
	fee      commission_fee.CommissionFee
	stake    decimal.Decimal
	side     types.PositionSide
	symbol   string
	log      *logger.Logger

	position   *types.Position
	entryIndex int
	quantity   decimal.Decimal
	entryFee   decimal.Decimal
	// exitedAt is the index of the last candle a position was closed on.
	exitedAt int

	actions      []types.Action
	trades       []engine_types.Trade
	entrySignals int
	exitSignals  int
	candles      int
}

func newSimulator(strat *strategy.Strategy, config BacktestEngineV1Config, fee commission_fee.CommissionFee, symbol string, log *logger.Logger) *simulator {
	return &simulator{
		strategy: strat,
		machine:  strat.NewMachine(),
		fee:      fee,
		stake:    decimal.NewFromFloat(config.StakeAmount),
		side:     config.Side,
		symbol:   symbol,
		log:      log,
		exitedAt: -1,
	}
}

// step processes candle i of f. Rules are only evaluated when evaluate is set; otherwise
// an open position can still be closed by the risk policy.
func (s *simulator) step(f *indicator.Frame, i int, evaluate bool) ([]types.Action, error) {
	c := f.Candle(i)
	at := c.Time.Add(s.strategy.Timeframe.Duration())
	name := s.strategy.Name()

	var enter, signalExit bool

	if evaluate {
		s.candles++
		metrics.CandlesProcessed.WithLabelValues(name).Inc()

		if i >= s.strategy.Startup {
			enter, signalExit = s.strategy.Rules.EvaluateAt(f, i)
		}

		if enter {
			s.entrySignals++
			metrics.EntrySignals.WithLabelValues(name).Inc()
		}

		if signalExit {
			s.exitSignals++
		}
	}

	// Positions cannot be priced at a non-positive close; the candle is skipped for trading.
	if !(c.Close > 0) {
		s.log.Debug("Skipping candle without a positive close",
			zap.String("symbol", s.symbol),
			zap.Int("index", i),
			zap.Float64("close", c.Close),
		)

		return nil, nil
	}

	if s.position != nil {
		decision, err := s.machine.Observe(s.position, c.Close, at)
		if err != nil {
			return nil, err
		}

		decision = exit.Merge(decision, signalExit)
		if !decision.State.IsTerminal() {
			return nil, nil
		}

		return []types.Action{s.close(i, c.Close, at, decision.Reason)}, nil
	}

	// An exit signal on the same candle wins over the entry signal.
	if !enter || signalExit || s.exitedAt == i {
		return nil, nil
	}

	action, err := s.open(i, c.Close, at)
	if err != nil {
		return nil, err
	}

	return []types.Action{action}, nil
}

func (s *simulator) open(i int, price float64, at time.Time) (types.Action, error) {
	position, err := s.machine.Open(s.symbol, s.side, price, at)
	if err != nil {
		return types.Action{}, err
	}

	entry := decimal.NewFromFloat(price)

	s.position = position
	s.entryIndex = i
	s.quantity = utils.CalculateMaxQuantity(s.stake, entry, s.fee)
	s.entryFee = s.fee.Calculate(s.quantity, entry)

	metrics.PositionsOpen.WithLabelValues(s.strategy.Name()).Inc()

	s.log.Debug("Position opened",
		zap.String("symbol", s.symbol),
		zap.String("position_id", position.ID),
		zap.Int("index", i),
		zap.Float64("price", price),
	)

	action := types.Action{
		Index:      i,
		Time:       at,
		Type:       types.ActionTypeEnter,
		Price:      price,
		PositionID: position.ID,
		Symbol:     s.symbol,
	}
	s.actions = append(s.actions, action)

	return action, nil
}

func (s *simulator) close(i int, price float64, at time.Time, reason types.ExitReason) types.Action {
	position := s.position
	entry := decimal.NewFromFloat(position.EntryPrice)
	exitPrice := decimal.NewFromFloat(price)

	gross := exitPrice.Sub(entry).Mul(s.quantity)
	if position.Side == types.PositionSideShort {
		gross = gross.Neg()
	}

	fees := s.entryFee.Add(s.fee.Calculate(s.quantity, exitPrice))
	profit := gross.Sub(fees)

	s.trades = append(s.trades, engine_types.Trade{
		ID:          position.ID,
		Symbol:      s.symbol,
		Side:        position.Side,
		EntryIndex:  s.entryIndex,
		ExitIndex:   i,
		EntryTime:   position.EntryTime,
		ExitTime:    at,
		EntryPrice:  position.EntryPrice,
		ExitPrice:   price,
		Quantity:    s.quantity,
		Fees:        fees,
		Profit:      profit,
		ProfitRatio: profit.Div(s.stake),
		Reason:      reason,
	})

	name := s.strategy.Name()
	metrics.PositionsOpen.WithLabelValues(name).Dec()
	metrics.Exits.WithLabelValues(name, string(reason)).Inc()

	s.log.Debug("Position closed",
		zap.String("symbol", s.symbol),
		zap.String("position_id", position.ID),
		zap.Int("index", i),
		zap.Float64("price", price),
		zap.String("reason", string(reason)),
		zap.String("profit", profit.String()),
	)

	s.position = nil
	s.exitedAt = i

	action := types.Action{
		Index:      i,
		Time:       at,
		Type:       types.ActionTypeExit,
		Price:      price,
		Reason:     reason,
		PositionID: position.ID,
		Symbol:     s.symbol,
	}
	s.actions = append(s.actions, action)

	return action
}

func (s *simulator) openPosition() *types.Position {
	if s.position == nil {
		return nil
	}

	position := *s.position

	return &position
}

func (s *simulator) result(runID string) *engine_types.Result {
	return &engine_types.Result{
		RunID:        runID,
		Strategy:     s.strategy.Name(),
		Symbol:       s.symbol,
		Candles:      s.candles,
		EntrySignals: s.entrySignals,
		ExitSignals:  s.exitSignals,
		Actions:      append([]types.Action(nil), s.actions...),
		Trades:       append([]engine_types.Trade(nil), s.trades...),
		Open:         s.openPosition(),
		Stats:        computeStats(s.trades),
	}
}

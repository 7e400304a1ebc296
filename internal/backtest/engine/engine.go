package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-signal/internal/datasource"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// Lifecycle callback types for backtest phases.
// Callbacks with an error return abort the run when they fail. RunAll invokes them from
// several goroutines, so implementations must be safe for concurrent use.

// OnRunStartCallback is called before a series is simulated.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, symbol string, totalCandles int) error

// OnRunEndCallback is called once a series has been simulated successfully.
type OnRunEndCallback func(result *Result)

// OnProcessDataCallback is called after each candle. current counts candles across all runs.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
}

// Trade is a closed simulated position.
type Trade struct {
	ID         string             `yaml:"id" json:"id"`
	Symbol     string             `yaml:"symbol" json:"symbol"`
	Side       types.PositionSide `yaml:"side" json:"side"`
	EntryIndex int                `yaml:"entry_index" json:"entry_index"`
	ExitIndex  int                `yaml:"exit_index" json:"exit_index"`
	EntryTime  time.Time          `yaml:"entry_time" json:"entry_time"`
	ExitTime   time.Time          `yaml:"exit_time" json:"exit_time"`
	EntryPrice float64            `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64            `yaml:"exit_price" json:"exit_price"`
	Quantity   decimal.Decimal    `yaml:"quantity" json:"quantity"`
	Fees       decimal.Decimal    `yaml:"fees" json:"fees"`
	// Profit is net of fees, in quote currency.
	Profit decimal.Decimal `yaml:"profit" json:"profit"`
	// ProfitRatio is Profit over the stake.
	ProfitRatio decimal.Decimal  `yaml:"profit_ratio" json:"profit_ratio"`
	Reason      types.ExitReason `yaml:"reason" json:"reason"`
}

// HoldingTime returns how long the position was open.
func (t Trade) HoldingTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// Stats summarizes the closed trades of a run.
type Stats struct {
	Trades  int     `yaml:"trades" json:"trades"`
	Wins    int     `yaml:"wins" json:"wins"`
	Losses  int     `yaml:"losses" json:"losses"`
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// TotalProfit is the net profit of all trades in quote currency.
	TotalProfit        decimal.Decimal `yaml:"total_profit" json:"total_profit"`
	TotalFees          decimal.Decimal `yaml:"total_fees" json:"total_fees"`
	AverageProfitRatio decimal.Decimal `yaml:"average_profit_ratio" json:"average_profit_ratio"`
	// MaxDrawdown is the largest peak-to-trough drop of cumulative net profit.
	MaxDrawdown    decimal.Decimal          `yaml:"max_drawdown" json:"max_drawdown"`
	AverageHolding time.Duration            `yaml:"average_holding" json:"average_holding"`
	ExitReasons    map[types.ExitReason]int `yaml:"exit_reasons" json:"exit_reasons"`
}

// Result is the outcome of simulating one series.
type Result struct {
	RunID        string `yaml:"run_id" json:"run_id"`
	Strategy     string `yaml:"strategy" json:"strategy"`
	Symbol       string `yaml:"symbol" json:"symbol"`
	Candles      int    `yaml:"candles" json:"candles"`
	EntrySignals int    `yaml:"entry_signals" json:"entry_signals"`
	ExitSignals  int    `yaml:"exit_signals" json:"exit_signals"`
	// Actions is the merged enter/exit stream in candle order.
	Actions []types.Action `yaml:"actions" json:"actions"`
	Trades  []Trade        `yaml:"trades" json:"trades"`
	// Open is the position still held after the last candle, if any.
	Open  *types.Position `yaml:"open,omitempty" json:"open,omitempty"`
	Stats Stats           `yaml:"stats" json:"stats"`
}

// Session simulates a strategy on a live candle feed for one instrument.
type Session interface {
	// Update feeds one candle. A candle that is not final may be followed by updates
	// with the same time; entries and signal exits only fire on final candles.
	Update(c types.Candle, final bool) ([]types.Action, error)
	// Position returns the open position, or nil.
	Position() *types.Position
	// Trades returns the positions closed so far.
	Trades() []Trade
}

type Engine interface {
	// Run simulates the strategy over one series.
	Run(ctx context.Context, series *types.Series) (*Result, error)
	// RunAll simulates every series in parallel. Results keep the order of series.
	RunAll(ctx context.Context, series []*types.Series, callbacks LifecycleCallbacks) ([]*Result, error)
	// RunSource loads symbols from source and simulates them. An empty symbol list means every symbol.
	RunSource(ctx context.Context, source datasource.CandleSource, symbols []string, params datasource.LoadParams, callbacks LifecycleCallbacks) ([]*Result, error)
	// NewSession starts a live simulation for symbol.
	NewSession(symbol string) (Session, error)
}

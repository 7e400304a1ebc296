package engine

import (
	"time"

	"github.com/shopspring/decimal"

	engine_types "github.com/rxtech-lab/argo-signal/internal/backtest/engine"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// computeStats summarizes trades in the order they were closed.
func computeStats(trades []engine_types.Trade) engine_types.Stats {
	stats := engine_types.Stats{
		Trades:             len(trades),
		TotalProfit:        decimal.Zero,
		TotalFees:          decimal.Zero,
		AverageProfitRatio: decimal.Zero,
		MaxDrawdown:        decimal.Zero,
		ExitReasons:        make(map[types.ExitReason]int),
	}

	if len(trades) == 0 {
		return stats
	}

	var (
		ratios  = decimal.Zero
		peak    = decimal.Zero
		holding time.Duration
	)

	for _, trade := range trades {
		if trade.Profit.IsPositive() {
			stats.Wins++
		} else {
			stats.Losses++
		}

		stats.TotalProfit = stats.TotalProfit.Add(trade.Profit)
		stats.TotalFees = stats.TotalFees.Add(trade.Fees)
		ratios = ratios.Add(trade.ProfitRatio)
		holding += trade.HoldingTime()
		stats.ExitReasons[trade.Reason]++

		peak = decimal.Max(peak, stats.TotalProfit)
		stats.MaxDrawdown = decimal.Max(stats.MaxDrawdown, peak.Sub(stats.TotalProfit))
	}

	n := int64(len(trades))
	stats.WinRate = float64(stats.Wins) / float64(n)
	stats.AverageProfitRatio = ratios.Div(decimal.NewFromInt(n))
	stats.AverageHolding = holding / time.Duration(n)

	return stats
}

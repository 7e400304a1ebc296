package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CandlesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argo_signal_candles_processed_total",
			Help: "Total number of candles evaluated (by strategy).",
		},
		[]string{"strategy"},
	)

	EntrySignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argo_signal_entry_signals_total",
			Help: "Total number of candles whose entry condition held (by strategy).",
		},
		[]string{"strategy"},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argo_signal_exits_total",
			Help: "Total number of closed positions (by strategy and exit reason).",
		},
		[]string{"strategy", "reason"},
	)

	PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "argo_signal_positions_open",
			Help: "Current number of open simulated positions per strategy.",
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(CandlesProcessed, EntrySignals, Exits, PositionsOpen)
}

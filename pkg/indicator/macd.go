package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type macdState struct {
	fast   emaState
	slow   emaState
	signal emaState
}

// MACD implements the Moving Average Convergence Divergence indicator.
// It writes three columns: the macd line, its signal line and the histogram.
type MACD struct {
	column       string
	source       types.PriceSource
	slowPeriod   int
	signalPeriod int
	state        macdState
	saved        macdState
}

// NewMACD creates a MACD writing to column, column+"signal" and column+"hist".
func NewMACD(column string, fastPeriod, slowPeriod, signalPeriod int, source types.PriceSource) *MACD {
	return &MACD{
		column:       column,
		source:       source,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
		state: macdState{
			fast:   newEMAState(fastPeriod),
			slow:   newEMAState(slowPeriod),
			signal: newEMAState(signalPeriod),
		},
	}
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

func (m *MACD) Columns() []string {
	return []string{m.column, m.column + "signal", m.column + "hist"}
}

// Startup counts the candles before the signal line is defined.
func (m *MACD) Startup() int {
	return m.slowPeriod + m.signalPeriod - 2
}

func (m *MACD) Update(c types.Candle, out []float64) {
	m.saved = m.state
	v := sourceValue(m.source, c)

	fast := m.state.fast.push(v)
	slow := m.state.slow.push(v)

	if math.IsNaN(slow) {
		fillNaN(out)

		return
	}

	line := fast - slow
	signal := m.state.signal.push(line)

	out[0] = line
	out[1] = signal
	out[2] = line - signal
}

func (m *MACD) Replace(c types.Candle, out []float64) {
	m.state = m.saved
	m.Update(c, out)
}

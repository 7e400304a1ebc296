package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// MA implements the Simple Moving Average over a configurable candle field.
type MA struct {
	column string
	period int
	source types.PriceSource
	values *window
	kind   types.IndicatorType
}

// NewMA creates a simple moving average writing to column.
func NewMA(column string, period int, source types.PriceSource) *MA {
	return &MA{
		column: column,
		period: period,
		source: source,
		values: newWindow(period),
		kind:   types.IndicatorTypeSMA,
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return m.kind
}

func (m *MA) Columns() []string {
	return []string{m.column}
}

func (m *MA) Startup() int {
	return m.period - 1
}

func (m *MA) Update(c types.Candle, out []float64) {
	m.values.Push(sourceValue(m.source, c))
	out[0] = m.current()
}

func (m *MA) Replace(c types.Candle, out []float64) {
	m.values.Undo()
	m.Update(c, out)
}

func (m *MA) current() float64 {
	if !m.values.Full() {
		return math.NaN()
	}

	return m.values.Mean()
}

// emaState is an exponential moving average seeded with the simple mean of its first period values.
// It is a plain value so that callers can checkpoint it by assignment.
type emaState struct {
	period int
	alpha  float64
	count  int
	sum    float64
	value  float64
}

func newEMAState(period int) emaState {
	return emaState{
		period: period,
		// alpha = 2/(span+1), the pandas ewm(adjust=False) and TA-Lib multiplier
		alpha: 2.0 / float64(period+1),
		value: math.NaN(),
	}
}

// push feeds v and returns the current average, NaN until period values were seen.
func (e *emaState) push(v float64) float64 {
	e.count++

	switch {
	case e.count < e.period:
		e.sum += v
	case e.count == e.period:
		e.sum += v
		e.value = e.sum / float64(e.period)
	default:
		e.value = (v * e.alpha) + (e.value * (1 - e.alpha))
	}

	return e.value
}

// EMA implements the Exponential Moving Average.
type EMA struct {
	column string
	source types.PriceSource
	state  emaState
	saved  emaState
}

// NewEMA creates an exponential moving average writing to column.
func NewEMA(column string, period int, source types.PriceSource) *EMA {
	return &EMA{
		column: column,
		source: source,
		state:  newEMAState(period),
	}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

func (e *EMA) Columns() []string {
	return []string{e.column}
}

func (e *EMA) Startup() int {
	return e.state.period - 1
}

func (e *EMA) Update(c types.Candle, out []float64) {
	e.saved = e.state
	out[0] = e.state.push(sourceValue(e.source, c))
}

func (e *EMA) Replace(c types.Candle, out []float64) {
	e.state = e.saved
	e.Update(c, out)
}

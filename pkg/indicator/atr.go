package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// trueRange is the largest of high-low and the gaps to the previous close.
func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	tr = math.Max(tr, math.Abs(high-prevClose))

	return math.Max(tr, math.Abs(low-prevClose))
}

type atrState struct {
	count     int
	prevClose float64
	value     float64
}

// ATR represents the Average True Range indicator.
type ATR struct {
	column string
	period int
	state  atrState
	saved  atrState
}

// NewATR creates a new ATR indicator writing to column.
func NewATR(column string, period int) *ATR {
	return &ATR{
		column: column,
		period: period,
	}
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

func (a *ATR) Columns() []string {
	return []string{a.column}
}

func (a *ATR) Startup() int {
	return a.period
}

func (a *ATR) Update(c types.Candle, out []float64) {
	a.saved = a.state
	s := &a.state
	s.count++

	defer func() { s.prevClose = c.Close }()

	if s.count == 1 {
		out[0] = math.NaN()

		return
	}

	tr := trueRange(c.High, c.Low, s.prevClose)
	period := float64(a.period)

	switch {
	case s.count <= a.period:
		s.value += tr
		out[0] = math.NaN()

		return
	case s.count == a.period+1:
		s.value = (s.value + tr) / period
	default:
		s.value = (s.value*(period-1) + tr) / period
	}

	out[0] = s.value
}

func (a *ATR) Replace(c types.Candle, out []float64) {
	a.state = a.saved
	a.Update(c, out)
}
